package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"skyfare/internal/worker"

	"github.com/rs/zerolog"
)

// TicketingService issues ticket numbers for confirmed bookings. It
// stands in for the carrier's ticketing backend; the worker retries it
// like any external dependency.
type TicketingService struct {
	logger *zerolog.Logger
}

func NewTicketingService(logger *zerolog.Logger) *TicketingService {
	return &TicketingService{logger: logger}
}

func (t *TicketingService) IssueTickets(ctx context.Context, payload worker.TicketPayload) error {
	if payload.BookingID == 0 {
		return fmt.Errorf("ticket payload has no booking id")
	}
	for _, name := range payload.Passengers {
		number, err := newTicketNumber()
		if err != nil {
			return fmt.Errorf("ticket number: %w", err)
		}
		t.logger.Info().
			Str("reference", payload.Reference).
			Str("passenger", name).
			Str("ticket", number).
			Msg("ticket issued")
	}
	return nil
}

// newTicketNumber produces an IATA-style 13-digit ticket number with a
// fixed airline prefix.
func newTicketNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10_000_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("555%010d", n.Int64()), nil
}
