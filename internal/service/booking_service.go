package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/domain"
	"skyfare/internal/events"
	"skyfare/internal/metrics"
	"skyfare/internal/models"
	"skyfare/internal/pricing"

	"github.com/rs/zerolog"
)

// Pricer is the slice of the pricing engine the booking flow needs.
type Pricer interface {
	ComputeBookingTotal(ctx context.Context, req pricing.TotalRequest) (float64, error)
}

type BookingService struct {
	repo               domain.Repository
	pricer             Pricer
	eventBus           domain.EventPublisher
	tickets            domain.TicketQueue
	cancellationWindow time.Duration
	maxPassengers      int
	logger             *zerolog.Logger
	now                func() time.Time
}

func NewBookingService(repo domain.Repository, pricer Pricer, eventBus domain.EventPublisher, tickets domain.TicketQueue, cancellationWindow time.Duration, maxPassengers int, logger *zerolog.Logger) *BookingService {
	if cancellationWindow <= 0 {
		cancellationWindow = 24 * time.Hour
	}
	if maxPassengers <= 0 {
		maxPassengers = 9
	}
	return &BookingService{
		repo:               repo,
		pricer:             pricer,
		eventBus:           eventBus,
		tickets:            tickets,
		cancellationWindow: cancellationWindow,
		maxPassengers:      maxPassengers,
		logger:             logger,
		now:                time.Now,
	}
}

// SetClock pins the service clock for tests.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateBookingRequest is the validated input of a booking creation.
type CreateBookingRequest struct {
	FlightID    int64
	FareCode    string
	Passengers  []models.Passenger
	Ancillaries []pricing.AncillaryItem
}

// CreateBooking runs the full transaction flow: preconditions, price
// snapshot, then the atomic graph insert. The advisory capacity check
// here only fast-fails; the store transaction recounts before commit.
func (s *BookingService) CreateBooking(ctx context.Context, identity models.Identity, req CreateBookingRequest) (*models.Booking, error) {
	account, err := s.repo.GetAccount(ctx, identity.AccountID)
	if err != nil {
		return nil, s.failure("account", err)
	}
	if !account.IsActive {
		return nil, s.failure("account", fmt.Errorf("%w: account %d is inactive", database.ErrUnauthorized, account.ID))
	}

	if err := s.validatePassengers(req.Passengers); err != nil {
		return nil, s.failure("validation", err)
	}

	flight, err := s.repo.GetFlight(ctx, req.FlightID)
	if err != nil {
		return nil, s.failure("flight", err)
	}
	if !flight.Bookable(s.now()) {
		return nil, s.failure("flight", fmt.Errorf("%w: flight %s is %s", database.ErrFlightNotBookable, flight.Number, flight.Status))
	}

	if flight.Capacity > 0 {
		occupied, err := s.repo.ConfirmedOccupantCount(ctx, req.FlightID)
		if err != nil {
			return nil, s.failure("capacity", err)
		}
		if occupied+int64(len(req.Passengers)) > flight.Capacity {
			return nil, s.failure("capacity", fmt.Errorf("%w: flight %s has %d of %d seats taken", database.ErrInsufficientCapacity, flight.Number, occupied, flight.Capacity))
		}
	}

	total, err := s.pricer.ComputeBookingTotal(ctx, pricing.TotalRequest{
		FlightID:       req.FlightID,
		FareCode:       req.FareCode,
		PassengerCount: len(req.Passengers),
		Ancillaries:    req.Ancillaries,
	})
	if err != nil {
		return nil, s.failure("pricing", err)
	}

	booking := &models.Booking{
		Reference:  newReference(),
		AccountID:  identity.AccountID,
		FlightID:   req.FlightID,
		FareCode:   req.FareCode,
		TotalPrice: total,
		Status:     models.BookingStatusPending,
	}

	lines := make([]database.AncillaryLine, 0, len(req.Ancillaries))
	for _, item := range req.Ancillaries {
		lines = append(lines, database.AncillaryLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	created, err := s.repo.CreateBookingGraph(ctx, booking, req.Passengers, lines)
	if err != nil {
		return nil, s.failure("store", err)
	}

	metrics.IncBookingCreated()
	s.publishBookingEvent(events.EventBookingCreated, created)
	return created, nil
}

// GetBooking loads a booking by reference for an authorized caller.
func (s *BookingService) GetBooking(ctx context.Context, identity models.Identity, reference string) (*models.Booking, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !identity.CanManage(booking.AccountID) {
		return nil, fmt.Errorf("%w: booking %s", database.ErrUnauthorized, reference)
	}
	return booking, nil
}

// SetStatus moves a booking through its lifecycle. Confirming enqueues
// ticket issuance; cancelling releases all seats inside the same store
// transaction. Setting the current status again is a no-op.
func (s *BookingService) SetStatus(ctx context.Context, identity models.Identity, reference, newStatus string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, identity, reference)
	if err != nil {
		return nil, err
	}

	if booking.Status == newStatus {
		return booking, nil
	}

	switch {
	case booking.Status == models.BookingStatusPending && newStatus == models.BookingStatusConfirmed:
	case booking.Status != models.BookingStatusCancelled && newStatus == models.BookingStatusCancelled:
		if err := s.checkCancellationWindow(ctx, identity, booking); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s -> %s", database.ErrInvalidTransition, booking.Status, newStatus)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, newStatus); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case models.BookingStatusConfirmed:
		s.publishBookingEvent(events.EventBookingConfirmed, updated)
		if s.tickets != nil {
			if err := s.tickets.EnqueueTicketIssue(ctx, updated); err != nil {
				s.logger.Error().Err(err).Int64("booking_id", updated.ID).Msg("ticket enqueue error")
			}
		}
	case models.BookingStatusCancelled:
		s.publishBookingEvent(events.EventBookingCancelled, updated)
	}

	return updated, nil
}

// checkCancellationWindow rejects customer cancellations too close to
// departure. Managers may cancel at any time.
func (s *BookingService) checkCancellationWindow(ctx context.Context, identity models.Identity, booking *models.Booking) error {
	if identity.HasRole(models.RoleManager) {
		return nil
	}
	flight, err := s.repo.GetFlight(ctx, booking.FlightID)
	if err != nil {
		return err
	}
	if flight.Departure.Sub(s.now()) < s.cancellationWindow {
		return fmt.Errorf("%w: less than %s before departure", database.ErrCancellationWindow, s.cancellationWindow)
	}
	return nil
}

func (s *BookingService) validatePassengers(passengers []models.Passenger) error {
	if len(passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", database.ErrInvalidInput)
	}
	if len(passengers) > s.maxPassengers {
		return fmt.Errorf("%w: at most %d passengers per booking", database.ErrInvalidInput, s.maxPassengers)
	}
	seen := make(map[string]struct{}, len(passengers))
	for _, p := range passengers {
		if p.FirstName == "" || p.LastName == "" || p.PassportNumber == "" {
			return fmt.Errorf("%w: passenger name and passport are required", database.ErrInvalidInput)
		}
		if _, dup := seen[p.PassportNumber]; dup {
			return fmt.Errorf("%w: passenger %s listed twice", database.ErrInvalidInput, p.PassportNumber)
		}
		seen[p.PassportNumber] = struct{}{}
	}
	return nil
}

func (s *BookingService) failure(reason string, err error) error {
	metrics.IncBookingFailure(reason)
	return err
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		Reference:  booking.Reference,
		AccountID:  booking.AccountID,
		FlightID:   booking.FlightID,
		FareCode:   booking.FareCode,
		TotalPrice: booking.TotalPrice,
		Status:     booking.Status,
		Passengers: len(booking.Passengers),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newReference generates a six-character booking reference. Ambiguous
// characters are excluded; uniqueness is enforced by the store.
func newReference() string {
	buf := make([]byte, 6)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return string(buf)
}
