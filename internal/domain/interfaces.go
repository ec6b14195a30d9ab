package domain

import (
	"context"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/models"
)

// Repository is the store surface the services depend on. The sqlite
// store implements all of it; tests substitute mocks.
type Repository interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetFlight(ctx context.Context, id int64) (*models.FlightInstance, error)
	GetRouteDistance(ctx context.Context, flightID int64) (float64, error)
	GetFareCode(ctx context.Context, code string) (*models.FareCode, error)
	GetSeat(ctx context.Context, id int64) (*models.Seat, error)
	GetSeatsByAircraft(ctx context.Context, aircraftID int64) ([]models.Seat, error)
	GetAncillaryProduct(ctx context.Context, id int64) (*models.AncillaryProduct, error)
	GetPricingRules(ctx context.Context, dimension string) ([]models.PricingRule, error)
	RecordPricingOffer(ctx context.Context, offer *models.PricingOffer) error

	ConfirmedOccupantCount(ctx context.Context, flightID int64) (int64, error)
	CreateBookingGraph(ctx context.Context, booking *models.Booking, passengers []models.Passenger, lines []database.AncillaryLine) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error

	AssignSeat(ctx context.Context, bookingID, passengerID int64, seat *models.Seat) error
	ReleaseSeat(ctx context.Context, bookingID, passengerID int64) error
	GetSeatAssignments(ctx context.Context, flightID int64) (map[int64]int64, error)

	CreateTicketTask(ctx context.Context, task *models.TicketTask) error
}

// TicketQueue schedules ticket issuance for a confirmed booking.
type TicketQueue interface {
	EnqueueTicketIssue(ctx context.Context, booking *models.Booking) error
}

// EventPublisher fans booking and seat events out to subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SeatHolder is the advisory short-TTL hold on a (flight, seat) pair.
// It narrows contention ahead of the store transaction; the store's
// uniqueness constraint remains the guarantee.
type SeatHolder interface {
	AcquireSeatHold(ctx context.Context, flightID, seatID int64, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID, seatID int64) error
}
