package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/domain"
	"skyfare/internal/events"
	"skyfare/internal/metrics"
	"skyfare/internal/models"

	"github.com/rs/zerolog"
)

// SeatPricer is the slice of the pricing engine the seat flow needs.
type SeatPricer interface {
	ComputeSeatPrice(ctx context.Context, seatID, flightID int64) (*float64, error)
}

type SeatService struct {
	repo     domain.Repository
	pricer   SeatPricer
	holds    domain.SeatHolder
	holdTTL  time.Duration
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewSeatService(repo domain.Repository, pricer SeatPricer, holds domain.SeatHolder, holdTTL time.Duration, eventBus domain.EventPublisher, logger *zerolog.Logger) *SeatService {
	if holdTTL <= 0 {
		holdTTL = 2 * time.Minute
	}
	return &SeatService{
		repo:     repo,
		pricer:   pricer,
		holds:    holds,
		holdTTL:  holdTTL,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock pins the service clock for tests.
func (s *SeatService) SetClock(now func() time.Time) {
	s.now = now
}

// SeatAssignment is the outcome of a successful claim. Price is nil for
// seats that carry no surcharge.
type SeatAssignment struct {
	BookingID   int64       `json:"booking_id"`
	PassengerID int64       `json:"passenger_id"`
	Seat        models.Seat `json:"seat"`
	Price       *float64    `json:"price,omitempty"`
}

// AssignSeat claims a seat for a passenger of a booking. Validation runs
// in a fixed order: booking and authorization, then flight state, then
// seat fit, then the exclusive claim. The claim itself is settled by the
// store; the advisory hold only narrows contention ahead of it.
func (s *SeatService) AssignSeat(ctx context.Context, identity models.Identity, reference string, passengerID, seatID int64) (*SeatAssignment, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !identity.CanManage(booking.AccountID) {
		return nil, fmt.Errorf("%w: booking %s", database.ErrUnauthorized, reference)
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: booking %s is cancelled", database.ErrInvalidInput, reference)
	}

	flight, err := s.repo.GetFlight(ctx, booking.FlightID)
	if err != nil {
		return nil, err
	}
	if !flight.Bookable(s.now()) {
		return nil, fmt.Errorf("%w: flight %s is %s", database.ErrFlightNotBookable, flight.Number, flight.Status)
	}

	seat, err := s.repo.GetSeat(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if seat.AircraftID != flight.AircraftID {
		return nil, fmt.Errorf("%w: seat %s does not exist on flight %s", database.ErrInvalidInput, seat.Number, flight.Number)
	}

	price, err := s.pricer.ComputeSeatPrice(ctx, seatID, booking.FlightID)
	if err != nil {
		return nil, err
	}

	held := false
	if s.holds != nil {
		ok, err := s.holds.AcquireSeatHold(ctx, booking.FlightID, seatID, s.holdTTL)
		if err != nil {
			s.logger.Warn().Err(err).Int64("seat_id", seatID).Msg("seat hold unavailable, relying on store claim")
		} else if !ok {
			metrics.IncSeatConflict()
			return nil, fmt.Errorf("%w: seat %s is held by another request", database.ErrSeatConflict, seat.Number)
		} else {
			held = true
		}
	}

	if err := s.repo.AssignSeat(ctx, booking.ID, passengerID, seat); err != nil {
		if held {
			s.releaseHold(ctx, booking.FlightID, seatID)
		}
		if errors.Is(err, database.ErrSeatConflict) {
			metrics.IncSeatConflict()
		}
		return nil, err
	}
	if held {
		// The store row is the authority now; the hold has done its job.
		s.releaseHold(ctx, booking.FlightID, seatID)
	}

	metrics.IncSeatAssignment()
	s.publishSeatEvent(events.EventSeatAssigned, booking, passengerID, seat)

	return &SeatAssignment{
		BookingID:   booking.ID,
		PassengerID: passengerID,
		Seat:        *seat,
		Price:       price,
	}, nil
}

// ReleaseSeat clears a passenger's seat assignment. Releasing a passenger
// with no seat succeeds.
func (s *SeatService) ReleaseSeat(ctx context.Context, identity models.Identity, reference string, passengerID int64) error {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return err
	}
	if !identity.CanManage(booking.AccountID) {
		return fmt.Errorf("%w: booking %s", database.ErrUnauthorized, reference)
	}

	flight, err := s.repo.GetFlight(ctx, booking.FlightID)
	if err != nil {
		return err
	}
	if !flight.Bookable(s.now()) {
		return fmt.Errorf("%w: flight %s is %s", database.ErrFlightNotBookable, flight.Number, flight.Status)
	}

	var released models.Seat
	for _, p := range booking.Passengers {
		if p.PassengerID == passengerID && p.SeatID != nil {
			released = models.Seat{ID: *p.SeatID, Number: p.SeatNumber}
		}
	}

	if err := s.repo.ReleaseSeat(ctx, booking.ID, passengerID); err != nil {
		return err
	}

	if released.ID != 0 {
		s.releaseHold(ctx, booking.FlightID, released.ID)
		s.publishSeatEvent(events.EventSeatReleased, booking, passengerID, &released)
	}
	return nil
}

func (s *SeatService) releaseHold(ctx context.Context, flightID, seatID int64) {
	if s.holds == nil {
		return
	}
	if err := s.holds.ReleaseSeatHold(ctx, flightID, seatID); err != nil {
		s.logger.Warn().Err(err).Int64("seat_id", seatID).Msg("seat hold release failed")
	}
}

func (s *SeatService) publishSeatEvent(eventType string, booking *models.Booking, passengerID int64, seat *models.Seat) {
	if s.eventBus == nil {
		return
	}
	payload := events.SeatEventPayload{
		BookingID:   booking.ID,
		PassengerID: passengerID,
		FlightID:    booking.FlightID,
		SeatID:      seat.ID,
		SeatNumber:  seat.Number,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
