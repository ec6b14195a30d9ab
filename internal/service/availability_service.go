package service

import (
	"context"

	"skyfare/internal/domain"
	"skyfare/internal/models"

	"github.com/rs/zerolog"
)

// CapacityReport is the result of an advisory capacity check. It reflects
// a moment in time; the booking transaction recounts before committing.
type CapacityReport struct {
	FlightID  int64 `json:"flight_id"`
	Capacity  int64 `json:"capacity"`
	Occupied  int64 `json:"occupied"`
	Remaining int64 `json:"remaining"`
	Available bool  `json:"available"`
}

// SeatMapEntry is one seat of a flight with its live occupancy.
type SeatMapEntry struct {
	Seat     models.Seat `json:"seat"`
	Occupied bool        `json:"occupied"`
}

type AvailabilityService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewAvailabilityService(repo domain.Repository, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{repo: repo, logger: logger}
}

// CheckCapacity counts confirmed occupants against the flight capacity.
// A zero capacity means the flight is uncapped.
func (s *AvailabilityService) CheckCapacity(ctx context.Context, flightID int64, requested int64) (*CapacityReport, error) {
	flight, err := s.repo.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	occupied, err := s.repo.ConfirmedOccupantCount(ctx, flightID)
	if err != nil {
		return nil, err
	}

	report := &CapacityReport{
		FlightID: flightID,
		Capacity: flight.Capacity,
		Occupied: occupied,
	}
	if flight.Capacity == 0 {
		report.Available = true
		return report, nil
	}

	report.Remaining = flight.Capacity - occupied
	if report.Remaining < 0 {
		report.Remaining = 0
	}
	report.Available = report.Remaining >= requested
	return report, nil
}

// SeatMap lists the flight's seats with their occupancy.
func (s *AvailabilityService) SeatMap(ctx context.Context, flightID int64) ([]SeatMapEntry, error) {
	flight, err := s.repo.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	seats, err := s.repo.GetSeatsByAircraft(ctx, flight.AircraftID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.GetSeatAssignments(ctx, flightID)
	if err != nil {
		return nil, err
	}

	entries := make([]SeatMapEntry, 0, len(seats))
	for _, seat := range seats {
		_, occupied := assignments[seat.ID]
		entries = append(entries, SeatMapEntry{Seat: seat, Occupied: occupied})
	}
	return entries, nil
}
