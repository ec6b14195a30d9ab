package service

import (
	"context"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/models"
	"skyfare/internal/pricing"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *mockRepo) GetFlight(ctx context.Context, id int64) (*models.FlightInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlightInstance), args.Error(1)
}
func (m *mockRepo) GetRouteDistance(ctx context.Context, flightID int64) (float64, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(float64), args.Error(1)
}
func (m *mockRepo) GetFareCode(ctx context.Context, code string) (*models.FareCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FareCode), args.Error(1)
}
func (m *mockRepo) GetSeat(ctx context.Context, id int64) (*models.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}
func (m *mockRepo) GetSeatsByAircraft(ctx context.Context, aircraftID int64) ([]models.Seat, error) {
	args := m.Called(ctx, aircraftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Seat), args.Error(1)
}
func (m *mockRepo) GetAncillaryProduct(ctx context.Context, id int64) (*models.AncillaryProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AncillaryProduct), args.Error(1)
}
func (m *mockRepo) GetPricingRules(ctx context.Context, dimension string) ([]models.PricingRule, error) {
	args := m.Called(ctx, dimension)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PricingRule), args.Error(1)
}
func (m *mockRepo) RecordPricingOffer(ctx context.Context, offer *models.PricingOffer) error {
	return m.Called(ctx, offer).Error(0)
}
func (m *mockRepo) ConfirmedOccupantCount(ctx context.Context, flightID int64) (int64, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockRepo) CreateBookingGraph(ctx context.Context, booking *models.Booking, passengers []models.Passenger, lines []database.AncillaryLine) (*models.Booking, error) {
	args := m.Called(ctx, booking, passengers, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	return m.Called(ctx, id, fromVersion, status).Error(0)
}
func (m *mockRepo) AssignSeat(ctx context.Context, bookingID, passengerID int64, seat *models.Seat) error {
	return m.Called(ctx, bookingID, passengerID, seat).Error(0)
}
func (m *mockRepo) ReleaseSeat(ctx context.Context, bookingID, passengerID int64) error {
	return m.Called(ctx, bookingID, passengerID).Error(0)
}
func (m *mockRepo) GetSeatAssignments(ctx context.Context, flightID int64) (map[int64]int64, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}
func (m *mockRepo) CreateTicketTask(ctx context.Context, task *models.TicketTask) error {
	return m.Called(ctx, task).Error(0)
}

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) ComputeBookingTotal(ctx context.Context, req pricing.TotalRequest) (float64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(float64), args.Error(1)
}

type mockSeatPricer struct {
	mock.Mock
}

func (m *mockSeatPricer) ComputeSeatPrice(ctx context.Context, seatID, flightID int64) (*float64, error) {
	args := m.Called(ctx, seatID, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*float64), args.Error(1)
}

type mockTickets struct {
	mock.Mock
}

func (m *mockTickets) EnqueueTicketIssue(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

type mockSeatHolder struct {
	mock.Mock
}

func (m *mockSeatHolder) AcquireSeatHold(ctx context.Context, flightID, seatID int64, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, seatID, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *mockSeatHolder) ReleaseSeatHold(ctx context.Context, flightID, seatID int64) error {
	return m.Called(ctx, flightID, seatID).Error(0)
}
