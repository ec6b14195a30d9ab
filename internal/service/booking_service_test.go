package service

import (
	"context"
	"testing"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/models"
	"skyfare/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var serviceTestNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newBookingService(repo *mockRepo, pricer *mockPricer, tickets *mockTickets) *BookingService {
	logger := zerolog.Nop()
	svc := NewBookingService(repo, pricer, nil, tickets, 24*time.Hour, 9, &logger)
	svc.SetClock(func() time.Time { return serviceTestNow })
	return svc
}

func activeAccount(id int64) *models.Account {
	return &models.Account{ID: id, Email: "test@example.com", Name: "Test", IsActive: true}
}

func scheduledFlight() *models.FlightInstance {
	return &models.FlightInstance{
		ID: 1, Number: "SF101", Status: models.FlightStatusScheduled,
		Departure:  serviceTestNow.Add(10 * 24 * time.Hour),
		AircraftID: 1, Capacity: 100,
	}
}

func customerIdentity() models.Identity {
	return models.Identity{AccountID: 1, Roles: []string{models.RoleCustomer}}
}

func validRequest() CreateBookingRequest {
	return CreateBookingRequest{
		FlightID: 1,
		FareCode: "Y-BASIC",
		Passengers: []models.Passenger{
			{FirstName: "Anna", LastName: "Petrova", PassportNumber: "P1234567"},
		},
	}
}

func TestCreateBooking(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(scheduledFlight(), nil)
	repo.On("ConfirmedOccupantCount", mock.Anything, int64(1)).Return(int64(10), nil)
	pricer.On("ComputeBookingTotal", mock.Anything, mock.Anything).Return(240.0, nil)

	created := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, TotalPrice: 240.0, Status: models.BookingStatusPending, Version: 1}
	repo.On("CreateBookingGraph", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.AccountID == 1 && b.TotalPrice == 240.0 && len(b.Reference) == 6
	}), mock.Anything, mock.Anything).Return(created, nil)

	got, err := svc.CreateBooking(context.Background(), customerIdentity(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, created, got)
	repo.AssertExpectations(t)
}

func TestCreateBooking_DepartedFlight(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	flight := scheduledFlight()
	flight.Status = models.FlightStatusDeparted
	flight.Departure = serviceTestNow.Add(-2 * time.Hour)

	repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(flight, nil)

	_, err := svc.CreateBooking(context.Background(), customerIdentity(), validRequest())
	assert.ErrorIs(t, err, database.ErrFlightNotBookable)
	repo.AssertNotCalled(t, "CreateBookingGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_ScheduledButPastDeparture(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	// Status says scheduled but the departure time has passed; the time
	// check is independent of the status flag.
	flight := scheduledFlight()
	flight.Departure = serviceTestNow.Add(-time.Minute)

	repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(flight, nil)

	_, err := svc.CreateBooking(context.Background(), customerIdentity(), validRequest())
	assert.ErrorIs(t, err, database.ErrFlightNotBookable)
}

func TestCreateBooking_InsufficientCapacity(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	flight := scheduledFlight()
	flight.Capacity = 150

	repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(flight, nil)
	repo.On("ConfirmedOccupantCount", mock.Anything, int64(1)).Return(int64(148), nil)

	req := validRequest()
	req.Passengers = []models.Passenger{
		{FirstName: "A", LastName: "One", PassportNumber: "P0000001"},
		{FirstName: "B", LastName: "Two", PassportNumber: "P0000002"},
		{FirstName: "C", LastName: "Three", PassportNumber: "P0000003"},
	}

	_, err := svc.CreateBooking(context.Background(), customerIdentity(), req)
	assert.ErrorIs(t, err, database.ErrInsufficientCapacity)
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		passengers []models.Passenger
	}{
		{"no passengers", nil},
		{"missing passport", []models.Passenger{{FirstName: "A", LastName: "B"}}},
		{"duplicate passport", []models.Passenger{
			{FirstName: "A", LastName: "B", PassportNumber: "P1"},
			{FirstName: "C", LastName: "D", PassportNumber: "P1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			pricer := new(mockPricer)
			svc := newBookingService(repo, pricer, nil)

			repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)

			req := validRequest()
			req.Passengers = tt.passengers

			_, err := svc.CreateBooking(context.Background(), customerIdentity(), req)
			assert.ErrorIs(t, err, database.ErrInvalidInput)
		})
	}
}

func TestCreateBooking_InactiveAccount(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	account := activeAccount(1)
	account.IsActive = false
	repo.On("GetAccount", mock.Anything, int64(1)).Return(account, nil)

	_, err := svc.CreateBooking(context.Background(), customerIdentity(), validRequest())
	assert.ErrorIs(t, err, database.ErrUnauthorized)
}

func TestCreateBooking_PricingFailureAborts(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	repo.On("GetAccount", mock.Anything, int64(1)).Return(activeAccount(1), nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(scheduledFlight(), nil)
	repo.On("ConfirmedOccupantCount", mock.Anything, int64(1)).Return(int64(0), nil)
	pricer.On("ComputeBookingTotal", mock.Anything, mock.Anything).Return(0.0, database.ErrNotFound)

	_, err := svc.CreateBooking(context.Background(), customerIdentity(), validRequest())
	assert.ErrorIs(t, err, database.ErrNotFound)
	repo.AssertNotCalled(t, "CreateBookingGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetBooking_Authorization(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	booking := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 2, Status: models.BookingStatusPending}
	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(booking, nil)

	// Another customer cannot read it.
	_, err := svc.GetBooking(context.Background(), customerIdentity(), "ABC234")
	assert.ErrorIs(t, err, database.ErrUnauthorized)

	// The owner can.
	got, err := svc.GetBooking(context.Background(), models.Identity{AccountID: 2}, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, booking, got)

	// A manager can.
	manager := models.Identity{AccountID: 99, Roles: []string{models.RoleManager}}
	got, err = svc.GetBooking(context.Background(), manager, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, booking, got)
}

func TestSetStatus_ConfirmEnqueuesTickets(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	tickets := new(mockTickets)
	svc := newBookingService(repo, pricer, tickets)

	pending := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusPending, Version: 1}
	confirmed := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusConfirmed, Version: 2}

	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(pending, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(7), int64(1), models.BookingStatusConfirmed).Return(nil)
	repo.On("GetBooking", mock.Anything, int64(7)).Return(confirmed, nil)
	tickets.On("EnqueueTicketIssue", mock.Anything, confirmed).Return(nil)

	got, err := svc.SetStatus(context.Background(), customerIdentity(), "ABC234", models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	tickets.AssertExpectations(t)
}

func TestSetStatus_SameStatusIsNoOp(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	confirmed := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, Status: models.BookingStatusConfirmed, Version: 2}
	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(confirmed, nil)

	got, err := svc.SetStatus(context.Background(), customerIdentity(), "ABC234", models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, confirmed, got)
	repo.AssertNotCalled(t, "UpdateBookingStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatus_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"cancelled is terminal", models.BookingStatusCancelled, models.BookingStatusConfirmed},
		{"confirmed cannot go pending", models.BookingStatusConfirmed, models.BookingStatusPending},
		{"unknown target", models.BookingStatusPending, "boarded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			pricer := new(mockPricer)
			svc := newBookingService(repo, pricer, nil)

			booking := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, Status: tt.from, Version: 1}
			repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(booking, nil)

			_, err := svc.SetStatus(context.Background(), customerIdentity(), "ABC234", tt.to)
			assert.ErrorIs(t, err, database.ErrInvalidTransition)
		})
	}
}

func TestSetStatus_CancellationWindow(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	booking := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusConfirmed, Version: 2}
	flight := scheduledFlight()
	flight.Departure = serviceTestNow.Add(6 * time.Hour)

	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(booking, nil)
	repo.On("GetFlight", mock.Anything, int64(1)).Return(flight, nil)

	_, err := svc.SetStatus(context.Background(), customerIdentity(), "ABC234", models.BookingStatusCancelled)
	assert.ErrorIs(t, err, database.ErrCancellationWindow)
}

func TestSetStatus_ManagerBypassesCancellationWindow(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	booking := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusConfirmed, Version: 2}
	cancelled := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusCancelled, Version: 3}

	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(booking, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(7), int64(2), models.BookingStatusCancelled).Return(nil)
	repo.On("GetBooking", mock.Anything, int64(7)).Return(cancelled, nil)

	manager := models.Identity{AccountID: 99, Roles: []string{models.RoleManager}}
	got, err := svc.SetStatus(context.Background(), manager, "ABC234", models.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
	repo.AssertNotCalled(t, "GetFlight", mock.Anything, mock.Anything)
}

func TestSetStatus_ConcurrentModification(t *testing.T) {
	repo := new(mockRepo)
	pricer := new(mockPricer)
	svc := newBookingService(repo, pricer, nil)

	pending := &models.Booking{ID: 7, Reference: "ABC234", AccountID: 1, FlightID: 1, Status: models.BookingStatusPending, Version: 1}
	repo.On("GetBookingByReference", mock.Anything, "ABC234").Return(pending, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(7), int64(1), models.BookingStatusConfirmed).Return(database.ErrConcurrentModification)

	_, err := svc.SetStatus(context.Background(), customerIdentity(), "ABC234", models.BookingStatusConfirmed)
	assert.ErrorIs(t, err, database.ErrConcurrentModification)
}

func TestNewReference(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ref := newReference()
		assert.Len(t, ref, 6)
		for _, c := range ref {
			assert.Contains(t, referenceAlphabet, string(c))
		}
		seen[ref] = struct{}{}
	}
	// 32^6 combinations: collisions across 100 draws mean a broken generator.
	assert.Greater(t, len(seen), 95)
}

var _ Pricer = (*pricing.Engine)(nil)
