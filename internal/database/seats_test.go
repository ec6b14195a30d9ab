package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"skyfare/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignSeat(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	booking := createTestBooking(t, db, "REF001", 1, nil)
	passengerID := booking.Passengers[0].PassengerID

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, seat))

	reloaded, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Passengers[0].SeatID)
	assert.Equal(t, seat.ID, *reloaded.Passengers[0].SeatID)
	assert.Equal(t, "12A", reloaded.Passengers[0].SeatNumber)
}

func TestAssignSeat_Idempotent(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	booking := createTestBooking(t, db, "REF001", 1, nil)
	passengerID := booking.Passengers[0].PassengerID

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, seat))
	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, seat))

	assignments, err := db.GetSeatAssignments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestAssignSeat_Conflict(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	first := createTestBooking(t, db, "REF001", 1, nil)
	second := createTestBooking(t, db, "REF002", 1, nil)

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, db.AssignSeat(ctx, first.ID, first.Passengers[0].PassengerID, seat))

	err = db.AssignSeat(ctx, second.ID, second.Passengers[0].PassengerID, seat)
	assert.ErrorIs(t, err, ErrSeatConflict)

	// The loser keeps no assignment.
	reloaded, err := db.GetBooking(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Passengers[0].SeatID)
}

func TestAssignSeat_Reseat(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	booking := createTestBooking(t, db, "REF001", 1, nil)
	passengerID := booking.Passengers[0].PassengerID

	window, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)
	aisle, err := db.GetSeat(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, window))
	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, aisle))

	assignments, err := db.GetSeatAssignments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, passengerID, assignments[aisle.ID])
}

func TestAssignSeat_UnknownPassenger(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	booking := createTestBooking(t, db, "REF001", 1, nil)

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)

	err = db.AssignSeat(ctx, booking.ID, 9999, seat)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseSeat(t *testing.T) {
	db := setupSeededDB(t)
	defer db.Close()

	ctx := context.Background()
	booking := createTestBooking(t, db, "REF001", 1, nil)
	passengerID := booking.Passengers[0].PassengerID

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, db.AssignSeat(ctx, booking.ID, passengerID, seat))

	require.NoError(t, db.ReleaseSeat(ctx, booking.ID, passengerID))

	// Releasing an unassigned seat still succeeds.
	require.NoError(t, db.ReleaseSeat(ctx, booking.ID, passengerID))

	// Unknown passenger is an error.
	err = db.ReleaseSeat(ctx, booking.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentSeatClaims_ExactlyOneWins(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	catalog := testCatalog()
	catalog.Flights[0].Capacity = 50
	require.NoError(t, db.SeedCatalog(ctx, catalog))

	seat, err := db.GetSeat(ctx, 2)
	require.NoError(t, err)

	const numGoroutines = 10

	type claim struct {
		bookingID   int64
		passengerID int64
	}
	claims := make([]claim, 0, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		booking := &models.Booking{
			Reference: fmt.Sprintf("REF%03d", i),
			AccountID: 1,
			FlightID:  1,
			FareCode:  "Y-BASIC",
		}
		created, err := db.CreateBookingGraph(ctx, booking, []models.Passenger{
			{FirstName: "Pax", LastName: "Racer", PassportNumber: fmt.Sprintf("R%07d", i)},
		}, nil)
		require.NoError(t, err)
		claims = append(claims, claim{bookingID: created.ID, passengerID: created.Passengers[0].PassengerID})
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for _, c := range claims {
		go func(c claim) {
			defer wg.Done()
			results <- db.AssignSeat(ctx, c.bookingID, c.passengerID, seat)
		}(c)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrSeatConflict)
		}
	}
	assert.Equal(t, 1, successCount, "exactly one claim should win the seat")

	assignments, err := db.GetSeatAssignments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}
