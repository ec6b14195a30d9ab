package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skyfare/internal/models"
)

// AssignSeat claims a seat for one passenger of a booking. The holder check
// and the claiming write run in one transaction, and the partial unique
// index on (flight_id, seat_id) catches any writer that slips past the
// check, so of two simultaneous claims exactly one commits.
//
// Re-assigning the seat the passenger already holds is a no-op success.
func (db *DB) AssignSeat(ctx context.Context, bookingID, passengerID int64, seat *models.Seat) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seat transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bpID, flightID int64
	var currentSeat sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT id, flight_id, seat_id FROM booking_passengers WHERE booking_id = ? AND passenger_id = ?`,
		bookingID, passengerID).Scan(&bpID, &flightID, &currentSeat)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up booking passenger: %w", err)
	}

	if currentSeat.Valid && currentSeat.Int64 == seat.ID {
		return tx.Commit()
	}

	var holder int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM booking_passengers WHERE flight_id = ? AND seat_id = ?`,
		flightID, seat.ID).Scan(&holder)
	if err == nil && holder != bpID {
		return ErrSeatConflict
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check seat holder: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE booking_passengers SET seat_id = ?, seat_number = ? WHERE id = ?`,
		seat.ID, seat.Number, bpID)
	if isUniqueViolation(err) {
		return ErrSeatConflict
	}
	if err != nil {
		return fmt.Errorf("claim seat: %w", err)
	}

	return tx.Commit()
}

// ReleaseSeat clears the seat assignment for one passenger of a booking.
// Releasing an already-unassigned seat succeeds silently.
func (db *DB) ReleaseSeat(ctx context.Context, bookingID, passengerID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE booking_passengers SET seat_id = NULL, seat_number = '' WHERE booking_id = ? AND passenger_id = ?`,
		bookingID, passengerID)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSeatAssignments returns the live seat -> passenger map for a flight.
func (db *DB) GetSeatAssignments(ctx context.Context, flightID int64) (map[int64]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT seat_id, passenger_id FROM booking_passengers WHERE flight_id = ? AND seat_id IS NOT NULL`,
		flightID)
	if err != nil {
		return nil, fmt.Errorf("get seat assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[int64]int64)
	for rows.Next() {
		var seatID, passengerID int64
		if err := rows.Scan(&seatID, &passengerID); err != nil {
			return nil, fmt.Errorf("scan seat assignment: %w", err)
		}
		assignments[seatID] = passengerID
	}
	return assignments, rows.Err()
}
