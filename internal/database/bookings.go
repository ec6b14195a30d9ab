package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skyfare/internal/models"
)

// AncillaryLine is a requested ancillary purchase. The unit price is never
// taken from the caller; it is snapshotted from the catalog inside the
// booking transaction.
type AncillaryLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// ConfirmedOccupantCount counts passengers on non-cancelled bookings for a
// flight. This is the advisory read; CreateBookingGraph repeats it inside
// the write transaction where it is authoritative.
func (db *DB) ConfirmedOccupantCount(ctx context.Context, flightID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_passengers bp
         JOIN bookings b ON b.id = bp.booking_id
         WHERE bp.flight_id = ? AND b.status != ?`,
		flightID, models.BookingStatusCancelled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count occupants: %w", err)
	}
	return count, nil
}

// CreateBookingGraph persists the whole booking graph in one transaction:
// header, passenger profiles (created or reused by account + passport),
// booking-passenger links, and ancillary sales re-validated against the
// live catalog. Any failure rolls the whole graph back. On success the
// persisted graph is reloaded and returned, so identifiers reflect what
// was durably stored.
func (db *DB) CreateBookingGraph(ctx context.Context, booking *models.Booking, passengers []models.Passenger, lines []AncillaryLine) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Commit-time capacity recount. The advisory pre-check outside the
	// transaction narrows the common case; this one decides.
	var capacity, occupied int64
	err = tx.QueryRowContext(ctx, `SELECT capacity FROM flights WHERE id = ?`, booking.FlightID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read flight capacity in tx: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_passengers bp
         JOIN bookings b ON b.id = bp.booking_id
         WHERE bp.flight_id = ? AND b.status != ?`,
		booking.FlightID, models.BookingStatusCancelled).Scan(&occupied)
	if err != nil {
		return nil, fmt.Errorf("count occupants in tx: %w", err)
	}
	if capacity > 0 && occupied+int64(len(passengers)) > capacity {
		return nil, ErrInsufficientCapacity
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (reference, account_id, flight_id, fare_code, total_price, status, created_at, updated_at, version)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		booking.Reference, booking.AccountID, booking.FlightID, booking.FareCode,
		booking.TotalPrice, models.BookingStatusPending, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert booking header: %w", err)
	}
	bookingID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("booking header id: %w", err)
	}

	for _, p := range passengers {
		var passengerID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM passengers WHERE account_id = ? AND passport_number = ?`,
			booking.AccountID, p.PassportNumber).Scan(&passengerID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO passengers (account_id, first_name, last_name, passport_number, created_at)
                 VALUES (?, ?, ?, ?, ?)`,
				booking.AccountID, p.FirstName, p.LastName, p.PassportNumber, now)
			if err != nil {
				return nil, fmt.Errorf("insert passenger %s: %w", p.PassportNumber, err)
			}
			passengerID, err = res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("passenger id: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("look up passenger %s: %w", p.PassportNumber, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO booking_passengers (booking_id, passenger_id, flight_id) VALUES (?, ?, ?)`,
			bookingID, passengerID, booking.FlightID)
		if err != nil {
			return nil, fmt.Errorf("link passenger %d: %w", passengerID, err)
		}
	}

	for _, line := range lines {
		var name string
		var unitPrice float64
		var active bool
		err := tx.QueryRowContext(ctx,
			`SELECT name, unit_price, is_active FROM ancillary_products WHERE id = ?`,
			line.ProductID).Scan(&name, &unitPrice, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			// The pre-validation total may skip vanished products; the
			// committed path must not silently drop a paid-for item.
			return nil, ErrAncillaryUnavailable
		}
		if err != nil {
			return nil, fmt.Errorf("validate ancillary %d: %w", line.ProductID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ancillary_sales (booking_id, product_id, name, unit_price, quantity)
             VALUES (?, ?, ?, ?, ?)`,
			bookingID, line.ProductID, name, unitPrice, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("insert ancillary sale: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking graph: %w", err)
	}

	return db.GetBookingByReference(ctx, booking.Reference)
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, `WHERE id = ?`, id)
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return db.getBooking(ctx, `WHERE reference = ?`, reference)
}

func (db *DB) getBooking(ctx context.Context, where string, arg any) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT id, reference, account_id, flight_id, fare_code, total_price, status, created_at, updated_at, version
              FROM bookings ` + where
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&b.ID, &b.Reference, &b.AccountID, &b.FlightID, &b.FareCode,
		&b.TotalPrice, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if err := db.loadBookingGraph(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) loadBookingGraph(ctx context.Context, b *models.Booking) error {
	rows, err := db.QueryContext(ctx,
		`SELECT bp.id, bp.booking_id, bp.passenger_id, bp.flight_id, bp.seat_id, bp.seat_number,
                p.first_name, p.last_name, p.passport_number
         FROM booking_passengers bp
         JOIN passengers p ON p.id = bp.passenger_id
         WHERE bp.booking_id = ? ORDER BY bp.id`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking passengers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bp models.BookingPassenger
		var seatID sql.NullInt64
		if err := rows.Scan(&bp.ID, &bp.BookingID, &bp.PassengerID, &bp.FlightID, &seatID, &bp.SeatNumber,
			&bp.FirstName, &bp.LastName, &bp.PassportNumber); err != nil {
			return fmt.Errorf("scan booking passenger: %w", err)
		}
		if seatID.Valid {
			id := seatID.Int64
			bp.SeatID = &id
		}
		b.Passengers = append(b.Passengers, bp)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	saleRows, err := db.QueryContext(ctx,
		`SELECT id, booking_id, product_id, name, unit_price, quantity
         FROM ancillary_sales WHERE booking_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return fmt.Errorf("load ancillary sales: %w", err)
	}
	defer saleRows.Close()

	for saleRows.Next() {
		var s models.AncillarySale
		if err := saleRows.Scan(&s.ID, &s.BookingID, &s.ProductID, &s.Name, &s.UnitPrice, &s.Quantity); err != nil {
			return fmt.Errorf("scan ancillary sale: %w", err)
		}
		b.Ancillaries = append(b.Ancillaries, s)
	}
	return saleRows.Err()
}

// UpdateBookingStatusWithVersion applies an optimistic status transition.
// Cancellation also releases the booking's seat assignments in the same
// transaction, so the seats become claimable again atomically.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if status == models.BookingStatusCancelled {
		_, err = tx.ExecContext(ctx,
			`UPDATE booking_passengers SET seat_id = NULL, seat_number = '' WHERE booking_id = ?`, id)
		if err != nil {
			return fmt.Errorf("release seats on cancellation: %w", err)
		}
	}

	return tx.Commit()
}
