package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"skyfare/internal/logging"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the transactional store. SQLite serializes writers, which is what
// turns the check-then-act sequences (seat claims, capacity recounts) into
// indivisible steps; the partial unique index on booking_passengers is the
// backstop for seat exclusivity.
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: a second pool connection against :memory: would see
	// an empty database, and a single writer avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	storeLogger := logging.Component(logger, "store")
	storeLogger.Info().Str("path", path).Msg("database initialized")

	return &DB{db: db, log: storeLogger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS aircraft (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            registration TEXT UNIQUE NOT NULL,
            type_name TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS seats (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            aircraft_id INTEGER NOT NULL REFERENCES aircraft(id),
            number TEXT NOT NULL,
            seat_row INTEGER NOT NULL,
            cabin_class TEXT NOT NULL,
            is_window BOOLEAN NOT NULL DEFAULT 0,
            exit_row BOOLEAN NOT NULL DEFAULT 0,
            UNIQUE(aircraft_id, number)
        )`,
		`CREATE TABLE IF NOT EXISTS flights (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            number TEXT NOT NULL,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            departure DATETIME NOT NULL,
            arrival DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'scheduled',
            aircraft_id INTEGER REFERENCES aircraft(id),
            capacity INTEGER NOT NULL DEFAULT 0,
            distance_km REAL NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS fare_codes (
            code TEXT PRIMARY KEY,
            cabin_class TEXT NOT NULL,
            refundable BOOLEAN NOT NULL DEFAULT 0,
            changeable BOOLEAN NOT NULL DEFAULT 0,
            baggage_kg INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS pricing_rules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            dimension TEXT NOT NULL,
            bucket INTEGER NOT NULL,
            base_value REAL NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS ancillary_products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            unit_price REAL NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT UNIQUE NOT NULL,
            account_id INTEGER NOT NULL REFERENCES accounts(id),
            flight_id INTEGER NOT NULL REFERENCES flights(id),
            fare_code TEXT NOT NULL REFERENCES fare_codes(code),
            total_price REAL NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS passengers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            account_id INTEGER NOT NULL REFERENCES accounts(id),
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            passport_number TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(account_id, passport_number)
        )`,
		`CREATE TABLE IF NOT EXISTS booking_passengers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL REFERENCES bookings(id),
            passenger_id INTEGER NOT NULL REFERENCES passengers(id),
            flight_id INTEGER NOT NULL REFERENCES flights(id),
            seat_id INTEGER REFERENCES seats(id),
            seat_number TEXT NOT NULL DEFAULT '',
            UNIQUE(booking_id, passenger_id)
        )`,
		`CREATE TABLE IF NOT EXISTS ancillary_sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL REFERENCES bookings(id),
            product_id INTEGER NOT NULL REFERENCES ancillary_products(id),
            name TEXT NOT NULL,
            unit_price REAL NOT NULL,
            quantity INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS pricing_offers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            flight_id INTEGER NOT NULL,
            fare_code TEXT NOT NULL,
            price REAL NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS ticket_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		// At most one live occupant per (flight, seat). Released seats are
		// NULLed out and leave the index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bp_flight_seat
            ON booking_passengers(flight_id, seat_id) WHERE seat_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_flight ON bookings(flight_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_account ON bookings(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bp_booking ON booking_passengers(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_seats_aircraft ON seats(aircraft_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_queue_status ON ticket_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Path-through helpers so the rest of the package reads like plain sql.

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

// isUniqueViolation reports whether err is a sqlite unique-constraint
// failure, the losing side of a concurrent seat claim.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
