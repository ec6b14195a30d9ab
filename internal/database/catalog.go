package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skyfare/internal/models"
)

// Catalog is the reference-data bundle seeded at startup. Admin CRUD for
// this data lives outside the core; the store only reads it back.
type Catalog struct {
	Accounts  []models.Account          `yaml:"accounts"`
	Aircraft  []models.Aircraft         `yaml:"aircraft"`
	Flights   []models.FlightInstance   `yaml:"flights"`
	FareCodes []models.FareCode         `yaml:"fare_codes"`
	Rules     []models.PricingRule      `yaml:"pricing_rules"`
	Products  []models.AncillaryProduct `yaml:"ancillary_products"`
}

// SeedCatalog upserts reference data. Flight capacity defaults to the seat
// count of the assigned aircraft when the catalog leaves it at zero.
func (db *DB) SeedCatalog(ctx context.Context, cat *Catalog) error {
	seatCounts := make(map[int64]int64)

	for _, a := range cat.Aircraft {
		_, err := db.ExecContext(ctx,
			`INSERT INTO aircraft (id, registration, type_name) VALUES (?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET registration = excluded.registration, type_name = excluded.type_name`,
			a.ID, a.Registration, a.TypeName)
		if err != nil {
			return fmt.Errorf("seed aircraft %s: %w", a.Registration, err)
		}
		for _, s := range a.Seats {
			_, err := db.ExecContext(ctx,
				`INSERT INTO seats (id, aircraft_id, number, seat_row, cabin_class, is_window, exit_row)
                 VALUES (?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(id) DO UPDATE SET
                    number = excluded.number, seat_row = excluded.seat_row,
                    cabin_class = excluded.cabin_class, is_window = excluded.is_window,
                    exit_row = excluded.exit_row`,
				s.ID, a.ID, s.Number, s.Row, s.CabinClass, s.Window, s.ExitRow)
			if err != nil {
				return fmt.Errorf("seed seat %s on %s: %w", s.Number, a.Registration, err)
			}
		}
		seatCounts[a.ID] = int64(len(a.Seats))
	}

	for _, acc := range cat.Accounts {
		_, err := db.ExecContext(ctx,
			`INSERT INTO accounts (id, email, name, is_active) VALUES (?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name, is_active = excluded.is_active`,
			acc.ID, acc.Email, acc.Name, acc.IsActive)
		if err != nil {
			return fmt.Errorf("seed account %s: %w", acc.Email, err)
		}
	}

	for _, f := range cat.Flights {
		capacity := f.Capacity
		if capacity == 0 {
			capacity = seatCounts[f.AircraftID]
		}
		status := f.Status
		if status == "" {
			status = models.FlightStatusScheduled
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO flights (id, number, origin, destination, departure, arrival, status, aircraft_id, capacity, distance_km)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                number = excluded.number, origin = excluded.origin, destination = excluded.destination,
                departure = excluded.departure, arrival = excluded.arrival, status = excluded.status,
                aircraft_id = excluded.aircraft_id, capacity = excluded.capacity,
                distance_km = excluded.distance_km, updated_at = CURRENT_TIMESTAMP`,
			f.ID, f.Number, f.Origin, f.Destination, f.Departure, f.Arrival, status, f.AircraftID, capacity, f.DistanceKM)
		if err != nil {
			return fmt.Errorf("seed flight %s: %w", f.Number, err)
		}
	}

	for _, fc := range cat.FareCodes {
		_, err := db.ExecContext(ctx,
			`INSERT INTO fare_codes (code, cabin_class, refundable, changeable, baggage_kg, is_active)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(code) DO UPDATE SET
                cabin_class = excluded.cabin_class, refundable = excluded.refundable,
                changeable = excluded.changeable, baggage_kg = excluded.baggage_kg,
                is_active = excluded.is_active`,
			fc.Code, fc.CabinClass, fc.Refundable, fc.Changeable, fc.BaggageKG, fc.IsActive)
		if err != nil {
			return fmt.Errorf("seed fare code %s: %w", fc.Code, err)
		}
	}

	for _, r := range cat.Rules {
		_, err := db.ExecContext(ctx,
			`INSERT INTO pricing_rules (id, dimension, bucket, base_value) VALUES (?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                dimension = excluded.dimension, bucket = excluded.bucket, base_value = excluded.base_value`,
			r.ID, r.Dimension, r.Bucket, r.BaseValue)
		if err != nil {
			return fmt.Errorf("seed pricing rule %d: %w", r.ID, err)
		}
	}

	for _, p := range cat.Products {
		_, err := db.ExecContext(ctx,
			`INSERT INTO ancillary_products (id, name, unit_price, is_active) VALUES (?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                name = excluded.name, unit_price = excluded.unit_price, is_active = excluded.is_active`,
			p.ID, p.Name, p.UnitPrice, p.IsActive)
		if err != nil {
			return fmt.Errorf("seed ancillary product %s: %w", p.Name, err)
		}
	}

	db.log.Info().
		Int("aircraft", len(cat.Aircraft)).
		Int("flights", len(cat.Flights)).
		Int("fare_codes", len(cat.FareCodes)).
		Int("pricing_rules", len(cat.Rules)).
		Msg("catalog seeded")

	return nil
}

func (db *DB) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var a models.Account
	err := db.QueryRowContext(ctx,
		`SELECT id, email, name, is_active, created_at FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (db *DB) GetFlight(ctx context.Context, id int64) (*models.FlightInstance, error) {
	var f models.FlightInstance
	err := db.QueryRowContext(ctx,
		`SELECT id, number, origin, destination, departure, arrival, status,
		        COALESCE(aircraft_id, 0), capacity, distance_km, created_at, updated_at
         FROM flights WHERE id = ?`, id).
		Scan(&f.ID, &f.Number, &f.Origin, &f.Destination, &f.Departure, &f.Arrival,
			&f.Status, &f.AircraftID, &f.Capacity, &f.DistanceKM, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return &f, nil
}

func (db *DB) GetRouteDistance(ctx context.Context, flightID int64) (float64, error) {
	var km float64
	err := db.QueryRowContext(ctx, `SELECT distance_km FROM flights WHERE id = ?`, flightID).Scan(&km)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get route distance: %w", err)
	}
	return km, nil
}

func (db *DB) SetFlightStatus(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE flights SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set flight status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetFareCode(ctx context.Context, code string) (*models.FareCode, error) {
	var fc models.FareCode
	err := db.QueryRowContext(ctx,
		`SELECT code, cabin_class, refundable, changeable, baggage_kg, is_active
         FROM fare_codes WHERE code = ?`, code).
		Scan(&fc.Code, &fc.CabinClass, &fc.Refundable, &fc.Changeable, &fc.BaggageKG, &fc.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fare code: %w", err)
	}
	return &fc, nil
}

func (db *DB) GetSeat(ctx context.Context, id int64) (*models.Seat, error) {
	var s models.Seat
	err := db.QueryRowContext(ctx,
		`SELECT id, aircraft_id, number, seat_row, cabin_class, is_window, exit_row
         FROM seats WHERE id = ?`, id).
		Scan(&s.ID, &s.AircraftID, &s.Number, &s.Row, &s.CabinClass, &s.Window, &s.ExitRow)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get seat: %w", err)
	}
	return &s, nil
}

func (db *DB) GetSeatsByAircraft(ctx context.Context, aircraftID int64) ([]models.Seat, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, aircraft_id, number, seat_row, cabin_class, is_window, exit_row
         FROM seats WHERE aircraft_id = ? ORDER BY seat_row, number`, aircraftID)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.ID, &s.AircraftID, &s.Number, &s.Row, &s.CabinClass, &s.Window, &s.ExitRow); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (db *DB) GetAncillaryProduct(ctx context.Context, id int64) (*models.AncillaryProduct, error) {
	var p models.AncillaryProduct
	err := db.QueryRowContext(ctx,
		`SELECT id, name, unit_price, is_active FROM ancillary_products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.UnitPrice, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ancillary product: %w", err)
	}
	return &p, nil
}

// GetPricingRules returns all rules for one context dimension.
func (db *DB) GetPricingRules(ctx context.Context, dimension string) ([]models.PricingRule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, dimension, bucket, base_value FROM pricing_rules WHERE dimension = ? ORDER BY bucket`, dimension)
	if err != nil {
		return nil, fmt.Errorf("get pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PricingRule
	for rows.Next() {
		var r models.PricingRule
		if err := rows.Scan(&r.ID, &r.Dimension, &r.Bucket, &r.BaseValue); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// RecordPricingOffer logs a computed fare. Best effort: callers ignore the
// error beyond logging it.
func (db *DB) RecordPricingOffer(ctx context.Context, offer *models.PricingOffer) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO pricing_offers (flight_id, fare_code, price) VALUES (?, ?, ?)`,
		offer.FlightID, offer.FareCode, offer.Price)
	if err != nil {
		return fmt.Errorf("record pricing offer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("pricing offer id: %w", err)
	}
	offer.ID = id
	return nil
}

func (db *DB) CountPricingOffers(ctx context.Context, flightID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pricing_offers WHERE flight_id = ?`, flightID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pricing offers: %w", err)
	}
	return n, nil
}
