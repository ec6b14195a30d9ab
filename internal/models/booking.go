package models

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is the header of a booking graph. TotalPrice is snapshotted at
// creation time and never recomputed from live state.
type Booking struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"`
	AccountID  int64     `json:"account_id"`
	FlightID   int64     `json:"flight_id"`
	FareCode   string    `json:"fare_code"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`

	Passengers  []BookingPassenger `json:"passengers,omitempty"`
	Ancillaries []AncillarySale    `json:"ancillaries,omitempty"`
}

// Passenger is a natural person profile owned by an account, reusable
// across bookings and matched by passport number.
type Passenger struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PassportNumber string    `json:"passport_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookingPassenger links a passenger to a booking and carries the optional
// seat assignment. The (flight, seat) pair is the contended resource.
type BookingPassenger struct {
	ID          int64  `json:"id"`
	BookingID   int64  `json:"booking_id"`
	PassengerID int64  `json:"passenger_id"`
	FlightID    int64  `json:"flight_id"`
	SeatID      *int64 `json:"seat_id,omitempty"`
	SeatNumber  string `json:"seat_number,omitempty"`

	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	PassportNumber string `json:"passport_number,omitempty"`
}

// AncillarySale is a priced line item with the unit price snapshotted from
// the catalog at time of sale.
type AncillarySale struct {
	ID        int64   `json:"id"`
	BookingID int64   `json:"booking_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
}

// PricingOffer is a best-effort log entry for every computed base fare.
type PricingOffer struct {
	ID        int64     `json:"id"`
	FlightID  int64     `json:"flight_id"`
	FareCode  string    `json:"fare_code"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
