package models

import "time"

const (
	FlightStatusScheduled = "scheduled"
	FlightStatusDeparted  = "departed"
	FlightStatusArrived   = "arrived"
	FlightStatusCancelled = "cancelled"
)

const (
	CabinEconomy        = "economy"
	CabinPremiumEconomy = "premium_economy"
	CabinBusiness       = "business"
	CabinFirst          = "first"
)

// FlightInstance is one scheduled operation of a route on a date.
// Capacity is denormalized from the assigned aircraft configuration.
type FlightInstance struct {
	ID          int64     `yaml:"id" json:"id"`
	Number      string    `yaml:"number" json:"number"`
	Origin      string    `yaml:"origin" json:"origin"`
	Destination string    `yaml:"destination" json:"destination"`
	Departure   time.Time `yaml:"departure" json:"departure"`
	Arrival     time.Time `yaml:"arrival" json:"arrival"`
	Status      string    `yaml:"status" json:"status"`
	AircraftID  int64     `yaml:"aircraft_id" json:"aircraft_id"`
	Capacity    int64     `yaml:"capacity" json:"capacity"`
	DistanceKM  float64   `yaml:"distance_km" json:"distance_km"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}

// Bookable reports whether seat and booking mutations are allowed:
// the flight must still be scheduled and not yet departed.
func (f *FlightInstance) Bookable(now time.Time) bool {
	return f.Status == FlightStatusScheduled && f.Departure.After(now)
}

// Aircraft is a physical airframe; seats belong to it, not to a flight.
type Aircraft struct {
	ID           int64  `yaml:"id" json:"id"`
	Registration string `yaml:"registration" json:"registration"`
	TypeName     string `yaml:"type_name" json:"type_name"`
	Seats        []Seat `yaml:"seats" json:"-"`
}

// Seat is a physical seat on an aircraft. Occupancy is flight-scoped
// through BookingPassenger, never stored here.
type Seat struct {
	ID         int64  `yaml:"id" json:"id"`
	AircraftID int64  `yaml:"aircraft_id" json:"aircraft_id"`
	Number     string `yaml:"number" json:"number"`
	Row        int64  `yaml:"row" json:"row"`
	CabinClass string `yaml:"cabin_class" json:"cabin_class"`
	Window     bool   `yaml:"window" json:"window"`
	ExitRow    bool   `yaml:"exit_row" json:"exit_row"`
}
