package pricing

import "skyfare/internal/models"

// Business constants, kept as explicit tables rather than scattered
// conditionals. Several published prices depend on these exact values,
// so they are fixed code, not configurable data.

// Fare-class multipliers by cabin class. Unmatched or deep-discount
// cabins price at the base value.
var fareClassMultipliers = map[string]float64{
	models.CabinFirst:          4.0,
	models.CabinBusiness:       2.5,
	models.CabinPremiumEconomy: 1.5,
	models.CabinEconomy:        1.2,
}

// FareClassMultiplier returns the multiplier for a cabin class,
// defaulting to 1.0.
func FareClassMultiplier(cabinClass string) float64 {
	if m, ok := fareClassMultipliers[cabinClass]; ok {
		return m
	}
	return 1.0
}

// Occupancy load thresholds and multipliers.
const (
	occupancyHighThreshold = 0.90
	occupancyMidThreshold  = 0.75
	occupancyHighFactor    = 2.0
	occupancyMidFactor     = 1.4
)

// OccupancyMultiplier scales a price by how full the flight is.
// Unknown capacity (zero) skips the step entirely.
func OccupancyMultiplier(occupied, capacity int64) float64 {
	if capacity <= 0 {
		return 1.0
	}
	load := float64(occupied) / float64(capacity)
	switch {
	case load > occupancyHighThreshold:
		return occupancyHighFactor
	case load > occupancyMidThreshold:
		return occupancyMidFactor
	default:
		return 1.0
	}
}

// Seat surcharges. Business and first cabin seats are free; the front
// of economy is every row ahead of row 30.
const (
	surchargeExitRow        = 30.0
	surchargePremiumEconomy = 20.0
	surchargeFrontEconomy   = 15.0
	frontEconomyRowLimit    = 30

	lastMinuteDays   = 7
	lastMinuteFactor = 1.5
)

// seatSurcharge returns the base surcharge for a seat, or 0 when the seat
// is free. The ok result distinguishes "free premium cabin seat" (no price
// at all) from "zero surcharge".
func seatSurcharge(seat *models.Seat) (float64, bool) {
	switch seat.CabinClass {
	case models.CabinBusiness, models.CabinFirst:
		return 0, false
	}
	if seat.ExitRow {
		return surchargeExitRow, true
	}
	if seat.CabinClass == models.CabinPremiumEconomy {
		return surchargePremiumEconomy, true
	}
	if seat.Row < frontEconomyRowLimit {
		return surchargeFrontEconomy, true
	}
	return 0, false
}

// Contextual-rule fallback when no rule matches the flight's context.
const fallbackRatePerKM = 0.11
