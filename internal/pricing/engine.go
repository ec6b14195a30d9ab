package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/logging"
	"skyfare/internal/metrics"
	"skyfare/internal/models"

	"github.com/rs/zerolog"
)

// Catalog is the read-only reference data the engine prices against.
type Catalog interface {
	GetFlight(ctx context.Context, id int64) (*models.FlightInstance, error)
	GetRouteDistance(ctx context.Context, flightID int64) (float64, error)
	GetFareCode(ctx context.Context, code string) (*models.FareCode, error)
	GetSeat(ctx context.Context, id int64) (*models.Seat, error)
	GetAncillaryProduct(ctx context.Context, id int64) (*models.AncillaryProduct, error)
	GetPricingRules(ctx context.Context, dimension string) ([]models.PricingRule, error)
	ConfirmedOccupantCount(ctx context.Context, flightID int64) (int64, error)
	RecordPricingOffer(ctx context.Context, offer *models.PricingOffer) error
}

// Engine computes deterministic prices: same flight state, fare code and
// context always yield the same price.
type Engine struct {
	catalog Catalog
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock pins the engine's notion of now. Tests use it to make
// days-to-departure contexts reproducible.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(catalog Catalog, logger *zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		now:     time.Now,
	}
	e.log = logging.Component(logger, "pricing")
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TotalRequest describes a booking to price before it is created.
type TotalRequest struct {
	FlightID       int64
	FareCode       string
	PassengerCount int
	Ancillaries    []AncillaryItem
}

type AncillaryItem struct {
	ProductID int64
	Quantity  int64
}

// ComputeBaseFare prices one seat of a fare on a flight: contextual base,
// fare-class multiplier, occupancy multiplier, rounded to cents. Every
// computed fare is logged as a pricing offer, best effort.
func (e *Engine) ComputeBaseFare(ctx context.Context, flightID int64, fareCode string) (float64, error) {
	flight, err := e.catalog.GetFlight(ctx, flightID)
	if err != nil {
		return 0, err
	}

	fc, err := e.catalog.GetFareCode(ctx, fareCode)
	if err != nil {
		return 0, err
	}
	if !fc.IsActive {
		return 0, database.ErrNotFound
	}

	base := e.contextualBase(ctx, flight, 0)
	price := base * FareClassMultiplier(fc.CabinClass)

	occupied, err := e.catalog.ConfirmedOccupantCount(ctx, flightID)
	if err != nil {
		return 0, fmt.Errorf("occupant count for flight %d: %w", flightID, err)
	}
	price = round2(price * OccupancyMultiplier(occupied, flight.Capacity))

	offer := &models.PricingOffer{FlightID: flightID, FareCode: fareCode, Price: price}
	if err := e.catalog.RecordPricingOffer(ctx, offer); err != nil {
		// Offer logging must never fail the computation.
		e.log.Warn().Err(err).Int64("flight_id", flightID).Msg("record pricing offer failed")
	} else {
		metrics.IncPricingOffer()
	}

	return price, nil
}

// contextualBase resolves the willingness-to-pay base for a flight context.
// Each dimension matches independently to the closest bucket at or below
// the actual value; when both match, the maximum wins. With no match at
// all the price falls back to route distance at a fixed per-km rate, and
// that fallback never fails.
func (e *Engine) contextualBase(ctx context.Context, flight *models.FlightInstance, stayDays int64) float64 {
	// May be negative when a quote is requested after departure; the
	// bucket match simply finds nothing then.
	daysToDeparture := int64(flight.Departure.Sub(e.now()).Hours() / 24)

	var best float64
	matched := false

	for dimension, value := range map[string]int64{
		models.DimensionDaysToDeparture: daysToDeparture,
		models.DimensionLengthOfStay:    stayDays,
	} {
		rules, err := e.catalog.GetPricingRules(ctx, dimension)
		if err != nil {
			e.log.Warn().Err(err).Str("dimension", dimension).Msg("pricing rules unavailable")
			continue
		}
		if wtp, ok := bestMatch(rules, value); ok {
			matched = true
			if wtp > best {
				best = wtp
			}
		}
	}
	if matched {
		return best
	}

	distance, err := e.catalog.GetRouteDistance(ctx, flight.ID)
	if err != nil {
		e.log.Warn().Err(err).Int64("flight_id", flight.ID).Msg("route distance unavailable, pricing from zero")
		distance = 0
	}
	return distance * fallbackRatePerKM
}

// bestMatch picks the rule with the largest bucket not exceeding value.
func bestMatch(rules []models.PricingRule, value int64) (float64, bool) {
	var (
		bestBucket int64 = -1 << 62
		wtp        float64
		found      bool
	)
	for _, r := range rules {
		if r.Bucket <= value && r.Bucket > bestBucket {
			bestBucket = r.Bucket
			wtp = r.BaseValue
			found = true
		}
	}
	return wtp, found
}

// ComputeSeatPrice prices a specific seat on a flight. A nil result means
// the seat is free: premium cabins and plain rear economy carry no
// surcharge. Priced seats take the last-minute and occupancy multipliers
// against the flight's live state.
func (e *Engine) ComputeSeatPrice(ctx context.Context, seatID, flightID int64) (*float64, error) {
	seat, err := e.catalog.GetSeat(ctx, seatID)
	if err != nil {
		return nil, err
	}
	flight, err := e.catalog.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	surcharge, priced := seatSurcharge(seat)
	if !priced {
		return nil, nil
	}

	price := surcharge
	if flight.Departure.Sub(e.now()) < lastMinuteDays*24*time.Hour {
		price *= lastMinuteFactor
	}

	occupied, err := e.catalog.ConfirmedOccupantCount(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("occupant count for flight %d: %w", flightID, err)
	}
	price = round2(price * OccupancyMultiplier(occupied, flight.Capacity))

	return &price, nil
}

// ComputeBookingTotal prices a whole booking request: base fare per
// passenger plus requested ancillaries at current catalog prices.
// Ancillary products that no longer exist are skipped here; the booking
// transaction re-validates them and aborts instead of skipping.
func (e *Engine) ComputeBookingTotal(ctx context.Context, req TotalRequest) (float64, error) {
	if req.PassengerCount <= 0 {
		return 0, fmt.Errorf("%w: passenger count must be positive", database.ErrInvalidInput)
	}

	base, err := e.ComputeBaseFare(ctx, req.FlightID, req.FareCode)
	if err != nil {
		return 0, err
	}

	total := base * float64(req.PassengerCount)
	for _, item := range req.Ancillaries {
		product, err := e.catalog.GetAncillaryProduct(ctx, item.ProductID)
		if errors.Is(err, database.ErrNotFound) {
			e.log.Debug().Int64("product_id", item.ProductID).Msg("skipping vanished ancillary in pre-check")
			continue
		}
		if err != nil {
			return 0, err
		}
		if !product.IsActive {
			continue
		}
		total += product.UnitPrice * float64(item.Quantity)
	}

	return round2(total), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
