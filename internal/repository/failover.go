package repository

import (
	"context"
	"sync/atomic"
	"time"

	"skyfare/internal/domain"
	"skyfare/internal/logging"

	"github.com/rs/zerolog"
)

const recoveryProbeInterval = time.Minute

// FailoverSeatHoldRepository prefers the primary (Redis) hold store and
// degrades to the in-memory fallback when it fails, probing the primary
// again after a minute. Advisory holds tolerate this: losing them only
// costs extra store-level conflicts, never correctness.
type FailoverSeatHoldRepository struct {
	primary  domain.SeatHolder
	fallback domain.SeatHolder
	log      zerolog.Logger

	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSeatHoldRepository(primary, fallback domain.SeatHolder, logger *zerolog.Logger) *FailoverSeatHoldRepository {
	return &FailoverSeatHoldRepository{primary: primary, fallback: fallback, log: logging.Component(logger, "seat_holds")}
}

func (r *FailoverSeatHoldRepository) active() domain.SeatHolder {
	if !r.isDown.Load() {
		return r.primary
	}
	if time.Since(time.Unix(r.lastCheck.Load(), 0)) > recoveryProbeInterval {
		return r.primary
	}
	return r.fallback
}

func (r *FailoverSeatHoldRepository) markDown(err error) {
	r.log.Error().Err(err).Msg("primary seat-hold store failed, using in-memory fallback")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().Unix())
}

func (r *FailoverSeatHoldRepository) AcquireSeatHold(ctx context.Context, flightID, seatID int64, ttl time.Duration) (bool, error) {
	store := r.active()
	ok, err := store.AcquireSeatHold(ctx, flightID, seatID, ttl)
	if err == nil {
		if store == r.primary {
			r.isDown.Store(false)
		}
		return ok, nil
	}
	if store == r.primary {
		r.markDown(err)
		return r.fallback.AcquireSeatHold(ctx, flightID, seatID, ttl)
	}
	return false, err
}

func (r *FailoverSeatHoldRepository) ReleaseSeatHold(ctx context.Context, flightID, seatID int64) error {
	store := r.active()
	err := store.ReleaseSeatHold(ctx, flightID, seatID)
	if err == nil {
		if store == r.primary {
			r.isDown.Store(false)
		}
		return nil
	}
	if store == r.primary {
		r.markDown(err)
		return r.fallback.ReleaseSeatHold(ctx, flightID, seatID)
	}
	return err
}
