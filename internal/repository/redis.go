package repository

import (
	"context"
	"fmt"
	"time"

	"skyfare/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisSeatHoldRepository keeps short-TTL advisory holds on (flight, seat)
// pairs. A hold is only a hint that someone is mid-selection; the store's
// uniqueness constraint still decides every claim.
type RedisSeatHoldRepository struct {
	client *redis.Client
}

// NewRedisClient builds a client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSeatHoldRepository(client *redis.Client) *RedisSeatHoldRepository {
	return &RedisSeatHoldRepository{client: client}
}

func holdKey(flightID, seatID int64) string {
	return fmt.Sprintf("seat_hold:%d:%d", flightID, seatID)
}

// AcquireSeatHold takes the hold if it is free. false means someone else
// holds it right now.
func (r *RedisSeatHoldRepository) AcquireSeatHold(ctx context.Context, flightID, seatID int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, holdKey(flightID, seatID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire seat hold: %w", err)
	}
	return ok, nil
}

func (r *RedisSeatHoldRepository) ReleaseSeatHold(ctx context.Context, flightID, seatID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, holdKey(flightID, seatID)).Err(); err != nil {
		return fmt.Errorf("release seat hold: %w", err)
	}
	return nil
}
