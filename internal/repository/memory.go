package repository

import (
	"context"
	"sync"
	"time"
)

// MemorySeatHoldRepository is the in-process fallback when Redis is down
// or not configured. Holds expire lazily on the next access.
type MemorySeatHoldRepository struct {
	mu    sync.Mutex
	holds map[[2]int64]time.Time
}

func NewMemorySeatHoldRepository() *MemorySeatHoldRepository {
	return &MemorySeatHoldRepository{holds: make(map[[2]int64]time.Time)}
}

func (m *MemorySeatHoldRepository) AcquireSeatHold(ctx context.Context, flightID, seatID int64, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]int64{flightID, seatID}
	if deadline, ok := m.holds[key]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	m.holds[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MemorySeatHoldRepository) ReleaseSeatHold(ctx context.Context, flightID, seatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holds, [2]int64{flightID, seatID})
	return nil
}
