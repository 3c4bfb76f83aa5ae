package pricing

import (
	"context"
	"sync"
	"time"
)

// MemoOracle memoizes another Oracle by (instrument, date). One instance
// belongs to one report run; it is never shared across runs.
// Safe for concurrent warm-up from per-instrument workers.
type MemoOracle struct {
	next Oracle

	mu    sync.RWMutex
	cache map[memoKey]float64
}

type memoKey struct {
	instrument string
	day        string
}

// NewMemoOracle wraps next with a per-run memo
func NewMemoOracle(next Oracle) *MemoOracle {
	return &MemoOracle{
		next:  next,
		cache: make(map[memoKey]float64),
	}
}

// Price implements Oracle
func (m *MemoOracle) Price(ctx context.Context, instrument string, date time.Time) (float64, error) {
	key := memoKey{instrument: instrument, day: dayKey(Normalize(date))}

	m.mu.RLock()
	p, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := m.next.Price(ctx, instrument, date)
	if err != nil {
		// misses are not cached: a later run may backfill quotes
		return 0, err
	}

	m.mu.Lock()
	m.cache[key] = p
	m.mu.Unlock()

	return p, nil
}

// Size returns the number of memoized quotes
func (m *MemoOracle) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
