package pricing

import (
	"context"
	"time"

	"github.com/wonny/perfa/pkg/redis"
)

// CachedOracle adds an optional Redis tier in front of another Oracle.
// Historical closes are immutable per day, so entries use the daily TTL.
// With Redis disabled every lookup goes straight through.
type CachedOracle struct {
	next  Oracle
	cache *redis.Cache
}

// NewCachedOracle wraps next with the shared Redis cache
func NewCachedOracle(next Oracle, cache *redis.Cache) *CachedOracle {
	return &CachedOracle{next: next, cache: cache}
}

// Price implements Oracle
func (c *CachedOracle) Price(ctx context.Context, instrument string, date time.Time) (float64, error) {
	key := redis.PriceKey(instrument, dayKey(Normalize(date)))

	var price float64
	err := c.cache.GetOrSet(ctx, key, &price, redis.TTLDaily, func() (interface{}, error) {
		return c.next.Price(ctx, instrument, date)
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}
