package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/logger"
	"github.com/wonny/optimal-selector/pkg/redis"
)

// Cached memoizes resolved date sequences in Redis.
// With Redis disabled it is a pass-through.
type Cached struct {
	next   contracts.TradingCalendar
	cache  *redis.Cache
	id     string
	ttl    time.Duration
	logger *logger.Logger
}

// Compile-time interface check.
var _ contracts.TradingCalendar = (*Cached)(nil)

// NewCached wraps next with a Redis cache. id names the wrapped calendar
// (e.g. its instrument code) and is part of every key; "" means "all".
func NewCached(next contracts.TradingCalendar, cache *redis.Cache, id string, ttl time.Duration, log *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if id == "" {
		id = "all"
	}
	return &Cached{
		next:   next,
		cache:  cache,
		id:     id,
		ttl:    ttl,
		logger: log,
	}
}

// Resolve returns cached dates or resolves and stores them
func (c *Cached) Resolve(ctx context.Context, q contracts.Query) ([]time.Time, error) {
	key := c.key(q)
	dates, err := redis.GetOrLoad(ctx, c.cache, key, c.ttlFor(q), func() ([]time.Time, error) {
		c.logger.WithField("key", key).Debug("Calendar cache miss")
		return c.next.Resolve(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve calendar: %w", err)
	}
	return dates, nil
}

func (c *Cached) key(q contracts.Query) string {
	return redis.CalendarKey(c.id + ":" + q.Key())
}

// ttlFor keeps open-ended queries short-lived so new sessions show up
func (c *Cached) ttlFor(q contracts.Query) time.Duration {
	if q.End.IsZero() && c.ttl > redis.TTLShort {
		return redis.TTLShort
	}
	return c.ttl
}
