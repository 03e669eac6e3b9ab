package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// CachedBarStore decorates a domain.BarStore with a short-lived Redis cache.
// The strategy reads the same 30-bar windows for every universe symbol each
// cycle; caching keeps repeated evaluation cycles from hammering the history
// tables. Entries are stored as a JSON blob keyed by table, symbol, and
// window size.
type CachedBarStore struct {
	rdb  *redis.Client
	next domain.BarStore
	ttl  time.Duration
}

// NewCachedBarStore wraps next with a Redis cache using the given TTL. A
// zero or negative TTL disables caching writes (reads always fall through).
func NewCachedBarStore(c *Client, next domain.BarStore, ttl time.Duration) *CachedBarStore {
	return &CachedBarStore{rdb: c.Underlying(), next: next, ttl: ttl}
}

func barKey(table, symbol string, n int) string {
	return fmt.Sprintf("bars:%s:%s:%d", table, symbol, n)
}

// LatestBars returns the cached window when present, otherwise falls through
// to the underlying store and populates the cache. Cache failures degrade to
// a plain store read.
func (s *CachedBarStore) LatestBars(ctx context.Context, table, symbol string, n int) ([]domain.Bar, error) {
	key := barKey(table, symbol, n)

	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var bars []domain.Bar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		_ = s.rdb.Del(ctx, key).Err()
	}

	bars, err := s.next.LatestBars(ctx, table, symbol, n)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 && len(bars) > 0 {
		if data, err := json.Marshal(bars); err == nil {
			_ = s.rdb.Set(ctx, key, data, s.ttl).Err()
		}
	}
	return bars, nil
}

var _ domain.BarStore = (*CachedBarStore)(nil)
