package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// FixedWindow is a fixed window Allower over a ulule/limiter store. It serves deployments
// without Redis, where counters live in process memory.
type FixedWindow struct {
	Store limiter.Store
}

// NewMemoryFixedWindow builds a FixedWindow backed by an in-memory store.
func NewMemoryFixedWindow(prefix string) FixedWindow {
	return FixedWindow{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow registers an event for key in the current window.
func (f FixedWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if f.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	res, err := limiter.New(f.Store, rate).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), fmt.Errorf("ratelimit: %w", err)
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
