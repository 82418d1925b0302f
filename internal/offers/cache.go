package offers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mercadito/internal/obs"
	"github.com/noah-isme/mercadito/internal/pricing"
	"github.com/noah-isme/mercadito/internal/resilience"
)

const (
	// CatalogKey prefixes the Redis keys holding serialised offer catalogs, one per version.
	CatalogKey = "mercadito:ofertas:catalogo"
	// CatalogVersionKey holds the current catalog version. Invalidation increments it, so a fill
	// computed before an offer changed lands under a version nobody reads any more.
	CatalogVersionKey = CatalogKey + ":version"
)

func catalogKey(version int64) string {
	return CatalogKey + ":v" + strconv.FormatInt(version, 10)
}

// CatalogEntry is the outcome of a catalog lookup.
type CatalogEntry struct {
	Offers []pricing.Offer
	Hit    bool
	// Version is the catalog version read before the lookup.
	Version int64
	// fillable is set when Version was read from Redis and the lookup itself did not fail.
	fillable bool
}

// Cache keeps the offer rows used for pricing in Redis as JSON. A nil client disables it.
type Cache struct {
	client  redis.Cmdable
	ttl     time.Duration
	metrics *obs.StoreMetrics
	breaker *resilience.Breaker
}

// NewCache constructs a cache helper. A non-positive ttl disables caching.
func NewCache(client redis.Cmdable, ttl time.Duration, metrics *obs.StoreMetrics) *Cache {
	if ttl <= 0 {
		client = nil
	}
	return &Cache{client: client, ttl: ttl, metrics: metrics}
}

// WithBreaker makes lookups and fills skip Redis while b is open. Invalidation always goes through.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	c.breaker = b
	return c
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.breaker.Allow(ctx) {
		return nil, false, resilience.ErrOpenCircuit
	}
	data, err := c.client.Get(ctx, key).Bytes()
	c.breaker.Report(ctx, err == nil || errors.Is(err, redis.Nil))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, ok, err := c.get(ctx, key)
	if !ok || err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
}

// CatalogVersion returns the current catalog version; a missing counter is version zero.
func (c *Cache) CatalogVersion(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	data, ok, err := c.get(ctx, CatalogVersionKey)
	if !ok || err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}

// CatalogOffers returns the cached catalog rows for the current version, recording the lookup
// result.
func (c *Cache) CatalogOffers(ctx context.Context) (CatalogEntry, error) {
	if !c.enabled() {
		return CatalogEntry{}, nil
	}
	version, err := c.CatalogVersion(ctx)
	entry := CatalogEntry{Version: version}
	if err == nil {
		entry.Hit, err = c.GetJSON(ctx, catalogKey(version), &entry.Offers)
	}
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		c.metrics.ObserveOfferCache("bypass")
		return CatalogEntry{}, nil
	case err != nil:
		c.metrics.ObserveOfferCache("error")
		return CatalogEntry{}, err
	case entry.Hit:
		c.metrics.ObserveOfferCache("hit")
	default:
		c.metrics.ObserveOfferCache("miss")
	}
	entry.fillable = true
	return entry, nil
}

// FillCatalog stores offers under the version entry was read at. Entries from a failed or
// bypassed lookup are not written back.
func (c *Cache) FillCatalog(ctx context.Context, entry CatalogEntry, offers []pricing.Offer) error {
	if !entry.fillable || entry.Hit {
		return nil
	}
	return c.SetJSON(ctx, catalogKey(entry.Version), offers)
}

// InvalidateCatalog moves the catalog to a new version and drops the previous one. It bypasses the
// breaker so a change is never hidden behind an open circuit.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	version, err := c.client.Incr(ctx, CatalogVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Del(ctx, catalogKey(version-1)).Err()
}
