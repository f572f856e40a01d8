package promo

import (
	"time"

	"github.com/solana-token-factory/factory/pkg/cache"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
)

const (
	DefaultCacheTTL    = 5 * time.Minute
	defaultCacheBudget = 1000
)

// Cache holds recently validated promo codes for a fixed time to live
type Cache struct {
	cache cache.Cache
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	ttl    time.Duration
	budget int
	clock  func() time.Time
}

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = ttl
	}
}

func WithCacheClock(clock func() time.Time) CacheOption {
	return func(o *cacheOptions) {
		o.clock = clock
	}
}

func WithCacheBudget(budget int) CacheOption {
	return func(o *cacheOptions) {
		o.budget = budget
	}
}

func NewCache(opts ...CacheOption) *Cache {
	o := &cacheOptions{
		ttl:    DefaultCacheTTL,
		budget: defaultCacheBudget,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Cache{
		cache: cache.NewCache(o.budget, cache.WithTTL(o.ttl), cache.WithClock(o.clock)),
	}
}

// Get returns a copy of the cached record for the normalized code
func (c *Cache) Get(code string) (*promodata.Record, bool) {
	cached, ok := c.cache.Retrieve(code)
	if !ok {
		return nil, false
	}

	cloned := cached.(*promodata.Record).Clone()
	return &cloned, true
}

func (c *Cache) Put(record *promodata.Record) {
	cloned := record.Clone()
	c.cache.Insert(record.Code, &cloned, 1)
}

func (c *Cache) Invalidate(code string) {
	c.cache.Delete(code)
}

func (c *Cache) Clear() {
	c.cache.Clear()
}
