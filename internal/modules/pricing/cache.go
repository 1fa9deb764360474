package pricing

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

type cacheEntry struct {
	price     decimal.Decimal
	found     bool
	fetchedAt time.Time
}

// CachedOracle fronts another Oracle with a short-lived TTL cache to reduce
// lookup volume. Entries are keyed per (asset class, ticker) and expire
// independently; there is no cross-ticker invalidation. The clock is
// injected so expiry is deterministically testable.
type CachedOracle struct {
	inner Oracle
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedOracle wraps an oracle with a TTL cache. A nil clock defaults to
// time.Now.
func NewCachedOracle(inner Oracle, ttl time.Duration, now func() time.Time) *CachedOracle {
	if now == nil {
		now = time.Now
	}
	return &CachedOracle{
		inner:   inner,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// GetPrice returns the cached price when fresh, otherwise consults the inner
// oracle. Negative lookups ("unknown asset") are cached too, so a flood of
// orders for a bad ticker does not hammer the price source.
func (c *CachedOracle) GetPrice(ticker string, class domain.AssetClass) (decimal.Decimal, bool, error) {
	key := string(class) + ":" + FeedSymbol(ticker, class)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.price, entry.found, nil
	}

	price, found, err := c.inner.GetPrice(ticker, class)
	if err != nil {
		// Infrastructure failures are not cached.
		return decimal.Zero, false, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{price: price, found: found, fetchedAt: c.now()}
	c.mu.Unlock()

	return price, found, nil
}

// Clear drops every cached entry.
func (c *CachedOracle) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
