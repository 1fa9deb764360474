package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

func TestFeedSymbol(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		class  domain.AssetClass
		want   string
	}{
		{"stock passes through", "aapl", domain.AssetStock, "AAPL"},
		{"crypto suffixed with quote currency", "BTC", domain.AssetCrypto, "BTC-USD"},
		{"crypto pair kept as-is", "ETH-EUR", domain.AssetCrypto, "ETH-EUR"},
		{"bond period maps to yield symbol", "10Y", domain.AssetBond, "^TNX"},
		{"unknown bond period passes through", "7Y", domain.AssetBond, "7Y"},
		{"commodity maps to proxy ETF", "gold", domain.AssetCommodity, "GLD"},
		{"unknown commodity passes through", "COCOA", domain.AssetCommodity, "COCOA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeedSymbol(tt.ticker, tt.class))
		})
	}
}

// countingOracle records how many times each key was resolved.
type countingOracle struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (o *countingOracle) GetPrice(ticker string, class domain.AssetClass) (decimal.Decimal, bool, error) {
	o.calls++
	p, ok := o.prices[FeedSymbol(ticker, class)]
	return p, ok, nil
}

func TestCachedOracle(t *testing.T) {
	inner := &countingOracle{prices: map[string]decimal.Decimal{
		"AAPL":    decimal.NewFromInt(100),
		"BTC-USD": decimal.NewFromInt(40000),
	}}

	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cached := NewCachedOracle(inner, 5*time.Minute, func() time.Time { return clock })

	t.Run("fresh entries served from cache", func(t *testing.T) {
		p, found, err := cached.GetPrice("AAPL", domain.AssetStock)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, p.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 1, inner.calls)

		_, _, err = cached.GetPrice("AAPL", domain.AssetStock)
		require.NoError(t, err)
		assert.Equal(t, 1, inner.calls, "second lookup must hit the cache")
	})

	t.Run("entries expire independently", func(t *testing.T) {
		_, _, err := cached.GetPrice("BTC", domain.AssetCrypto)
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)

		// Advance past the AAPL entry's TTL; the BTC entry was fetched later
		// in wall-clock terms but shares the same timestamp here, so advance
		// past both and confirm each refetches once.
		clock = clock.Add(6 * time.Minute)

		_, _, _ = cached.GetPrice("AAPL", domain.AssetStock)
		_, _, _ = cached.GetPrice("BTC", domain.AssetCrypto)
		assert.Equal(t, 4, inner.calls)

		_, _, _ = cached.GetPrice("AAPL", domain.AssetStock)
		assert.Equal(t, 4, inner.calls)
	})

	t.Run("negative lookups cached", func(t *testing.T) {
		before := inner.calls
		_, found, err := cached.GetPrice("NOPE", domain.AssetStock)
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = cached.GetPrice("NOPE", domain.AssetStock)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, before+1, inner.calls)
	})
}
