// Package pricing resolves current prices per (ticker, asset class) pair.
// The Oracle is the only market-data dependency of the order engine; it is
// queried before any ledger mutation so that an unavailable price can never
// leave partial state behind.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Oracle returns the current price for a ticker within an asset class.
// The boolean is false when the asset is unknown to the price source;
// the error is reserved for infrastructure failures (store down, etc.).
type Oracle interface {
	GetPrice(ticker string, class domain.AssetClass) (decimal.Decimal, bool, error)
}
