package pricing

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// StoreOracle resolves prices from the asset_prices table, which an external
// market-data aggregator keeps current. One row per feed symbol; the most
// recent row wins.
type StoreOracle struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStoreOracle creates a price oracle backed by the local price store.
func NewStoreOracle(db *sql.DB, log zerolog.Logger) *StoreOracle {
	return &StoreOracle{
		db:  db,
		log: log.With().Str("oracle", "store").Logger(),
	}
}

// GetPrice returns the latest stored price for the ticker, false when the
// asset is unknown.
func (o *StoreOracle) GetPrice(ticker string, class domain.AssetClass) (decimal.Decimal, bool, error) {
	symbol := FeedSymbol(ticker, class)

	var price string
	err := o.db.QueryRow(`
		SELECT price FROM asset_prices
		WHERE asset_class = ? AND symbol = ?
		ORDER BY updated_at DESC
		LIMIT 1`, string(class), symbol).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		o.log.Debug().Str("ticker", ticker).Str("symbol", symbol).Msg("Price unavailable")
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to query price for %s: %w", symbol, err)
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt price for %s: %w", symbol, err)
	}
	return d, true, nil
}

// UpsertPrice stores the latest price for a feed symbol. Used by the
// market-data sync path and by tests seeding the store.
func (o *StoreOracle) UpsertPrice(ticker string, class domain.AssetClass, price decimal.Decimal) error {
	symbol := FeedSymbol(ticker, class)
	_, err := o.db.Exec(`
		INSERT INTO asset_prices (asset_class, symbol, price, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(asset_class, symbol)
		DO UPDATE SET price = excluded.price, updated_at = CURRENT_TIMESTAMP`,
		string(class), symbol, price.String())
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
	}
	return nil
}
