package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Portfolio owns the cash balance, risk constraints and (through the
// repository) an ordered set of holdings plus an append-only transaction
// ledger. Children never hold live back-references; portfolio_id foreign
// keys are used for lookups.
type Portfolio struct {
	ID                         int64                  `json:"id"`
	Name                       string                 `json:"name"`
	Description                string                 `json:"description,omitempty"`
	InitialCapital             decimal.Decimal        `json:"initial_capital"`
	CurrentCash                decimal.Decimal        `json:"current_cash"`
	MaxCashPerTrade            *decimal.Decimal       `json:"max_cash_per_trade,omitempty"`
	MaxPositionSize            *decimal.Decimal       `json:"max_position_size,omitempty"`             // % of NAV, 0-100
	MaxAllocationPerAssetClass *decimal.Decimal       `json:"max_allocation_per_asset_class,omitempty"` // % of NAV, 0-100
	FeeStructureID             *int64                 `json:"fee_structure_id,omitempty"`
	Status                     domain.PortfolioStatus `json:"status"`
	ModelName                  string                 `json:"model_name,omitempty"`
	CreatedAt                  time.Time              `json:"created_at"`
}

// Holding is a position uniquely identified by (portfolio, asset class,
// ticker). Quantity never goes negative; a holding whose quantity reaches
// exactly zero is removed, not retained as a zero row.
type Holding struct {
	ID            int64             `json:"id"`
	PortfolioID   int64             `json:"portfolio_id"`
	AssetClass    domain.AssetClass `json:"asset_class"`
	Ticker        string            `json:"ticker"`
	Quantity      decimal.Decimal   `json:"quantity"`
	EntryPrice    decimal.Decimal   `json:"entry_price"` // volume-weighted average
	EntryDate     time.Time         `json:"entry_date"`
	CurrentPrice  *decimal.Decimal  `json:"current_price,omitempty"`
	DividendYield *decimal.Decimal  `json:"dividend_yield,omitempty"` // annual %, e.g. 3.5
	PERatio       *decimal.Decimal  `json:"pe_ratio,omitempty"`
}

// EntryValue returns quantity × average entry price.
func (h *Holding) EntryValue() decimal.Decimal {
	return h.Quantity.Mul(h.EntryPrice)
}

// CurrentValue returns the marked-to-market value, falling back to the
// entry price when no market price is known.
func (h *Holding) CurrentValue() decimal.Decimal {
	if h.CurrentPrice != nil {
		return h.Quantity.Mul(*h.CurrentPrice)
	}
	return h.EntryValue()
}

// UnrealizedPL returns the profit/loss against the average cost basis.
func (h *Holding) UnrealizedPL() decimal.Decimal {
	return h.CurrentValue().Sub(h.EntryValue())
}

// AnnualIncome estimates yearly dividend income from the yield annotation.
func (h *Holding) AnnualIncome() decimal.Decimal {
	if h.DividendYield == nil {
		return decimal.Zero
	}
	return h.CurrentValue().Mul(*h.DividendYield).Div(decimal.NewFromInt(100))
}

// Transaction is the immutable record of one executed buy or sell. It is
// never mutated after creation and forms the ledger of record for
// trade-outcome analysis.
type Transaction struct {
	ID          int64             `json:"id"`
	PortfolioID int64             `json:"portfolio_id"`
	AssetClass  domain.AssetClass `json:"asset_class"`
	Ticker      string            `json:"ticker"`
	Side        domain.OrderSide  `json:"side"`
	Quantity    decimal.Decimal   `json:"quantity"`
	Price       decimal.Decimal   `json:"price"`
	Fee         decimal.Decimal   `json:"fee"`
	TotalCost   decimal.Decimal   `json:"total_cost"` // cash effect: notional+fee for buys, notional-fee for sells
	Timestamp   time.Time         `json:"timestamp"`
}

// Snapshot is one point-in-time row per (portfolio, date): NAV, cumulative
// return percentage and cash balance. Append-only; re-snapshotting a date
// either overwrites or errors, never silently duplicates.
type Snapshot struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	NAV         decimal.Decimal `json:"nav"`
	TotalReturn decimal.Decimal `json:"total_return"` // cumulative %, from initial capital
	CashBalance decimal.Decimal `json:"cash_balance"`
}
