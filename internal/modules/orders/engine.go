package orders

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/fees"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/pricing"
)

// Request describes one order to execute at the oracle's current price.
type Request struct {
	PortfolioID int64             `json:"portfolio_id"`
	AssetClass  domain.AssetClass `json:"asset_class"`
	Ticker      string            `json:"ticker"`
	Side        domain.OrderSide  `json:"side"`
	Quantity    decimal.Decimal   `json:"quantity"`
}

// Engine executes orders. Each portfolio is serialized behind its own
// mutex and every execution mutates cash, holding and ledger in a single
// database transaction, so concurrent orders on one portfolio behave as if
// executed one at a time.
type Engine struct {
	portfolios *portfolio.Repository
	fees       *fees.Repository
	oracle     pricing.Oracle
	log        zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	// modelMu serializes model-portfolio lookup and creation.
	modelMu sync.Mutex
}

// NewEngine creates a new order execution engine.
func NewEngine(portfolios *portfolio.Repository, feeRepo *fees.Repository, oracle pricing.Oracle, log zerolog.Logger) *Engine {
	return &Engine{
		portfolios: portfolios,
		fees:       feeRepo,
		oracle:     oracle,
		log:        log.With().Str("component", "orders").Logger(),
		locks:      make(map[int64]*sync.Mutex),
	}
}

// portfolioLock returns the serialization mutex for one portfolio.
func (e *Engine) portfolioLock(portfolioID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[portfolioID] = lock
	}
	return lock
}

// Execute runs one order and returns its confirmation. The error return is
// reserved for infrastructure failures; every business rejection comes back
// as a Confirmation status.
func (e *Engine) Execute(req Request) (Confirmation, error) {
	lock := e.portfolioLock(req.PortfolioID)
	lock.Lock()
	defer lock.Unlock()

	return e.executeLocked(req)
}

func (e *Engine) executeLocked(req Request) (Confirmation, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))

	if c, ok := e.validateShape(req); !ok {
		return c, nil
	}

	p, err := e.portfolios.GetByID(req.PortfolioID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if p == nil {
		return rejected(req, StatusValidationError, "portfolio not found"), nil
	}
	if p.Status != domain.PortfolioActive {
		return rejected(req, StatusValidationError, "portfolio is not active"), nil
	}

	// Resolve the execution price before any mutation. An unknown ticker
	// rejects the order with the portfolio untouched.
	price, found, err := e.oracle.GetPrice(req.Ticker, req.AssetClass)
	if err != nil {
		return Confirmation{}, fmt.Errorf("price lookup failed: %w", err)
	}
	if !found || !price.IsPositive() {
		return rejected(req, StatusInvalidAsset,
			fmt.Sprintf("no price available for %s %s", req.AssetClass, req.Ticker)), nil
	}

	feePolicy, err := e.feePolicy(p)
	if err != nil {
		return Confirmation{}, err
	}

	notional := req.Quantity.Mul(price)
	fee := feePolicy.CalculateFee(notional)

	holding, err := e.portfolios.GetHolding(p.ID, req.AssetClass, req.Ticker)
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to load holding: %w", err)
	}

	holdings, err := e.portfolios.GetHoldings(p.ID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	var conf Confirmation
	if req.Side.IsBuy() {
		conf, err = e.buy(p, holdings, holding, req, price, fee)
	} else {
		conf, err = e.sell(p, holding, req, price, fee)
	}
	if err != nil {
		return Confirmation{}, err
	}

	if conf.Status.OK() {
		e.log.Info().
			Int64("portfolio_id", p.ID).
			Str("side", string(req.Side)).
			Str("ticker", req.Ticker).
			Str("quantity", req.Quantity.String()).
			Str("price", price.String()).
			Str("fee", fee.String()).
			Msg("Order executed")
	} else {
		e.log.Info().
			Int64("portfolio_id", p.ID).
			Str("side", string(req.Side)).
			Str("ticker", req.Ticker).
			Str("status", string(conf.Status)).
			Str("reason", conf.Reason).
			Msg("Order rejected")
	}
	return conf, nil
}

func (e *Engine) validateShape(req Request) (Confirmation, bool) {
	if !req.AssetClass.IsValid() {
		return rejected(req, StatusValidationError,
			fmt.Sprintf("invalid asset class: %q", req.AssetClass)), false
	}
	if !req.Side.IsValid() {
		return rejected(req, StatusValidationError,
			fmt.Sprintf("invalid order side: %q", req.Side)), false
	}
	if req.Ticker == "" {
		return rejected(req, StatusValidationError, "ticker is required"), false
	}
	if !req.Quantity.IsPositive() {
		return rejected(req, StatusValidationError, "quantity must be positive"), false
	}
	return Confirmation{}, true
}

func (e *Engine) feePolicy(p *portfolio.Portfolio) (*fees.FeeStructure, error) {
	if p.FeeStructureID == nil {
		return fees.Zero(), nil
	}
	policy, err := e.fees.GetForPortfolio(p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee structure: %w", err)
	}
	if policy == nil {
		return fees.Zero(), nil
	}
	return policy, nil
}

// buy validates constraints in a fixed order (cash, position size,
// per-trade cap, class allocation) and then commits cash, holding and
// ledger row atomically. The first breached limit decides the status.
func (e *Engine) buy(p *portfolio.Portfolio, holdings []portfolio.Holding,
	holding *portfolio.Holding, req Request, price, fee decimal.Decimal) (Confirmation, error) {

	notional := req.Quantity.Mul(price)
	totalCost := notional.Add(fee).Round(2)

	if totalCost.GreaterThan(p.CurrentCash) {
		return rejectedAt(req, price, StatusInsufficientCash,
			fmt.Sprintf("order costs %s but only %s cash is available",
				totalCost.StringFixed(2), p.CurrentCash.StringFixed(2))), nil
	}

	nav := portfolio.NAV(p, holdings)
	hundred := decimal.NewFromInt(100)

	if p.MaxPositionSize != nil && nav.IsPositive() {
		existing := decimal.Zero
		if holding != nil {
			existing = holding.Quantity
		}
		// Limit applies to the resulting position marked at the execution
		// price, as a percentage of pre-trade NAV.
		resulting := existing.Add(req.Quantity).Mul(price)
		pct := resulting.Div(nav).Mul(hundred)
		if pct.GreaterThan(*p.MaxPositionSize) {
			return rejectedAt(req, price, StatusPositionSizeLimit,
				fmt.Sprintf("position would be %s%% of NAV, limit is %s%%",
					pct.StringFixed(2), p.MaxPositionSize.StringFixed(2))), nil
		}
	}

	if p.MaxCashPerTrade != nil && totalCost.GreaterThan(*p.MaxCashPerTrade) {
		return rejectedAt(req, price, StatusAllocationLimit,
			fmt.Sprintf("order costs %s, above the per-trade cap of %s",
				totalCost.StringFixed(2), p.MaxCashPerTrade.StringFixed(2))), nil
	}

	if p.MaxAllocationPerAssetClass != nil && nav.IsPositive() {
		classValue := notional
		for i := range holdings {
			if holdings[i].AssetClass == req.AssetClass {
				classValue = classValue.Add(holdings[i].CurrentValue())
			}
		}
		pct := classValue.Div(nav).Mul(hundred)
		if pct.GreaterThan(*p.MaxAllocationPerAssetClass) {
			return rejectedAt(req, price, StatusAllocationLimit,
				fmt.Sprintf("%s allocation would be %s%% of NAV, limit is %s%%",
					req.AssetClass, pct.StringFixed(2),
					p.MaxAllocationPerAssetClass.StringFixed(2))), nil
		}
	}

	newCash := p.CurrentCash.Sub(totalCost).Round(2)

	tx, err := e.portfolios.DB().Begin()
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if holding == nil {
		h := &portfolio.Holding{
			PortfolioID:  p.ID,
			AssetClass:   req.AssetClass,
			Ticker:       req.Ticker,
			Quantity:     req.Quantity.Round(8),
			EntryPrice:   price.Round(8),
			CurrentPrice: &price,
		}
		if err := e.portfolios.InsertHoldingTx(tx, h); err != nil {
			return Confirmation{}, err
		}
	} else {
		// Average entry is recomputed volume-weighted across the old
		// position and the new lot.
		oldCost := holding.Quantity.Mul(holding.EntryPrice)
		newQty := holding.Quantity.Add(req.Quantity)
		holding.EntryPrice = oldCost.Add(notional).Div(newQty).Round(8)
		holding.Quantity = newQty.Round(8)
		holding.CurrentPrice = &price
		if err := e.portfolios.UpdateHoldingTx(tx, holding); err != nil {
			return Confirmation{}, err
		}
	}

	txnID, err := e.commitCashAndLedger(tx, p, req, price, fee, totalCost, newCash)
	if err != nil {
		return Confirmation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Confirmation{}, fmt.Errorf("failed to commit order: %w", err)
	}

	return Confirmation{
		Status: StatusSuccess,
		Message: fmt.Sprintf("bought %s %s at %s",
			req.Quantity.Round(8), req.Ticker, price.StringFixed(2)),
		Timestamp:     time.Now().UTC(),
		TransactionID: &txnID,
		PortfolioID:   p.ID,
		Side:          domain.OrderBuy,
		AssetClass:    req.AssetClass,
		Ticker:        req.Ticker,
		Quantity:      req.Quantity.Round(8),
		Price:         price,
		Fee:           fee,
		TotalCost:     totalCost,
		CashAfter:     newCash,
	}, nil
}

// sell reduces or removes the holding and credits the proceeds net of
// fees. The holding row is deleted when quantity reaches exactly zero.
func (e *Engine) sell(p *portfolio.Portfolio, holding *portfolio.Holding,
	req Request, price, fee decimal.Decimal) (Confirmation, error) {

	if holding == nil {
		return rejectedAt(req, price, StatusInsufficientHoldings,
			fmt.Sprintf("no %s %s position to sell", req.AssetClass, req.Ticker)), nil
	}
	if req.Quantity.GreaterThan(holding.Quantity) {
		return rejectedAt(req, price, StatusInsufficientHoldings,
			fmt.Sprintf("sell of %s exceeds held quantity %s",
				req.Quantity.String(), holding.Quantity.String())), nil
	}

	notional := req.Quantity.Mul(price)
	proceeds := notional.Sub(fee).Round(2)
	newCash := p.CurrentCash.Add(proceeds).Round(2)
	realized := price.Sub(holding.EntryPrice).Mul(req.Quantity).Sub(fee).Round(2)

	tx, err := e.portfolios.DB().Begin()
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	remaining := holding.Quantity.Sub(req.Quantity).Round(8)
	if remaining.IsZero() {
		if err := e.portfolios.DeleteHoldingTx(tx, holding.ID); err != nil {
			return Confirmation{}, err
		}
	} else {
		// Average entry price is unchanged by sells.
		holding.Quantity = remaining
		holding.CurrentPrice = &price
		if err := e.portfolios.UpdateHoldingTx(tx, holding); err != nil {
			return Confirmation{}, err
		}
	}

	txnID, err := e.commitCashAndLedger(tx, p, req, price, fee, proceeds, newCash)
	if err != nil {
		return Confirmation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Confirmation{}, fmt.Errorf("failed to commit order: %w", err)
	}

	return Confirmation{
		Status: StatusSuccess,
		Message: fmt.Sprintf("sold %s %s at %s",
			req.Quantity.Round(8), req.Ticker, price.StringFixed(2)),
		Timestamp:     time.Now().UTC(),
		TransactionID: &txnID,
		PortfolioID:   p.ID,
		Side:          domain.OrderSell,
		AssetClass:    req.AssetClass,
		Ticker:        req.Ticker,
		Quantity:      req.Quantity.Round(8),
		Price:         price,
		Fee:           fee,
		TotalCost:     proceeds,
		CashAfter:     newCash,
		RealizedPL:    &realized,
	}, nil
}

// commitCashAndLedger updates cash and appends the ledger row, returning
// the new row's id.
func (e *Engine) commitCashAndLedger(tx *sql.Tx, p *portfolio.Portfolio,
	req Request, price, fee, totalCost, newCash decimal.Decimal) (int64, error) {

	if err := e.portfolios.UpdateCashTx(tx, p.ID, newCash); err != nil {
		return 0, err
	}
	txn := &portfolio.Transaction{
		PortfolioID: p.ID,
		AssetClass:  req.AssetClass,
		Ticker:      req.Ticker,
		Side:        req.Side,
		Quantity:    req.Quantity.Round(8),
		Price:       price.Round(8),
		Fee:         fee,
		TotalCost:   totalCost,
	}
	if err := e.portfolios.InsertTransactionTx(tx, txn); err != nil {
		return 0, err
	}
	return txn.ID, nil
}
