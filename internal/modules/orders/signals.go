package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
)

// Signal is one instruction from a model run: sell the whole position, or
// buy sized either by an explicit quantity or as a weight fraction of the
// cash available after sells. An explicit quantity wins over the weight.
// CurrentPrice is an optional hint used by the dry-run planner when the
// oracle has no quote for the ticker.
type Signal struct {
	AssetClass   domain.AssetClass `json:"asset_class"`
	Ticker       string            `json:"ticker"`
	Side         domain.OrderSide  `json:"side"`
	Weight       decimal.Decimal   `json:"weight,omitempty"`   // buys only, fraction of free cash (0-1]
	Quantity     decimal.Decimal   `json:"quantity,omitempty"` // buys only, overrides weight sizing
	CurrentPrice decimal.Decimal   `json:"current_price,omitempty"`
}

// SignalResult is the per-signal outcome within a batch run.
type SignalResult struct {
	AssetClass domain.AssetClass `json:"asset_class"`
	Ticker     string            `json:"ticker"`
	Side       domain.OrderSide  `json:"side"`
	Status     Status            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Quantity   decimal.Decimal   `json:"quantity"`
	Price      decimal.Decimal   `json:"price"`
	Fee        decimal.Decimal   `json:"fee"`
	Skipped    bool              `json:"skipped"`
}

// BatchResult summarizes one signal batch run.
type BatchResult struct {
	RunID       string          `json:"run_id"`
	PortfolioID int64           `json:"portfolio_id"`
	ModelName   string          `json:"model_name,omitempty"`
	DryRun      bool            `json:"dry_run"`
	Executed    int             `json:"executed"`
	Failed      int             `json:"failed"`
	Skipped     int             `json:"skipped"`
	Results     []SignalResult  `json:"results"`
	CashAfter   decimal.Decimal `json:"cash_after"`
	NAVAfter    decimal.Decimal `json:"nav_after"`
}

// ExecuteSignals runs a batch of model signals against one portfolio.
// Sells always run before buys so freed cash funds the buy leg, and buy
// quantities are sized from the cash balance left after the sells. A dry
// run walks the same plan against an in-memory copy of the balances and
// commits nothing.
func (e *Engine) ExecuteSignals(portfolioID int64, signals []Signal, dryRun bool) (*BatchResult, error) {
	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio %d not found", portfolioID)
	}

	result := &BatchResult{
		RunID:       uuid.New().String(),
		PortfolioID: portfolioID,
		DryRun:      dryRun,
	}

	log := e.log.With().Str("run_id", result.RunID).Int64("portfolio_id", portfolioID).Logger()
	log.Info().Int("signals", len(signals)).Bool("dry_run", dryRun).Msg("Signal batch started")

	var sells, buys []Signal
	for _, s := range signals {
		s.Ticker = strings.ToUpper(strings.TrimSpace(s.Ticker))
		if s.Side.IsSell() {
			sells = append(sells, s)
		} else {
			buys = append(buys, s)
		}
	}

	if dryRun {
		e.planBatch(p, sells, buys, result, log)
	} else {
		e.runBatch(p, sells, buys, result, log)
	}

	// Report the post-batch balances (current balances for a dry run).
	final, err := e.portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload portfolio: %w", err)
	}
	holdings, err := e.portfolios.GetHoldings(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload holdings: %w", err)
	}
	result.CashAfter = final.CurrentCash
	result.NAVAfter = portfolio.NAV(final, holdings)

	log.Info().
		Int("executed", result.Executed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Signal batch finished")
	return result, nil
}

// defaultModelCapital seeds portfolios auto-created for a model name.
var defaultModelCapital = decimal.NewFromInt(100000)

// ExecuteSignalsForModel runs a signal batch against the portfolio linked
// to a model name, creating the portfolio on first use.
func (e *Engine) ExecuteSignalsForModel(model string, signals []Signal, dryRun bool) (*BatchResult, error) {
	p, err := e.modelPortfolio(model)
	if err != nil {
		return nil, err
	}

	result, err := e.ExecuteSignals(p.ID, signals, dryRun)
	if err != nil {
		return nil, err
	}
	result.ModelName = model
	return result, nil
}

// modelPortfolio resolves the portfolio behind a model name. The lookup and
// create run under one lock so two concurrent first batches for the same
// model cannot create two portfolios.
func (e *Engine) modelPortfolio(model string) (*portfolio.Portfolio, error) {
	e.modelMu.Lock()
	defer e.modelMu.Unlock()

	p, err := e.portfolios.GetByModelName(model)
	if err != nil {
		return nil, fmt.Errorf("failed to look up model portfolio: %w", err)
	}
	if p != nil {
		return p, nil
	}

	p, err = e.portfolios.Create(&portfolio.Portfolio{
		Name:           model,
		Description:    "Auto-created for model " + model,
		InitialCapital: defaultModelCapital,
		ModelName:      model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model portfolio: %w", err)
	}
	e.log.Info().Str("model", model).Int64("portfolio_id", p.ID).Msg("Model portfolio created")
	return p, nil
}

// runBatch executes each leg through the order engine; every order commits
// or rolls back on its own, so one failed signal never unwinds the rest.
func (e *Engine) runBatch(p *portfolio.Portfolio, sells, buys []Signal, result *BatchResult, log zerolog.Logger) {
	for _, s := range sells {
		holding, err := e.portfolios.GetHolding(p.ID, s.AssetClass, s.Ticker)
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		if holding == nil {
			result.record(skippedResult(s, "no position to sell"))
			continue
		}

		conf, err := e.executeLocked(Request{
			PortfolioID: p.ID,
			AssetClass:  s.AssetClass,
			Ticker:      s.Ticker,
			Side:        domain.OrderSell,
			Quantity:    holding.Quantity,
		})
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		result.record(confirmationResult(s, conf))
	}

	for _, s := range buys {
		qty, verdict, err := e.sizeBuy(p.ID, s)
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		if verdict != nil {
			result.record(*verdict)
			continue
		}

		conf, err := e.executeLocked(Request{
			PortfolioID: p.ID,
			AssetClass:  s.AssetClass,
			Ticker:      s.Ticker,
			Side:        domain.OrderBuy,
			Quantity:    qty,
		})
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		log.Debug().Str("ticker", s.Ticker).Str("status", string(conf.Status)).Msg("Buy signal processed")
		result.record(confirmationResult(s, conf))
	}
}

// planBatch simulates the batch against in-memory balances without
// touching the store. Outcomes mirror the live path: an unpriced signal is
// a failure, an unsizable one a skip.
func (e *Engine) planBatch(p *portfolio.Portfolio, sells, buys []Signal, result *BatchResult, log zerolog.Logger) {
	cash := p.CurrentCash
	feePolicy, err := e.feePolicy(p)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load fee structure for dry run")
		feePolicy = nil
	}

	for _, s := range sells {
		holding, err := e.portfolios.GetHolding(p.ID, s.AssetClass, s.Ticker)
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		if holding == nil {
			result.record(skippedResult(s, "no position to sell"))
			continue
		}
		price, found, err := e.planPrice(s)
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		if !found {
			result.record(failedResult(s, StatusInvalidAsset, "no price available"))
			continue
		}

		notional := holding.Quantity.Mul(price)
		fee := decimal.Zero
		if feePolicy != nil {
			fee = feePolicy.CalculateFee(notional)
		}
		cash = cash.Add(notional.Sub(fee)).Round(2)
		result.record(SignalResult{
			AssetClass: s.AssetClass, Ticker: s.Ticker, Side: domain.OrderSell,
			Status: StatusSuccess, Quantity: holding.Quantity, Price: price, Fee: fee,
		})
	}

	for _, s := range buys {
		price, found, err := e.planPrice(s)
		if err != nil {
			result.record(failedResult(s, StatusValidationError, err.Error()))
			continue
		}
		if !found {
			result.record(failedResult(s, StatusInvalidAsset, "no price available"))
			continue
		}

		qty := s.Quantity.Round(8)
		if !qty.IsPositive() {
			if !s.Weight.IsPositive() {
				result.record(skippedResult(s, "buy signal has no quantity or positive weight"))
				continue
			}
			qty = buyQuantity(s.Weight, cash, price)
			if qty.IsZero() {
				result.record(skippedResult(s, "weight sizes to zero quantity"))
				continue
			}
		}

		notional := qty.Mul(price)
		fee := decimal.Zero
		if feePolicy != nil {
			fee = feePolicy.CalculateFee(notional)
		}
		total := notional.Add(fee).Round(2)
		if total.GreaterThan(cash) {
			result.record(failedResult(s, StatusInsufficientCash, "insufficient cash after fees"))
			continue
		}
		cash = cash.Sub(total)
		result.record(SignalResult{
			AssetClass: s.AssetClass, Ticker: s.Ticker, Side: domain.OrderBuy,
			Status: StatusSuccess, Quantity: qty, Price: price, Fee: fee,
		})
	}
}

// planPrice resolves the dry-run price for a signal: the caller's price
// hint when given, otherwise the oracle.
func (e *Engine) planPrice(s Signal) (decimal.Decimal, bool, error) {
	if s.CurrentPrice.IsPositive() {
		return s.CurrentPrice, true, nil
	}
	return e.oracle.GetPrice(s.Ticker, s.AssetClass)
}

// sizeBuy converts a buy signal into a concrete quantity against the
// current cash balance. A non-nil verdict means the signal does not reach
// the engine and the verdict is recorded as-is (skip or failure).
func (e *Engine) sizeBuy(portfolioID int64, s Signal) (decimal.Decimal, *SignalResult, error) {
	if s.Quantity.IsPositive() {
		return s.Quantity.Round(8), nil, nil
	}
	if !s.Weight.IsPositive() {
		r := skippedResult(s, "buy signal has no quantity or positive weight")
		return decimal.Zero, &r, nil
	}

	p, err := e.portfolios.GetByID(portfolioID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	price, found, err := e.oracle.GetPrice(s.Ticker, s.AssetClass)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if !found || !price.IsPositive() {
		r := failedResult(s, StatusInvalidAsset, "no price available")
		return decimal.Zero, &r, nil
	}

	qty := buyQuantity(s.Weight, p.CurrentCash, price)
	if qty.IsZero() {
		r := skippedResult(s, "weight sizes to zero quantity")
		return decimal.Zero, &r, nil
	}
	return qty, nil, nil
}

// buyQuantity sizes a buy as weight × cash / price, floored to 8 decimal
// places so the sized order never exceeds the budget.
func buyQuantity(weight, cash, price decimal.Decimal) decimal.Decimal {
	if !weight.IsPositive() || !cash.IsPositive() || !price.IsPositive() {
		return decimal.Zero
	}
	return weight.Mul(cash).Div(price).RoundDown(8)
}

func (b *BatchResult) record(r SignalResult) {
	b.Results = append(b.Results, r)
	switch {
	case r.Skipped:
		b.Skipped++
	case r.Status.OK():
		b.Executed++
	default:
		b.Failed++
	}
}

func confirmationResult(s Signal, conf Confirmation) SignalResult {
	side := conf.Side
	if side == "" {
		side = s.Side
	}
	return SignalResult{
		AssetClass: s.AssetClass,
		Ticker:     s.Ticker,
		Side:       side,
		Status:     conf.Status,
		Reason:     conf.Reason,
		Quantity:   conf.Quantity,
		Price:      conf.Price,
		Fee:        conf.Fee,
	}
}

func failedResult(s Signal, status Status, reason string) SignalResult {
	return SignalResult{
		AssetClass: s.AssetClass, Ticker: s.Ticker, Side: s.Side,
		Status: status, Reason: reason,
	}
}

func skippedResult(s Signal, reason string) SignalResult {
	return SignalResult{
		AssetClass: s.AssetClass, Ticker: s.Ticker, Side: s.Side,
		Reason: reason, Skipped: true,
	}
}
