package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
)

// TradeOutcome is one closed round-trip produced by matching a sell
// against the oldest open buy lots (FIFO). A sell that spans several lots
// produces one outcome per lot consumed.
type TradeOutcome struct {
	Ticker     string          `json:"ticker"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	PL         decimal.Decimal `json:"pl"`         // net of prorated fees
	ReturnPct  float64         `json:"return_pct"` // against entry cost
}

// TradeStats aggregates closed-trade outcomes.
type TradeStats struct {
	TotalTrades int      `json:"total_trades"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	WinRate     *float64 `json:"win_rate"` // percent, nil with no closed trades
	AvgWin      *float64 `json:"avg_win"`
	AvgLoss     *float64 `json:"avg_loss"` // negative
}

type lot struct {
	quantity   decimal.Decimal
	price      decimal.Decimal
	feePerUnit decimal.Decimal
}

// MatchTrades replays the ledger and closes sells against open buy lots in
// FIFO order. Buy and sell fees are prorated per unit so the outcome P/L
// is net of costs. Sells without a matching lot (imported positions) are
// ignored.
func MatchTrades(ledger []portfolio.Transaction) []TradeOutcome {
	open := make(map[string][]lot)
	var outcomes []TradeOutcome

	for _, t := range ledger {
		key := string(t.AssetClass) + ":" + t.Ticker

		if t.Side.IsBuy() {
			feePerUnit := decimal.Zero
			if t.Quantity.IsPositive() {
				feePerUnit = t.Fee.Div(t.Quantity)
			}
			open[key] = append(open[key], lot{
				quantity:   t.Quantity,
				price:      t.Price,
				feePerUnit: feePerUnit,
			})
			continue
		}

		sellFeePerUnit := decimal.Zero
		if t.Quantity.IsPositive() {
			sellFeePerUnit = t.Fee.Div(t.Quantity)
		}

		remaining := t.Quantity
		queue := open[key]
		for remaining.IsPositive() && len(queue) > 0 {
			head := &queue[0]
			take := decimal.Min(head.quantity, remaining)

			gross := t.Price.Sub(head.price).Mul(take)
			costs := head.feePerUnit.Add(sellFeePerUnit).Mul(take)
			pl := gross.Sub(costs).Round(2)

			entryCost := head.price.Mul(take)
			returnPct := 0.0
			if entryCost.IsPositive() {
				returnPct, _ = pl.Div(entryCost).Mul(decimal.NewFromInt(100)).Float64()
			}

			outcomes = append(outcomes, TradeOutcome{
				Ticker:     t.Ticker,
				Quantity:   take,
				EntryPrice: head.price,
				ExitPrice:  t.Price,
				PL:         pl,
				ReturnPct:  returnPct,
			})

			head.quantity = head.quantity.Sub(take)
			remaining = remaining.Sub(take)
			if head.quantity.IsZero() {
				queue = queue[1:]
			}
		}
		open[key] = queue
	}

	return outcomes
}

// ComputeTradeStats summarizes matched outcomes. Break-even trades count
// toward the total but are neither wins nor losses.
func ComputeTradeStats(outcomes []TradeOutcome) TradeStats {
	stats := TradeStats{TotalTrades: len(outcomes)}
	if len(outcomes) == 0 {
		return stats
	}

	winSum, lossSum := decimal.Zero, decimal.Zero
	for _, o := range outcomes {
		switch {
		case o.PL.IsPositive():
			stats.Wins++
			winSum = winSum.Add(o.PL)
		case o.PL.IsNegative():
			stats.Losses++
			lossSum = lossSum.Add(o.PL)
		}
	}

	winRate := float64(stats.Wins) / float64(stats.TotalTrades) * 100
	stats.WinRate = &winRate

	if stats.Wins > 0 {
		avgWin, _ := winSum.Div(decimal.NewFromInt(int64(stats.Wins))).Round(2).Float64()
		stats.AvgWin = &avgWin
	}
	if stats.Losses > 0 {
		avgLoss, _ := lossSum.Div(decimal.NewFromInt(int64(stats.Losses))).Round(2).Float64()
		stats.AvgLoss = &avgLoss
	}
	return stats
}
