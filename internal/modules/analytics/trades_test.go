package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func txn(side domain.OrderSide, ticker, qty, price, fee string) portfolio.Transaction {
	return portfolio.Transaction{
		AssetClass: domain.AssetStock,
		Ticker:     ticker,
		Side:       side,
		Quantity:   dec(qty),
		Price:      dec(price),
		Fee:        dec(fee),
	}
}

func TestMatchTradesFIFOAcrossLots(t *testing.T) {
	ledger := []portfolio.Transaction{
		txn(domain.OrderBuy, "AAPL", "10", "100", "0"),
		txn(domain.OrderBuy, "AAPL", "10", "110", "0"),
		txn(domain.OrderSell, "AAPL", "15", "120", "0"),
	}

	outcomes := MatchTrades(ledger)
	require.Len(t, outcomes, 2)

	// First the oldest lot closes in full.
	assert.True(t, outcomes[0].Quantity.Equal(dec("10")))
	assert.True(t, outcomes[0].EntryPrice.Equal(dec("100")))
	assert.True(t, outcomes[0].PL.Equal(dec("200")))

	// Then 5 units of the second lot.
	assert.True(t, outcomes[1].Quantity.Equal(dec("5")))
	assert.True(t, outcomes[1].EntryPrice.Equal(dec("110")))
	assert.True(t, outcomes[1].PL.Equal(dec("50")))
}

func TestMatchTradesProratesFees(t *testing.T) {
	ledger := []portfolio.Transaction{
		txn(domain.OrderBuy, "AAPL", "10", "100", "10"), // 1 per unit
		txn(domain.OrderSell, "AAPL", "5", "100", "5"),  // 1 per unit
	}

	outcomes := MatchTrades(ledger)
	require.Len(t, outcomes, 1)
	// Flat price, so P/L is exactly the prorated fees: 5 × (1 + 1).
	assert.True(t, outcomes[0].PL.Equal(dec("-10")), "pl = %s", outcomes[0].PL)
}

func TestMatchTradesSeparatesTickers(t *testing.T) {
	ledger := []portfolio.Transaction{
		txn(domain.OrderBuy, "AAPL", "10", "100", "0"),
		txn(domain.OrderBuy, "MSFT", "10", "200", "0"),
		txn(domain.OrderSell, "MSFT", "10", "210", "0"),
	}

	outcomes := MatchTrades(ledger)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "MSFT", outcomes[0].Ticker)
	assert.True(t, outcomes[0].PL.Equal(dec("100")))
}

func TestMatchTradesIgnoresUnmatchedSells(t *testing.T) {
	ledger := []portfolio.Transaction{
		txn(domain.OrderSell, "AAPL", "10", "100", "0"),
	}
	assert.Empty(t, MatchTrades(ledger))
}

func TestComputeTradeStats(t *testing.T) {
	outcomes := []TradeOutcome{
		{PL: dec("100")},
		{PL: dec("50")},
		{PL: dec("-30")},
		{PL: dec("0")}, // break-even: counted, neither win nor loss
	}

	stats := ComputeTradeStats(outcomes)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	require.NotNil(t, stats.WinRate)
	assert.InDelta(t, 50.0, *stats.WinRate, 1e-9)
	require.NotNil(t, stats.AvgWin)
	assert.InDelta(t, 75.0, *stats.AvgWin, 1e-9)
	require.NotNil(t, stats.AvgLoss)
	assert.InDelta(t, -30.0, *stats.AvgLoss, 1e-9)
}

func TestComputeTradeStatsEmpty(t *testing.T) {
	stats := ComputeTradeStats(nil)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Nil(t, stats.WinRate)
	assert.Nil(t, stats.AvgWin)
	assert.Nil(t, stats.AvgLoss)
}
