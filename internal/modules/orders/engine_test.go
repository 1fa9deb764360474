package orders

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonberkemeier/PortfolioSimulation/internal/database"
	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/fees"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// mapOracle serves fixed prices keyed by ticker.
type mapOracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newMapOracle(prices map[string]string) *mapOracle {
	o := &mapOracle{prices: make(map[string]decimal.Decimal)}
	for ticker, price := range prices {
		o.prices[ticker] = dec(price)
	}
	return o
}

func (o *mapOracle) GetPrice(ticker string, class domain.AssetClass) (decimal.Decimal, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	price, ok := o.prices[ticker]
	return price, ok, nil
}

func (o *mapOracle) setPrice(ticker, price string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[ticker] = dec(price)
}

type testEnv struct {
	portfolios *portfolio.Repository
	fees       *fees.Repository
	oracle     *mapOracle
	engine     *Engine
}

func newTestEnv(t *testing.T, prices map[string]string) *testEnv {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	env := &testEnv{
		portfolios: portfolio.NewRepository(db.Conn(), zerolog.Nop()),
		fees:       fees.NewRepository(db.Conn(), zerolog.Nop()),
		oracle:     newMapOracle(prices),
	}
	env.engine = NewEngine(env.portfolios, env.fees, env.oracle, zerolog.Nop())
	return env
}

func (env *testEnv) createPortfolio(t *testing.T, p *portfolio.Portfolio) *portfolio.Portfolio {
	t.Helper()
	created, err := env.portfolios.Create(p)
	require.NoError(t, err)
	return created
}

func (env *testEnv) buy(t *testing.T, portfolioID int64, ticker, qty string) Confirmation {
	t.Helper()
	conf, err := env.engine.Execute(Request{
		PortfolioID: portfolioID,
		AssetClass:  domain.AssetStock,
		Ticker:      ticker,
		Side:        domain.OrderBuy,
		Quantity:    dec(qty),
	})
	require.NoError(t, err)
	return conf
}

func (env *testEnv) sell(t *testing.T, portfolioID int64, ticker, qty string) Confirmation {
	t.Helper()
	conf, err := env.engine.Execute(Request{
		PortfolioID: portfolioID,
		AssetClass:  domain.AssetStock,
		Ticker:      ticker,
		Side:        domain.OrderSell,
		Quantity:    dec(qty),
	})
	require.NoError(t, err)
	return conf
}

// The canonical zero-fee lifecycle: two buys average the entry price, a
// full sell removes the holding and the final cash reflects the profit.
func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Life", InitialCapital: dec("10000")})

	conf := env.buy(t, p.ID, "AAPL", "10")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.True(t, conf.CashAfter.Equal(dec("9000")), "cash = %s", conf.CashAfter)

	env.oracle.setPrice("AAPL", "110")
	conf = env.buy(t, p.ID, "AAPL", "10")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.True(t, conf.CashAfter.Equal(dec("7900")), "cash = %s", conf.CashAfter)

	h, err := env.portfolios.GetHolding(p.ID, domain.AssetStock, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(dec("20")))
	assert.True(t, h.EntryPrice.Equal(dec("105")), "avg entry = %s", h.EntryPrice)

	env.oracle.setPrice("AAPL", "120")
	conf = env.sell(t, p.ID, "AAPL", "20")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.True(t, conf.CashAfter.Equal(dec("10300")), "cash = %s", conf.CashAfter)
	require.NotNil(t, conf.RealizedPL)
	assert.True(t, conf.RealizedPL.Equal(dec("300")), "realized = %s", conf.RealizedPL)

	// Fully sold holdings are removed, not kept as zero rows.
	h, err = env.portfolios.GetHolding(p.ID, domain.AssetStock, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h)

	txns, err := env.portfolios.GetTransactions(p.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestBuyRejectionsLeavePortfolioUntouched(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Strict", InitialCapital: dec("1000")})

	cases := []struct {
		name   string
		ticker string
		qty    string
		status Status
	}{
		{"unknown ticker", "NOPE", "1", StatusInvalidAsset},
		{"costs more than cash", "AAPL", "11", StatusInsufficientCash},
		{"zero quantity", "AAPL", "0", StatusValidationError},
		{"negative quantity", "AAPL", "-5", StatusValidationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := env.buy(t, p.ID, tc.ticker, tc.qty)
			assert.Equal(t, tc.status, conf.Status)
			assert.NotEmpty(t, conf.Reason)
		})
	}

	// No rejection touched cash or created rows.
	got, err := env.portfolios.GetByID(p.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentCash.Equal(dec("1000")))
	txns, err := env.portfolios.GetTransactions(p.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestSellRejections(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Sells", InitialCapital: dec("10000")})

	conf := env.sell(t, p.ID, "AAPL", "1")
	assert.Equal(t, StatusInsufficientHoldings, conf.Status)

	require.Equal(t, StatusSuccess, env.buy(t, p.ID, "AAPL", "5").Status)

	conf = env.sell(t, p.ID, "AAPL", "6")
	assert.Equal(t, StatusInsufficientHoldings, conf.Status)

	// Partial sell keeps the holding with entry price unchanged.
	conf = env.sell(t, p.ID, "AAPL", "2")
	require.Equal(t, StatusSuccess, conf.Status)
	h, err := env.portfolios.GetHolding(p.ID, domain.AssetStock, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(dec("3")))
	assert.True(t, h.EntryPrice.Equal(dec("100")))
}

func TestPositionSizeLimit(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:            "Sized",
		InitialCapital:  dec("10000"),
		MaxPositionSize: decPtr("25"),
	})

	// 20 × 100 = 2000 = 20% of NAV: allowed.
	require.Equal(t, StatusSuccess, env.buy(t, p.ID, "AAPL", "20").Status)

	// Another 10 shares would make the position 30% of NAV.
	conf := env.buy(t, p.ID, "AAPL", "10")
	assert.Equal(t, StatusPositionSizeLimit, conf.Status)
}

func TestAllocationLimitSpansTickersInClass(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100", "MSFT": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:                       "Allocated",
		InitialCapital:             dec("10000"),
		MaxAllocationPerAssetClass: decPtr("40"),
	})

	require.Equal(t, StatusSuccess, env.buy(t, p.ID, "AAPL", "30").Status)

	// 3000 existing stock + 2000 new MSFT = 50% of NAV, above the 40% cap.
	conf := env.buy(t, p.ID, "MSFT", "20")
	assert.Equal(t, StatusAllocationLimit, conf.Status)

	// A smaller order inside the cap still goes through.
	assert.Equal(t, StatusSuccess, env.buy(t, p.ID, "MSFT", "10").Status)
}

func TestMaxCashPerTrade(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:            "Capped",
		InitialCapital:  dec("10000"),
		MaxCashPerTrade: decPtr("500"),
	})

	// A breached per-trade cap is an allocation rejection, not a malformed
	// request.
	conf := env.buy(t, p.ID, "AAPL", "6")
	assert.Equal(t, StatusAllocationLimit, conf.Status)
	assert.Contains(t, conf.Reason, "per-trade cap")

	assert.Equal(t, StatusSuccess, env.buy(t, p.ID, "AAPL", "5").Status)
}

// Validation short-circuits in a fixed order: cash, then position size,
// then the per-trade cap. An order breaching both limits reports the
// position-size breach.
func TestBuyValidationOrder(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:            "Ordered",
		InitialCapital:  dec("10000"),
		MaxPositionSize: decPtr("10"),
		MaxCashPerTrade: decPtr("500"),
	})

	// 600 cost: 6% of NAV is fine but the cap is 500.
	conf := env.buy(t, p.ID, "AAPL", "6")
	assert.Equal(t, StatusAllocationLimit, conf.Status)

	// 1100 cost breaches both the 10% position limit and the cap; the
	// position-size check runs first.
	conf = env.buy(t, p.ID, "AAPL", "11")
	assert.Equal(t, StatusPositionSizeLimit, conf.Status)

	// Insufficient cash still wins over everything.
	conf = env.buy(t, p.ID, "AAPL", "101")
	assert.Equal(t, StatusInsufficientCash, conf.Status)
}

func TestConfirmationCarriesContext(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Ctx", InitialCapital: dec("10000")})

	conf := env.buy(t, p.ID, "AAPL", "10")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.False(t, conf.Timestamp.IsZero())
	assert.NotEmpty(t, conf.Message)
	require.NotNil(t, conf.TransactionID)

	txns, err := env.portfolios.GetTransactions(p.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txns[0].ID, *conf.TransactionID)

	// Rejections echo the requested order and carry no transaction id.
	conf = env.buy(t, p.ID, "AAPL", "200")
	require.Equal(t, StatusInsufficientCash, conf.Status)
	assert.Equal(t, p.ID, conf.PortfolioID)
	assert.Equal(t, "AAPL", conf.Ticker)
	assert.True(t, conf.Quantity.Equal(dec("200")))
	assert.True(t, conf.Price.Equal(dec("100")))
	assert.False(t, conf.Timestamp.IsZero())
	assert.NotEmpty(t, conf.Message)
	assert.Nil(t, conf.TransactionID)
}

func TestPercentFeeAppliedBothWays(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})

	policy, err := fees.New("broker", domain.FeePercent, dec("1"))
	require.NoError(t, err)
	created, err := env.fees.Create(policy)
	require.NoError(t, err)

	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:           "Fees",
		InitialCapital: dec("10000"),
		FeeStructureID: &created.ID,
	})

	// Buy 10 @ 100: notional 1000, fee 10, cash 10000 - 1010.
	conf := env.buy(t, p.ID, "AAPL", "10")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.True(t, conf.Fee.Equal(dec("10")))
	assert.True(t, conf.CashAfter.Equal(dec("8990")), "cash = %s", conf.CashAfter)

	// Sell at the same price: proceeds 1000 - 10, realized P/L is -fee.
	conf = env.sell(t, p.ID, "AAPL", "10")
	require.Equal(t, StatusSuccess, conf.Status)
	assert.True(t, conf.CashAfter.Equal(dec("9980")), "cash = %s", conf.CashAfter)
	require.NotNil(t, conf.RealizedPL)
	assert.True(t, conf.RealizedPL.Equal(dec("-10")))
}

func TestFeeCountsAgainstCashCheck(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})

	policy, err := fees.New("flat", domain.FeeFlat, dec("5"))
	require.NoError(t, err)
	created, err := env.fees.Create(policy)
	require.NoError(t, err)

	p := env.createPortfolio(t, &portfolio.Portfolio{
		Name:           "Tight",
		InitialCapital: dec("1000"),
		FeeStructureID: &created.ID,
	})

	// Notional alone fits, notional + fee does not.
	conf := env.buy(t, p.ID, "AAPL", "10")
	assert.Equal(t, StatusInsufficientCash, conf.Status)
}

func TestInactivePortfolioRejectsOrders(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "100"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Gone", InitialCapital: dec("1000")})
	require.NoError(t, env.portfolios.SetStatus(p.ID, domain.PortfolioArchived))

	conf := env.buy(t, p.ID, "AAPL", "1")
	assert.Equal(t, StatusValidationError, conf.Status)
	assert.Contains(t, conf.Reason, "not active")
}

// Concurrent buys against one portfolio must serialize: total spend equals
// the sum of the individual orders with no lost update on cash.
func TestConcurrentOrdersSerialize(t *testing.T) {
	env := newTestEnv(t, map[string]string{"AAPL": "10"})
	p := env.createPortfolio(t, &portfolio.Portfolio{Name: "Race", InitialCapital: dec("10000")})

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conf, err := env.engine.Execute(Request{
				PortfolioID: p.ID,
				AssetClass:  domain.AssetStock,
				Ticker:      "AAPL",
				Side:        domain.OrderBuy,
				Quantity:    dec("10"),
			})
			assert.NoError(t, err)
			assert.Equal(t, StatusSuccess, conf.Status)
		}()
	}
	wg.Wait()

	got, err := env.portfolios.GetByID(p.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentCash.Equal(dec("9200")), "cash = %s", got.CurrentCash)

	h, err := env.portfolios.GetHolding(p.ID, domain.AssetStock, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(dec("80")))
}
