package portfolio

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonberkemeier/PortfolioSimulation/internal/database"
	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
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

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestHoldingCurrentValueFallsBackToEntryPrice(t *testing.T) {
	h := Holding{Quantity: dec("10"), EntryPrice: dec("100")}
	assert.True(t, h.CurrentValue().Equal(dec("1000")))

	h.CurrentPrice = decPtr("120")
	assert.True(t, h.CurrentValue().Equal(dec("1200")))
	assert.True(t, h.UnrealizedPL().Equal(dec("200")))
}

func TestNAVAndTotalReturn(t *testing.T) {
	p := &Portfolio{InitialCapital: dec("10000"), CurrentCash: dec("5000")}
	holdings := []Holding{
		{AssetClass: domain.AssetStock, Quantity: dec("10"), EntryPrice: dec("100"), CurrentPrice: decPtr("120")},
		{AssetClass: domain.AssetCrypto, Quantity: dec("2"), EntryPrice: dec("2000")},
	}

	nav := NAV(p, holdings)
	assert.True(t, nav.Equal(dec("10200")), "nav = %s", nav)
	assert.InDelta(t, 2.0, TotalReturnPct(p, nav), 1e-9)
}

func TestTotalReturnZeroInitialCapital(t *testing.T) {
	p := &Portfolio{InitialCapital: decimal.Zero, CurrentCash: dec("100")}
	assert.Equal(t, 0.0, TotalReturnPct(p, dec("100")))
}

func TestAllocationSumsToHundred(t *testing.T) {
	p := &Portfolio{InitialCapital: dec("10000"), CurrentCash: dec("2500")}
	holdings := []Holding{
		{AssetClass: domain.AssetStock, Quantity: dec("50"), EntryPrice: dec("100")},
		{AssetClass: domain.AssetBond, Quantity: dec("25"), EntryPrice: dec("100")},
	}

	allocation := Allocation(p, holdings)
	assert.InDelta(t, 50.0, allocation["stock"], 1e-9)
	assert.InDelta(t, 25.0, allocation["bond"], 1e-9)
	assert.InDelta(t, 25.0, allocation["cash"], 1e-9)
	assert.Equal(t, 0.0, allocation["crypto"])

	total := 0.0
	for _, pct := range allocation {
		total += pct
	}
	assert.InDelta(t, 100.0, total, 1e-9)
}

func TestAllocationEmptyAtZeroNAV(t *testing.T) {
	p := &Portfolio{InitialCapital: decimal.Zero, CurrentCash: decimal.Zero}
	assert.Empty(t, Allocation(p, nil))
}

func TestValueIncludesAnnualIncome(t *testing.T) {
	p := &Portfolio{InitialCapital: dec("10000"), CurrentCash: dec("5000")}
	holdings := []Holding{
		{AssetClass: domain.AssetStock, Quantity: dec("10"), EntryPrice: dec("100"),
			DividendYield: decPtr("3.5")},
	}

	v := Value(p, holdings)
	assert.True(t, v.AnnualIncome.Equal(dec("35")), "income = %s", v.AnnualIncome)
	assert.Equal(t, 1, v.PositionCount)
	assert.True(t, v.DeployedCapital.Equal(dec("1000")))
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Portfolio{
		Name:            "Growth",
		Description:     "Aggressive growth",
		InitialCapital:  dec("10000"),
		MaxPositionSize: decPtr("25"),
		ModelName:       "momentum-v1",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.True(t, created.CurrentCash.Equal(dec("10000")), "cash starts at initial capital")

	got, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Growth", got.Name)
	assert.Equal(t, domain.PortfolioActive, got.Status)
	assert.True(t, got.InitialCapital.Equal(dec("10000")))
	require.NotNil(t, got.MaxPositionSize)
	assert.True(t, got.MaxPositionSize.Equal(dec("25")))
	assert.Nil(t, got.MaxCashPerTrade)

	byModel, err := repo.GetByModelName("momentum-v1")
	require.NoError(t, err)
	require.NotNil(t, byModel)
	assert.Equal(t, created.ID, byModel.ID)
}

func TestRepositoryGetByIDMissing(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryStatusLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	p, err := repo.Create(&Portfolio{Name: "Lifecycle", InitialCapital: dec("1000")})
	require.NoError(t, err)

	require.NoError(t, repo.SetStatus(p.ID, domain.PortfolioArchived))

	active, err := repo.ListByStatus(domain.PortfolioActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	archived, err := repo.ListByStatus(domain.PortfolioArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, p.ID, archived[0].ID)

	assert.Error(t, repo.SetStatus(p.ID, domain.PortfolioStatus("bogus")))
}

func TestRepositoryHoldingRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	p, err := repo.Create(&Portfolio{Name: "Holdings", InitialCapital: dec("10000")})
	require.NoError(t, err)

	tx, err := repo.DB().Begin()
	require.NoError(t, err)
	h := &Holding{
		PortfolioID: p.ID,
		AssetClass:  domain.AssetStock,
		Ticker:      "AAPL",
		Quantity:    dec("10.5"),
		EntryPrice:  dec("101.23456789"),
	}
	require.NoError(t, repo.InsertHoldingTx(tx, h))
	require.NoError(t, tx.Commit())

	got, err := repo.GetHolding(p.ID, domain.AssetStock, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Quantity.Equal(dec("10.5")))
	// Prices round-trip at 8 decimal places.
	assert.True(t, got.EntryPrice.Equal(dec("101.23456789")), "entry = %s", got.EntryPrice)

	missing, err := repo.GetHolding(p.ID, domain.AssetStock, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryLedgerOrder(t *testing.T) {
	repo := newTestRepo(t)
	p, err := repo.Create(&Portfolio{Name: "Ledger", InitialCapital: dec("10000")})
	require.NoError(t, err)

	for _, ticker := range []string{"AAPL", "BTC"} {
		tx, err := repo.DB().Begin()
		require.NoError(t, err)
		require.NoError(t, repo.InsertTransactionTx(tx, &Transaction{
			PortfolioID: p.ID,
			AssetClass:  domain.AssetStock,
			Ticker:      ticker,
			Side:        domain.OrderBuy,
			Quantity:    dec("1"),
			Price:       dec("100"),
			Fee:         dec("1"),
			TotalCost:   dec("101"),
		}))
		require.NoError(t, tx.Commit())
	}

	txns, err := repo.GetTransactions(p.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "AAPL", txns[0].Ticker)
	assert.Equal(t, "BTC", txns[1].Ticker)
	assert.True(t, txns[0].TotalCost.Equal(dec("101")))
}

func TestRepositorySnapshotConflict(t *testing.T) {
	repo := newTestRepo(t)
	p, err := repo.Create(&Portfolio{Name: "Snaps", InitialCapital: dec("10000")})
	require.NoError(t, err)

	s := &Snapshot{PortfolioID: p.ID, Date: "2026-08-20",
		NAV: dec("10100"), TotalReturn: dec("1"), CashBalance: dec("10100")}
	require.NoError(t, repo.CreateSnapshot(s, false))

	// Overwrite is the default.
	s.NAV = dec("10200")
	require.NoError(t, repo.CreateSnapshot(s, false))

	// Strict mode refuses the duplicate date.
	err = repo.CreateSnapshot(s, true)
	assert.ErrorIs(t, err, ErrSnapshotExists)

	snapshots, err := repo.GetSnapshots(p.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].NAV.Equal(dec("10200")))
}
