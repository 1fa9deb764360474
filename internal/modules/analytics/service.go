package analytics

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/pricing"
	"github.com/leonberkemeier/PortfolioSimulation/pkg/formulas"
)

// Service computes snapshots and derives performance and risk metrics from
// the snapshot series and the ledger.
type Service struct {
	portfolios *portfolio.Repository
	repo       *Repository
	oracle     pricing.Oracle
	log        zerolog.Logger
}

// NewService creates a new analytics service.
func NewService(portfolios *portfolio.Repository, repo *Repository, oracle pricing.Oracle, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		repo:       repo,
		oracle:     oracle,
		log:        log.With().Str("component", "analytics").Logger(),
	}
}

// Snapshot records one NAV point for a portfolio on the given date
// (YYYY-MM-DD, empty means today). Holdings are marked to the oracle's
// current prices first.
func (s *Service) Snapshot(portfolioID int64, date string, errorOnConflict bool) (*portfolio.Snapshot, error) {
	p, err := s.portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio %d not found", portfolioID)
	}

	holdings, err := s.portfolios.GetHoldings(portfolioID)
	if err != nil {
		return nil, err
	}
	s.markToMarket(holdings)

	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	nav := portfolio.NAV(p, holdings)
	snap := &portfolio.Snapshot{
		PortfolioID: portfolioID,
		Date:        date,
		NAV:         nav.Round(2),
		TotalReturn: decimal.NewFromFloat(portfolio.TotalReturnPct(p, nav)).Round(4),
		CashBalance: p.CurrentCash,
	}
	if err := s.portfolios.CreateSnapshot(snap, errorOnConflict); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Str("date", date).
		Str("nav", snap.NAV.String()).
		Msg("Snapshot recorded")
	return snap, nil
}

// SnapshotAll records today's snapshot for every active portfolio.
// Failures are logged per portfolio so one bad portfolio never blocks the
// rest of the run.
func (s *Service) SnapshotAll() (int, error) {
	portfolios, err := s.portfolios.ListByStatus(domain.PortfolioActive)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, p := range portfolios {
		if _, err := s.Snapshot(p.ID, "", false); err != nil {
			s.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Snapshot failed")
			continue
		}
		recorded++
	}
	return recorded, nil
}

// ComputePerformance derives and persists a performance row from the
// snapshot series and the closed-trade outcomes, using the legacy
// risk-free assumption carried by stored rows.
func (s *Service) ComputePerformance(portfolioID int64) (*PerformanceMetric, error) {
	navs, err := s.navSeries(portfolioID)
	if err != nil {
		return nil, err
	}
	returns := formulas.Returns(navs)

	ledger, err := s.portfolios.GetTransactions(portfolioID)
	if err != nil {
		return nil, err
	}
	stats := ComputeTradeStats(MatchTrades(ledger))

	m := &PerformanceMetric{
		PortfolioID:  portfolioID,
		Date:         time.Now().UTC().Format("2006-01-02"),
		SharpeRatio:  formulas.CalculateSharpeRatio(returns, LegacyRiskFreeRate, PeriodsPerYear),
		SortinoRatio: formulas.CalculateSortinoRatio(returns, LegacyRiskFreeRate, PeriodsPerYear),
		MaxDrawdown:  formulas.CalculateMaxDrawdown(navs),
		Volatility:   formulas.AnnualizedVolatility(returns, PeriodsPerYear),
		WinRate:      stats.WinRate,
		AvgWin:       stats.AvgWin,
		AvgLoss:      stats.AvgLoss,
		TotalTrades:  stats.TotalTrades,
	}
	if err := s.repo.SavePerformance(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ComputeRisk derives and persists a risk row: Value-at-Risk, current
// drawdown, the live allocation map and a cash liquidity score.
func (s *Service) ComputeRisk(portfolioID int64) (*RiskMetric, error) {
	p, err := s.portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio %d not found", portfolioID)
	}

	holdings, err := s.portfolios.GetHoldings(portfolioID)
	if err != nil {
		return nil, err
	}
	s.markToMarket(holdings)

	navs, err := s.navSeries(portfolioID)
	if err != nil {
		return nil, err
	}
	returns := formulas.Returns(navs)

	m := &RiskMetric{
		PortfolioID:     portfolioID,
		Date:            time.Now().UTC().Format("2006-01-02"),
		VaR95:           formulas.CalculateValueAtRisk(returns, 0.95),
		VaR99:           formulas.CalculateValueAtRisk(returns, 0.99),
		AssetAllocation: portfolio.Allocation(p, holdings),
		LiquidityScore:  liquidityScore(p),
	}
	if dd := formulas.CalculateDrawdownMetrics(navs); dd != nil {
		m.CurrentDrawdown = &dd.CurrentDrawdownPct
	}
	if err := s.repo.SaveRisk(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Advanced computes the full on-demand report. When benchmarkID is
// non-nil, alpha and beta are regressed against that portfolio's snapshot
// series over the overlapping tail.
func (s *Service) Advanced(portfolioID int64, benchmarkID *int64) (*AdvancedReport, error) {
	navs, err := s.navSeries(portfolioID)
	if err != nil {
		return nil, err
	}
	returns := formulas.Returns(navs)

	ledger, err := s.portfolios.GetTransactions(portfolioID)
	if err != nil {
		return nil, err
	}

	report := &AdvancedReport{
		PortfolioID:  portfolioID,
		Observations: len(navs),
		SharpeRatio:  formulas.CalculateSharpeRatio(returns, RiskFreeRate, PeriodsPerYear),
		SortinoRatio: formulas.CalculateSortinoRatio(returns, RiskFreeRate, PeriodsPerYear),
		CalmarRatio:  formulas.CalculateCalmarRatio(navs, PeriodsPerYear),
		Volatility:   formulas.AnnualizedVolatility(returns, PeriodsPerYear),
		Drawdown:     formulas.CalculateDrawdownMetrics(navs),
		VaR95:        formulas.CalculateValueAtRisk(returns, 0.95),
		VaR99:        formulas.CalculateValueAtRisk(returns, 0.99),
		TradeStats:   ComputeTradeStats(MatchTrades(ledger)),
	}

	if benchmarkID != nil {
		benchNavs, err := s.navSeries(*benchmarkID)
		if err != nil {
			return nil, err
		}
		benchReturns := formulas.Returns(benchNavs)
		pr, br := alignTail(returns, benchReturns)
		report.AlphaBeta = formulas.CalculateAlphaBeta(pr, br, RiskFreeRate, PeriodsPerYear)
	}

	maxDDPct, volPct := 0.0, 0.0
	if report.Drawdown != nil {
		maxDDPct = report.Drawdown.MaxDrawdownPct
	}
	if report.Volatility != nil {
		volPct = *report.Volatility * 100
	}
	report.RiskLevel = formulas.AssessRisk(report.SharpeRatio, maxDDPct, volPct)

	return report, nil
}

func (s *Service) navSeries(portfolioID int64) ([]float64, error) {
	snapshots, err := s.portfolios.GetSnapshots(portfolioID)
	if err != nil {
		return nil, err
	}
	navs := make([]float64, len(snapshots))
	for i := range snapshots {
		navs[i], _ = snapshots[i].NAV.Float64()
	}
	return navs, nil
}

func (s *Service) markToMarket(holdings []portfolio.Holding) {
	for i := range holdings {
		price, found, err := s.oracle.GetPrice(holdings[i].Ticker, holdings[i].AssetClass)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", holdings[i].Ticker).Msg("Price lookup failed")
			continue
		}
		if found {
			holdings[i].CurrentPrice = &price
		}
	}
}

// liquidityScore grades how much of the initial capital is sitting in
// cash, capped at 100.
func liquidityScore(p *portfolio.Portfolio) float64 {
	if !p.InitialCapital.IsPositive() {
		return 0
	}
	score, _ := p.CurrentCash.Div(p.InitialCapital).Mul(decimal.NewFromInt(100)).Float64()
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// alignTail trims two return series to their common trailing length.
func alignTail(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}
