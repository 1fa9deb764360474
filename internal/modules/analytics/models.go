package analytics

import "github.com/leonberkemeier/PortfolioSimulation/pkg/formulas"

// Defaults for annualization and risk-free assumptions. The stored
// performance rows use the legacy rate; the advanced report uses the
// current one.
const (
	PeriodsPerYear     = 252
	RiskFreeRate       = 0.04
	LegacyRiskFreeRate = 0.02
)

// PerformanceMetric is one persisted row of return-based and trade-based
// statistics for a portfolio on a date. Nil pointers mean the underlying
// series was too short to define the statistic.
type PerformanceMetric struct {
	ID           int64    `json:"id"`
	PortfolioID  int64    `json:"portfolio_id"`
	Date         string   `json:"date"` // YYYY-MM-DD
	SharpeRatio  *float64 `json:"sharpe_ratio"`
	SortinoRatio *float64 `json:"sortino_ratio"`
	MaxDrawdown  *float64 `json:"max_drawdown"` // negative fraction
	Volatility   *float64 `json:"volatility"`   // annualized, fraction
	WinRate      *float64 `json:"win_rate"`     // percent of closed trades
	AvgWin       *float64 `json:"avg_win"`
	AvgLoss      *float64 `json:"avg_loss"`
	TotalTrades  int      `json:"total_trades"`
}

// RiskMetric is one persisted row of downside-risk measures for a
// portfolio on a date.
type RiskMetric struct {
	ID              int64              `json:"id"`
	PortfolioID     int64              `json:"portfolio_id"`
	Date            string             `json:"date"`
	VaR95           *float64           `json:"var_95"` // negative fraction
	VaR99           *float64           `json:"var_99"`
	CurrentDrawdown *float64           `json:"current_drawdown"` // negative percent
	AssetAllocation map[string]float64 `json:"asset_allocation"`
	LiquidityScore  float64            `json:"liquidity_score"` // 0-100
}

// AdvancedReport is the on-demand full risk/performance view. It is
// computed, never persisted.
type AdvancedReport struct {
	PortfolioID     int64                     `json:"portfolio_id"`
	Observations    int                       `json:"observations"`
	SharpeRatio     *float64                  `json:"sharpe_ratio"`
	SortinoRatio    *float64                  `json:"sortino_ratio"`
	CalmarRatio     *float64                  `json:"calmar_ratio"`
	Volatility      *float64                  `json:"volatility"`
	Drawdown        *formulas.DrawdownMetrics `json:"drawdown"`
	VaR95           *float64                  `json:"var_95"`
	VaR99           *float64                  `json:"var_99"`
	AlphaBeta       *formulas.AlphaBeta       `json:"alpha_beta,omitempty"`
	RiskLevel       formulas.RiskLevel        `json:"risk_level"`
	TradeStats      TradeStats                `json:"trade_stats"`
}
