package analytics

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository persists computed performance and risk rows.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new analytics repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "analytics").Logger(),
	}
}

// SavePerformance appends a performance metrics row.
func (r *Repository) SavePerformance(m *PerformanceMetric) error {
	res, err := r.db.Exec(`
		INSERT INTO performance_metrics
			(portfolio_id, date, sharpe_ratio, sortino_ratio, max_drawdown,
			 volatility, win_rate, avg_win, avg_loss, total_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.PortfolioID, m.Date, nullFloat(m.SharpeRatio), nullFloat(m.SortinoRatio),
		nullFloat(m.MaxDrawdown), nullFloat(m.Volatility),
		nullFloat(m.WinRate), nullFloat(m.AvgWin), nullFloat(m.AvgLoss), m.TotalTrades,
	)
	if err != nil {
		return fmt.Errorf("failed to insert performance metrics: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read performance metrics id: %w", err)
	}
	return nil
}

// GetPerformanceHistory returns persisted performance rows, oldest first.
func (r *Repository) GetPerformanceHistory(portfolioID int64) ([]PerformanceMetric, error) {
	rows, err := r.db.Query(`
		SELECT id, portfolio_id, date, sharpe_ratio, sortino_ratio, max_drawdown,
			volatility, win_rate, avg_win, avg_loss, total_trades
		FROM performance_metrics WHERE portfolio_id = ? ORDER BY date, id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance metrics: %w", err)
	}
	defer rows.Close()

	var metrics []PerformanceMetric
	for rows.Next() {
		var m PerformanceMetric
		var sharpe, sortino, maxDD, vol, winRate, avgWin, avgLoss sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.PortfolioID, &m.Date, &sharpe, &sortino,
			&maxDD, &vol, &winRate, &avgWin, &avgLoss, &m.TotalTrades); err != nil {
			return nil, fmt.Errorf("failed to scan performance metrics: %w", err)
		}
		m.SharpeRatio = floatPtr(sharpe)
		m.SortinoRatio = floatPtr(sortino)
		m.MaxDrawdown = floatPtr(maxDD)
		m.Volatility = floatPtr(vol)
		m.WinRate = floatPtr(winRate)
		m.AvgWin = floatPtr(avgWin)
		m.AvgLoss = floatPtr(avgLoss)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// SaveRisk appends a risk metrics row. The allocation map is stored as JSON.
func (r *Repository) SaveRisk(m *RiskMetric) error {
	allocation, err := json.Marshal(m.AssetAllocation)
	if err != nil {
		return fmt.Errorf("failed to encode allocation: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO risk_metrics
			(portfolio_id, date, var_95, var_99, current_drawdown, asset_allocation, liquidity_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.PortfolioID, m.Date, nullFloat(m.VaR95), nullFloat(m.VaR99),
		nullFloat(m.CurrentDrawdown), string(allocation), m.LiquidityScore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk metrics: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read risk metrics id: %w", err)
	}
	return nil
}

// GetRiskHistory returns persisted risk rows, oldest first.
func (r *Repository) GetRiskHistory(portfolioID int64) ([]RiskMetric, error) {
	rows, err := r.db.Query(`
		SELECT id, portfolio_id, date, var_95, var_99, current_drawdown,
			asset_allocation, liquidity_score
		FROM risk_metrics WHERE portfolio_id = ? ORDER BY date, id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk metrics: %w", err)
	}
	defer rows.Close()

	var metrics []RiskMetric
	for rows.Next() {
		var m RiskMetric
		var var95, var99, currentDD sql.NullFloat64
		var allocation sql.NullString
		if err := rows.Scan(&m.ID, &m.PortfolioID, &m.Date, &var95, &var99,
			&currentDD, &allocation, &m.LiquidityScore); err != nil {
			return nil, fmt.Errorf("failed to scan risk metrics: %w", err)
		}
		m.VaR95 = floatPtr(var95)
		m.VaR99 = floatPtr(var99)
		m.CurrentDrawdown = floatPtr(currentDD)
		if allocation.Valid && allocation.String != "" {
			if err := json.Unmarshal([]byte(allocation.String), &m.AssetAllocation); err != nil {
				return nil, fmt.Errorf("corrupt allocation JSON: %w", err)
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
