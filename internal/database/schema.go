package database

import "fmt"

// Monetary columns are stored as TEXT holding fixed-point decimal strings:
// 8 fractional digits for quantities and prices, 2 for cash amounts.
// Statistical ratios (Sharpe, drawdown, ...) are stored as REAL since
// absolute precision is not load-bearing there.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS fee_structures (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		scheme      TEXT NOT NULL,
		amount      TEXT NOT NULL DEFAULT '0',
		description TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS portfolios (
		id                             INTEGER PRIMARY KEY AUTOINCREMENT,
		name                           TEXT NOT NULL,
		description                    TEXT,
		initial_capital                TEXT NOT NULL,
		current_cash                   TEXT NOT NULL,
		max_cash_per_trade             TEXT,
		max_position_size              TEXT,
		max_allocation_per_asset_class TEXT,
		fee_structure_id               INTEGER REFERENCES fee_structures(id),
		status                         TEXT NOT NULL DEFAULT 'active',
		model_name                     TEXT,
		created_at                     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS holdings (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id   INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		asset_class    TEXT NOT NULL,
		ticker         TEXT NOT NULL,
		quantity       TEXT NOT NULL,
		entry_price    TEXT NOT NULL,
		entry_date     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		current_price  TEXT,
		dividend_yield TEXT,
		pe_ratio       TEXT,
		UNIQUE (portfolio_id, asset_class, ticker)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		asset_class  TEXT NOT NULL,
		ticker       TEXT NOT NULL,
		side         TEXT NOT NULL,
		quantity     TEXT NOT NULL,
		price        TEXT NOT NULL,
		fee          TEXT NOT NULL DEFAULT '0',
		total_cost   TEXT NOT NULL,
		timestamp    TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_portfolio
		ON transactions(portfolio_id, ticker, timestamp)`,

	`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		date         TEXT NOT NULL,
		nav          TEXT NOT NULL,
		total_return TEXT NOT NULL,
		cash_balance TEXT NOT NULL,
		UNIQUE (portfolio_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS performance_metrics (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		date         TEXT NOT NULL,
		sharpe_ratio REAL,
		sortino_ratio REAL,
		max_drawdown REAL,
		volatility   REAL,
		win_rate     REAL,
		avg_win      REAL,
		avg_loss     REAL,
		total_trades INTEGER
	)`,

	`CREATE TABLE IF NOT EXISTS risk_metrics (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id     INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		date             TEXT NOT NULL,
		var_95           REAL,
		var_99           REAL,
		current_drawdown REAL,
		asset_allocation TEXT,
		liquidity_score  REAL
	)`,

	`CREATE TABLE IF NOT EXISTS asset_prices (
		asset_class TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		price       TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (asset_class, symbol)
	)`,
}

// Migrate creates the schema. Statements are idempotent so repeated startup
// is safe.
func (db *DB) Migrate() error {
	for i, stmt := range migrations {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
