package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// ErrSnapshotExists is returned by CreateSnapshot when a snapshot for the
// same (portfolio, date) already exists and overwriting was not requested.
var ErrSnapshotExists = errors.New("snapshot already exists for date")

// Repository handles portfolio, holding, transaction and snapshot
// persistence. Mutations that must be atomic across tables take a *sql.Tx
// so the order engine can commit them as one unit.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// DB exposes the underlying connection for transaction control.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Create persists a new portfolio. Current cash starts equal to initial
// capital.
func (r *Repository) Create(p *Portfolio) (*Portfolio, error) {
	if p.Status == "" {
		p.Status = domain.PortfolioActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.CurrentCash = p.InitialCapital

	res, err := r.db.Exec(`
		INSERT INTO portfolios
			(name, description, initial_capital, current_cash, max_cash_per_trade,
			 max_position_size, max_allocation_per_asset_class, fee_structure_id,
			 status, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, nullString(p.Description),
		p.InitialCapital.StringFixed(2), p.CurrentCash.StringFixed(2),
		nullDecimal(p.MaxCashPerTrade), nullDecimal(p.MaxPositionSize),
		nullDecimal(p.MaxAllocationPerAssetClass), nullInt(p.FeeStructureID),
		string(p.Status), nullString(p.ModelName), p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio id: %w", err)
	}

	r.log.Info().Int64("portfolio_id", p.ID).Str("name", p.Name).Msg("Portfolio created")
	return p, nil
}

const portfolioColumns = `id, name, description, initial_capital, current_cash,
	max_cash_per_trade, max_position_size, max_allocation_per_asset_class,
	fee_structure_id, status, model_name, created_at`

// GetByID returns a portfolio by id, or nil when it does not exist.
func (r *Repository) GetByID(id int64) (*Portfolio, error) {
	row := r.db.QueryRow(`SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id)
	return r.scanPortfolio(row)
}

// GetByModelName returns the portfolio linked to a model name, or nil.
func (r *Repository) GetByModelName(model string) (*Portfolio, error) {
	row := r.db.QueryRow(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE model_name = ? LIMIT 1`, model)
	return r.scanPortfolio(row)
}

// ListByStatus returns every portfolio with the given lifecycle status.
func (r *Repository) ListByStatus(status domain.PortfolioStatus) ([]Portfolio, error) {
	rows, err := r.db.Query(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		p, err := r.scanPortfolioRows(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	return portfolios, rows.Err()
}

// SetStatus changes the lifecycle tag. The ledger is retained; archive and
// delete are status changes only.
func (r *Repository) SetStatus(id int64, status domain.PortfolioStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid portfolio status: %q", status)
	}
	_, err := r.db.Exec(`UPDATE portfolios SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio status: %w", err)
	}
	return nil
}

// UpdateCashTx sets the cash balance inside an order transaction.
func (r *Repository) UpdateCashTx(tx *sql.Tx, portfolioID int64, cash decimal.Decimal) error {
	_, err := tx.Exec(`UPDATE portfolios SET current_cash = ? WHERE id = ?`,
		cash.StringFixed(2), portfolioID)
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	return nil
}

// --- Holdings ---

const holdingColumns = `id, portfolio_id, asset_class, ticker, quantity,
	entry_price, entry_date, current_price, dividend_yield, pe_ratio`

// GetHoldings returns every holding of a portfolio, ordered by id.
func (r *Repository) GetHoldings(portfolioID int64) ([]Holding, error) {
	rows, err := r.db.Query(
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// GetHolding returns the holding for (portfolio, asset class, ticker), or
// nil when no position exists.
func (r *Repository) GetHolding(portfolioID int64, class domain.AssetClass, ticker string) (*Holding, error) {
	rows, err := r.db.Query(
		`SELECT `+holdingColumns+` FROM holdings
		 WHERE portfolio_id = ? AND asset_class = ? AND ticker = ?`,
		portfolioID, string(class), ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	h, err := scanHolding(rows)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// InsertHoldingTx creates a holding inside an order transaction.
func (r *Repository) InsertHoldingTx(tx *sql.Tx, h *Holding) error {
	if h.EntryDate.IsZero() {
		h.EntryDate = time.Now().UTC()
	}
	res, err := tx.Exec(`
		INSERT INTO holdings
			(portfolio_id, asset_class, ticker, quantity, entry_price, entry_date,
			 current_price, dividend_yield, pe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.PortfolioID, string(h.AssetClass), h.Ticker,
		h.Quantity.StringFixed(8), h.EntryPrice.StringFixed(8),
		h.EntryDate.Format(time.RFC3339),
		nullDecimal(h.CurrentPrice), nullDecimal(h.DividendYield), nullDecimal(h.PERatio),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	h.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read holding id: %w", err)
	}
	return nil
}

// UpdateHoldingTx updates quantity, average entry price and market price of
// a holding inside an order transaction.
func (r *Repository) UpdateHoldingTx(tx *sql.Tx, h *Holding) error {
	_, err := tx.Exec(`
		UPDATE holdings SET quantity = ?, entry_price = ?, current_price = ?
		WHERE id = ?`,
		h.Quantity.StringFixed(8), h.EntryPrice.StringFixed(8),
		nullDecimal(h.CurrentPrice), h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return nil
}

// DeleteHoldingTx removes a fully sold holding inside an order transaction.
func (r *Repository) DeleteHoldingTx(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec(`DELETE FROM holdings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

// --- Transactions (ledger) ---

// InsertTransactionTx appends an immutable ledger record inside an order
// transaction and returns its id.
func (r *Repository) InsertTransactionTx(tx *sql.Tx, t *Transaction) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	res, err := tx.Exec(`
		INSERT INTO transactions
			(portfolio_id, asset_class, ticker, side, quantity, price, fee, total_cost, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PortfolioID, string(t.AssetClass), t.Ticker, string(t.Side),
		t.Quantity.StringFixed(8), t.Price.StringFixed(8),
		t.Fee.StringFixed(2), t.TotalCost.StringFixed(2),
		t.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transaction id: %w", err)
	}
	return nil
}

// GetTransactions returns the full ledger of a portfolio in execution order.
func (r *Repository) GetTransactions(portfolioID int64) ([]Transaction, error) {
	rows, err := r.db.Query(`
		SELECT id, portfolio_id, asset_class, ticker, side, quantity, price, fee, total_cost, timestamp
		FROM transactions WHERE portfolio_id = ? ORDER BY timestamp, id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		var class, side, quantity, price, fee, totalCost, timestamp string
		if err := rows.Scan(&t.ID, &t.PortfolioID, &class, &t.Ticker, &side,
			&quantity, &price, &fee, &totalCost, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.AssetClass = domain.AssetClass(class)
		t.Side = domain.OrderSide(side)
		if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("corrupt quantity in ledger: %w", err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt price in ledger: %w", err)
		}
		if t.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("corrupt fee in ledger: %w", err)
		}
		if t.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
			return nil, fmt.Errorf("corrupt total cost in ledger: %w", err)
		}
		t.Timestamp = parseTime(timestamp)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// --- Snapshots ---

// CreateSnapshot records a snapshot for one (portfolio, date). When a row
// for the date exists it is overwritten, unless errorOnConflict is set, in
// which case ErrSnapshotExists is returned. Never silently duplicates.
func (r *Repository) CreateSnapshot(s *Snapshot, errorOnConflict bool) error {
	if errorOnConflict {
		var existing int64
		err := r.db.QueryRow(
			`SELECT id FROM portfolio_snapshots WHERE portfolio_id = ? AND date = ?`,
			s.PortfolioID, s.Date).Scan(&existing)
		if err == nil {
			return ErrSnapshotExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check snapshot: %w", err)
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (portfolio_id, date, nav, total_return, cash_balance)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, date)
		DO UPDATE SET nav = excluded.nav, total_return = excluded.total_return,
			cash_balance = excluded.cash_balance`,
		s.PortfolioID, s.Date, s.NAV.StringFixed(2),
		s.TotalReturn.StringFixed(4), s.CashBalance.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns snapshots ordered by date ascending.
func (r *Repository) GetSnapshots(portfolioID int64) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, portfolio_id, date, nav, total_return, cash_balance
		FROM portfolio_snapshots WHERE portfolio_id = ? ORDER BY date`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var nav, totalReturn, cash string
		if err := rows.Scan(&s.ID, &s.PortfolioID, &s.Date, &nav, &totalReturn, &cash); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if s.NAV, err = decimal.NewFromString(nav); err != nil {
			return nil, fmt.Errorf("corrupt nav in snapshot: %w", err)
		}
		if s.TotalReturn, err = decimal.NewFromString(totalReturn); err != nil {
			return nil, fmt.Errorf("corrupt return in snapshot: %w", err)
		}
		if s.CashBalance, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("corrupt cash in snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanPortfolio(row *sql.Row) (*Portfolio, error) {
	p, err := scanPortfolioFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Repository) scanPortfolioRows(rows *sql.Rows) (*Portfolio, error) {
	return scanPortfolioFrom(rows)
}

func scanPortfolioFrom(row rowScanner) (*Portfolio, error) {
	var p Portfolio
	var description, modelName sql.NullString
	var initialCapital, currentCash, status, createdAt string
	var maxCashPerTrade, maxPositionSize, maxAllocation sql.NullString
	var feeStructureID sql.NullInt64

	err := row.Scan(&p.ID, &p.Name, &description, &initialCapital, &currentCash,
		&maxCashPerTrade, &maxPositionSize, &maxAllocation,
		&feeStructureID, &status, &modelName, &createdAt)
	if err != nil {
		return nil, err
	}

	if p.InitialCapital, err = decimal.NewFromString(initialCapital); err != nil {
		return nil, fmt.Errorf("corrupt initial capital: %w", err)
	}
	if p.CurrentCash, err = decimal.NewFromString(currentCash); err != nil {
		return nil, fmt.Errorf("corrupt cash balance: %w", err)
	}
	if p.MaxCashPerTrade, err = optionalDecimal(maxCashPerTrade); err != nil {
		return nil, err
	}
	if p.MaxPositionSize, err = optionalDecimal(maxPositionSize); err != nil {
		return nil, err
	}
	if p.MaxAllocationPerAssetClass, err = optionalDecimal(maxAllocation); err != nil {
		return nil, err
	}
	if feeStructureID.Valid {
		p.FeeStructureID = &feeStructureID.Int64
	}
	if description.Valid {
		p.Description = description.String
	}
	if modelName.Valid {
		p.ModelName = modelName.String
	}
	p.Status = domain.PortfolioStatus(status)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func scanHolding(rows *sql.Rows) (Holding, error) {
	var h Holding
	var class, quantity, entryPrice, entryDate string
	var currentPrice, dividendYield, peRatio sql.NullString

	err := rows.Scan(&h.ID, &h.PortfolioID, &class, &h.Ticker, &quantity,
		&entryPrice, &entryDate, &currentPrice, &dividendYield, &peRatio)
	if err != nil {
		return h, fmt.Errorf("failed to scan holding: %w", err)
	}

	h.AssetClass = domain.AssetClass(class)
	if h.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return h, fmt.Errorf("corrupt quantity: %w", err)
	}
	if h.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return h, fmt.Errorf("corrupt entry price: %w", err)
	}
	if h.CurrentPrice, err = optionalDecimal(currentPrice); err != nil {
		return h, err
	}
	if h.DividendYield, err = optionalDecimal(dividendYield); err != nil {
		return h, err
	}
	if h.PERatio, err = optionalDecimal(peRatio); err != nil {
		return h, err
	}
	h.EntryDate = parseTime(entryDate)
	return h, nil
}

func optionalDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt decimal value %q: %w", ns.String, err)
	}
	return &d, nil
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
