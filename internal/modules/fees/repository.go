package fees

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Repository handles fee structure database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new fee repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "fees").Logger(),
	}
}

// Create persists a fee structure and returns it with its assigned ID.
func (r *Repository) Create(f *FeeStructure) (*FeeStructure, error) {
	res, err := r.db.Exec(
		`INSERT INTO fee_structures (name, scheme, amount, description) VALUES (?, ?, ?, ?)`,
		f.Name, string(f.Scheme), f.Amount.String(), f.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert fee structure: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read fee structure id: %w", err)
	}
	f.ID = id
	return f, nil
}

// GetByName returns a fee structure by its unique name, or nil when absent.
func (r *Repository) GetByName(name string) (*FeeStructure, error) {
	row := r.db.QueryRow(
		`SELECT id, name, scheme, amount, description FROM fee_structures WHERE name = ?`, name)
	return r.scan(row)
}

// GetForPortfolio returns the fee structure assigned to a portfolio, or nil
// when the portfolio has no assignment (callers fall back to the zero policy).
func (r *Repository) GetForPortfolio(portfolioID int64) (*FeeStructure, error) {
	row := r.db.QueryRow(`
		SELECT f.id, f.name, f.scheme, f.amount, f.description
		FROM fee_structures f
		JOIN portfolios p ON p.fee_structure_id = f.id
		WHERE p.id = ?`, portfolioID)
	return r.scan(row)
}

func (r *Repository) scan(row *sql.Row) (*FeeStructure, error) {
	var f FeeStructure
	var scheme, amount string
	var description sql.NullString

	err := row.Scan(&f.ID, &f.Name, &scheme, &amount, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fee structure: %w", err)
	}

	f.Scheme, err = domain.FeeSchemeFromString(scheme)
	if err != nil {
		return nil, fmt.Errorf("corrupt fee scheme in store: %w", err)
	}
	f.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt fee amount in store: %w", err)
	}
	if description.Valid {
		f.Description = description.String
	}
	return &f, nil
}
