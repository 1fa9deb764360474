package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// FeeStructure is a named fee policy: a scheme tag plus one numeric
// parameter (a fixed amount for flat, a percentage for percent/tiered).
type FeeStructure struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Scheme      domain.FeeScheme `json:"scheme"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description,omitempty"`
}

// New validates and builds a fee structure. A malformed scheme or a negative
// parameter is a configuration error caught here, never at calculation time.
func New(name string, scheme domain.FeeScheme, amount decimal.Decimal) (*FeeStructure, error) {
	if name == "" {
		return nil, fmt.Errorf("fee structure name cannot be empty")
	}
	if !scheme.IsValid() {
		return nil, fmt.Errorf("invalid fee scheme: %q", scheme)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("fee amount cannot be negative: %s", amount)
	}
	return &FeeStructure{Name: name, Scheme: scheme, Amount: amount}, nil
}

// Zero is the no-fee policy applied when a portfolio has no assignment.
func Zero() *FeeStructure {
	return &FeeStructure{Name: "zero", Scheme: domain.FeeZero, Amount: decimal.Zero}
}

// CalculateFee maps a trade notional to a fee amount, rounded to cash
// precision (2 decimal places). Pure function, no error cases.
func (f *FeeStructure) CalculateFee(notional decimal.Decimal) decimal.Decimal {
	switch f.Scheme {
	case domain.FeeZero:
		return decimal.Zero
	case domain.FeeFlat:
		return f.Amount.Round(2)
	case domain.FeePercent, domain.FeeTiered:
		// Tiered currently behaves as percent.
		return notional.Mul(f.Amount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Zero
}
