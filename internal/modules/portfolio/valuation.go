package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Valuation is the derived value view of a portfolio at a point in time.
type Valuation struct {
	NAV             decimal.Decimal    `json:"nav"`
	Cash            decimal.Decimal    `json:"cash"`
	DeployedCapital decimal.Decimal    `json:"deployed_capital"`
	TotalReturnPct  float64            `json:"total_return_pct"`
	Allocation      map[string]float64 `json:"allocation"` // % of NAV per asset class + cash bucket
	AnnualIncome    decimal.Decimal    `json:"annual_income"`
	PositionCount   int                `json:"position_count"`
}

// NAV computes net asset value: cash plus the marked-to-market value of
// every holding (entry price when no market price is known).
func NAV(p *Portfolio, holdings []Holding) decimal.Decimal {
	nav := p.CurrentCash
	for i := range holdings {
		nav = nav.Add(holdings[i].CurrentValue())
	}
	return nav
}

// TotalReturnPct computes the cumulative return from initial capital,
// defined as 0 when initial capital is 0.
func TotalReturnPct(p *Portfolio, nav decimal.Decimal) float64 {
	if p.InitialCapital.IsZero() {
		return 0
	}
	pct, _ := nav.Sub(p.InitialCapital).
		Div(p.InitialCapital).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return pct
}

// Allocation computes the percentage of NAV held per asset class, plus a
// "cash" bucket. A zero NAV yields an empty map rather than dividing by
// zero.
func Allocation(p *Portfolio, holdings []Holding) map[string]float64 {
	allocation := make(map[string]float64)

	nav := NAV(p, holdings)
	if nav.IsZero() {
		return allocation
	}

	hundred := decimal.NewFromInt(100)
	for _, class := range domain.AssetClasses() {
		value := decimal.Zero
		for i := range holdings {
			if holdings[i].AssetClass == class {
				value = value.Add(holdings[i].CurrentValue())
			}
		}
		pct, _ := value.Div(nav).Mul(hundred).Float64()
		allocation[string(class)] = pct
	}

	cashPct, _ := p.CurrentCash.Div(nav).Mul(hundred).Float64()
	allocation["cash"] = cashPct

	return allocation
}

// Value assembles the full valuation view for a portfolio.
func Value(p *Portfolio, holdings []Holding) Valuation {
	nav := NAV(p, holdings)

	income := decimal.Zero
	for i := range holdings {
		income = income.Add(holdings[i].AnnualIncome())
	}

	return Valuation{
		NAV:             nav,
		Cash:            p.CurrentCash,
		DeployedCapital: nav.Sub(p.CurrentCash),
		TotalReturnPct:  TotalReturnPct(p, nav),
		Allocation:      Allocation(p, holdings),
		AnnualIncome:    income.Round(2),
		PositionCount:   len(holdings),
	}
}
