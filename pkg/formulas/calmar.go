package formulas

import "math"

// CalculateCalmarRatio calculates the Calmar Ratio from a NAV sequence.
//
// Calmar Formula:
//
//	annualized return = (1 + total return)^(1/years) - 1
//	years             = (N - 1) / periodsPerYear
//	Calmar            = annualized return / |max drawdown|
//
// Returns nil if fewer than 2 NAV points exist, the starting NAV is 0, or
// the max drawdown is 0.
func CalculateCalmarRatio(navs []float64, periodsPerYear int) *float64 {
	if len(navs) < 2 || navs[0] == 0 {
		return nil
	}

	totalReturn := (navs[len(navs)-1] - navs[0]) / navs[0]
	years := float64(len(navs)-1) / float64(periodsPerYear)
	if years == 0 {
		return nil
	}
	annualized := math.Pow(1+totalReturn, 1/years) - 1

	maxDD := CalculateMaxDrawdown(navs)
	if maxDD == nil || *maxDD == 0 {
		return nil
	}

	calmar := annualized / math.Abs(*maxDD)
	return &calmar
}
