package formulas

// AlphaBeta holds regression-based excess-return and market-sensitivity
// measures versus a benchmark.
type AlphaBeta struct {
	Alpha    float64 `json:"alpha"`     // annualized excess return (fraction)
	AlphaPct float64 `json:"alpha_pct"` // annualized excess return (%)
	Beta     float64 `json:"beta"`      // sensitivity to benchmark moves
}

// CalculateAlphaBeta calculates alpha and beta of a portfolio returns series
// relative to a benchmark returns series of equal length.
//
// Formulas:
//
//	beta  = cov(portfolio, benchmark) / var(benchmark)   (sample statistics)
//	alpha = mean(portfolio) - (rf_p + beta × (mean(benchmark) - rf_p))
//
// where rf_p is the per-period risk-free rate. Alpha is annualized by
// multiplying with periodsPerYear.
//
// Returns nil if the series differ in length, have fewer than 2 points, or
// the benchmark variance is 0.
func CalculateAlphaBeta(portfolio, benchmark []float64, riskFreeRate float64, periodsPerYear int) *AlphaBeta {
	if len(portfolio) != len(benchmark) || len(portfolio) < 2 {
		return nil
	}

	benchVar := Variance(benchmark)
	if benchVar == 0 {
		return nil
	}

	beta := Covariance(portfolio, benchmark) / benchVar

	periodicRf := riskFreeRate / float64(periodsPerYear)
	alpha := Mean(portfolio) - (periodicRf + beta*(Mean(benchmark)-periodicRf))
	annualizedAlpha := alpha * float64(periodsPerYear)

	return &AlphaBeta{
		Alpha:    annualizedAlpha,
		AlphaPct: annualizedAlpha * 100,
		Beta:     beta,
	}
}
