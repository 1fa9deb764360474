package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe Ratio.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Return × P - Risk-Free Rate) / (StdDev × sqrt(P))
//
// where P is the number of trading periods per year and StdDev is the sample
// standard deviation of period returns.
//
// Args:
//
//	returns: Array of period returns (daily, weekly, ...)
//	riskFreeRate: Annual risk-free rate as a decimal (e.g. 0.04 for 4%)
//	periodsPerYear: Trading periods per year (252 for daily)
//
// Returns:
//
//	Annualized Sharpe ratio, or nil on insufficient data or zero deviation
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	annualizedReturn := Mean(returns) * float64(periodsPerYear)
	annualizedStd := stdDev * math.Sqrt(float64(periodsPerYear))

	sharpe := (annualizedReturn - riskFreeRate) / annualizedStd
	return &sharpe
}

// CalculateSortinoRatio calculates the annualized Sortino Ratio.
//
// Same numerator as Sharpe, but the denominator only penalizes downside
// volatility: the sample standard deviation of the negative returns.
//
// Returns nil if there are no negative returns, or the downside deviation
// is zero, or fewer than 2 returns exist.
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return nil
	}

	downsideStd := StdDev(downside)
	if downsideStd == 0 {
		return nil
	}

	annualizedReturn := Mean(returns) * float64(periodsPerYear)
	annualizedDownside := downsideStd * math.Sqrt(float64(periodsPerYear))

	sortino := (annualizedReturn - riskFreeRate) / annualizedDownside
	return &sortino
}
