package formulas

// CalculateValueAtRisk calculates historical Value-at-Risk.
//
// VaR is the (1 - confidence)-th percentile of the returns distribution,
// i.e. the loss threshold that is only breached (1 - confidence) of the
// time. Expressed as a fraction (e.g. -0.05 = 5% loss).
//
// Requires at least 10 observations, otherwise nil.
func CalculateValueAtRisk(returns []float64, confidence float64) *float64 {
	if len(returns) < 10 {
		return nil
	}

	v := Percentile(returns, (1-confidence)*100)
	return &v
}
