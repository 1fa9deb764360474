package formulas

// DrawdownMetrics represents drawdown analysis over a NAV sequence.
// Drawdowns are negative fractions (-0.05 = 5% below the running peak);
// the *_pct fields carry the same sign scaled to percent.
type DrawdownMetrics struct {
	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`
	CurrentDrawdownPct float64 `json:"current_drawdown_pct"`
	PeakValue          float64 `json:"peak_value"`
	TroughValue        float64 `json:"trough_value"`
	PeakIndex          int     `json:"peak_index"`
	TroughIndex        int     `json:"trough_index"`
}

// CalculateDrawdownMetrics calculates maximum and current drawdown from an
// ordered NAV sequence.
//
// Drawdown Formula:
//
//	peak[i]     = max(nav[0..i])
//	drawdown[i] = (nav[i] - peak[i]) / peak[i]
//	max drawdown = min(drawdown)   (most negative)
//
// For sequences of positive values the result is always within [-1, 0],
// and exactly 0 when the sequence is non-decreasing.
//
// Returns nil if fewer than 2 NAV points exist.
func CalculateDrawdownMetrics(navs []float64) *DrawdownMetrics {
	if len(navs) < 2 {
		return nil
	}

	peak := navs[0]
	peakIdx := 0
	maxDD := 0.0
	troughIdx := 0
	ddPeakIdx := 0
	currentDD := 0.0

	for i, nav := range navs {
		if nav > peak {
			peak = nav
			peakIdx = i
		}

		dd := 0.0
		if peak > 0 {
			dd = (nav - peak) / peak
		}
		if dd < maxDD {
			maxDD = dd
			troughIdx = i
			ddPeakIdx = peakIdx
		}
		currentDD = dd
	}

	return &DrawdownMetrics{
		MaxDrawdown:        maxDD,
		MaxDrawdownPct:     maxDD * 100,
		CurrentDrawdownPct: currentDD * 100,
		PeakValue:          navs[ddPeakIdx],
		TroughValue:        navs[troughIdx],
		PeakIndex:          ddPeakIdx,
		TroughIndex:        troughIdx,
	}
}

// CalculateMaxDrawdown returns only the maximum drawdown as a negative
// fraction, or nil if fewer than 2 NAV points exist.
func CalculateMaxDrawdown(navs []float64) *float64 {
	m := CalculateDrawdownMetrics(navs)
	if m == nil {
		return nil
	}
	return &m.MaxDrawdown
}
