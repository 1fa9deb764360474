package formulas

import "math"

// RiskLevel is a coarse presentation label for portfolio risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY HIGH"
)

// AssessRisk derives a coarse risk label from a weighted score over Sharpe,
// max-drawdown magnitude and volatility. This is a presentation heuristic
// against fixed thresholds, not a statistical instrument.
//
// Args:
//
//	sharpe: annualized Sharpe ratio (nil when undefined)
//	maxDrawdownPct: max drawdown in percent (sign ignored)
//	volatilityPct: annualized volatility in percent
func AssessRisk(sharpe *float64, maxDrawdownPct, volatilityPct float64) RiskLevel {
	score := 0

	if sharpe != nil {
		switch {
		case *sharpe < 0.5:
			score += 3
		case *sharpe < 1.0:
			score += 2
		case *sharpe < 1.5:
			score++
		}
	}

	dd := math.Abs(maxDrawdownPct)
	switch {
	case dd > 50:
		score += 3
	case dd > 30:
		score += 2
	case dd > 15:
		score++
	}

	switch {
	case volatilityPct > 40:
		score += 3
	case volatilityPct > 25:
		score += 2
	case volatilityPct > 15:
		score++
	}

	switch {
	case score >= 7:
		return RiskVeryHigh
	case score >= 5:
		return RiskHigh
	case score >= 3:
		return RiskModerate
	default:
		return RiskLow
	}
}
