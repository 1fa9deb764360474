// Package indicators computes technical indicators over ordered price
// series. Every function returns a series of the same length as its input,
// with math.NaN() marking the leading entries where insufficient history
// exists. The package is pure: no portfolio state, no side effects.
package indicators

import (
	"math"

	"github.com/leonberkemeier/PortfolioSimulation/pkg/formulas"
)

// Defined reports whether an indicator value carries data (is not NaN).
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Latest returns the most recent defined value of a series, or false when
// the whole series is undefined.
func Latest(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if Defined(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}

// SMA calculates the simple moving average over the given period.
// The first period-1 entries are undefined.
func SMA(prices []float64, period int) []float64 {
	out := undefinedSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA calculates the exponential moving average over the given period.
// The series is seeded with the SMA of the first period prices, then follows
// the recurrence ema[i] = price[i]×k + ema[i-1]×(1-k) with k = 2/(period+1).
func EMA(prices []float64, period int) []float64 {
	out := undefinedSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	k := 2.0 / float64(period+1)

	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	out[period-1] = seed / float64(period)

	for i := period; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI calculates the Relative Strength Index using Wilder's smoothing of
// average gains and losses.
//
// RSI Formula:
//
//	RSI = 100 - 100 / (1 + avgGain/avgLoss)
//
// When the average loss is 0 the RSI is 100. Defined values are always
// within [0, 100]. Requires period+1 prices for the first defined value.
func RSI(prices []float64, period int) []float64 {
	out := undefinedSeries(len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	// Wilder's smoothing for subsequent values.
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out[i+1] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three MACD series, each aligned to the input prices.
type MACDResult struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// MACD calculates Moving Average Convergence Divergence.
//
//	macd      = EMA(fast) - EMA(slow)
//	signal    = EMA(signalPeriod) over the defined portion of macd
//	histogram = macd - signal
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	fast := EMA(prices, fastPeriod)
	slow := EMA(prices, slowPeriod)

	macd := undefinedSeries(len(prices))
	firstDefined := -1
	for i := range prices {
		if Defined(fast[i]) && Defined(slow[i]) {
			macd[i] = fast[i] - slow[i]
			if firstDefined < 0 {
				firstDefined = i
			}
		}
	}

	signal := undefinedSeries(len(prices))
	if firstDefined >= 0 {
		definedMACD := macd[firstDefined:]
		signalTail := EMA(definedMACD, signalPeriod)
		copy(signal[firstDefined:], signalTail)
	}

	histogram := undefinedSeries(len(prices))
	for i := range prices {
		if Defined(macd[i]) && Defined(signal[i]) {
			histogram[i] = macd[i] - signal[i]
		}
	}

	return MACDResult{MACD: macd, Signal: signal, Histogram: histogram}
}

// BollingerBands holds the three band series, aligned to the input prices.
type BollingerBands struct {
	Upper  []float64 `json:"upper"`
	Middle []float64 `json:"middle"`
	Lower  []float64 `json:"lower"`
}

// Bollinger calculates Bollinger Bands: middle = SMA(period), upper/lower =
// middle ± k × population standard deviation of the rolling window.
func Bollinger(prices []float64, period int, k float64) BollingerBands {
	middle := SMA(prices, period)
	upper := undefinedSeries(len(prices))
	lower := undefinedSeries(len(prices))
	if period <= 0 {
		return BollingerBands{Upper: upper, Middle: middle, Lower: lower}
	}

	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]
		std := formulas.PopStdDev(window)
		upper[i] = middle[i] + k*std
		lower[i] = middle[i] - k*std
	}

	return BollingerBands{Upper: upper, Middle: middle, Lower: lower}
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
