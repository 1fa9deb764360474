package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "simple series",
			values: []float64{100, 110, 99},
			want:   []float64{0.1, -0.1},
		},
		{
			name:   "zero denominator treated as zero return",
			values: []float64{0, 100, 110},
			want:   []float64{0, 0.1},
		},
		{
			name:   "single value yields empty series",
			values: []float64{100},
			want:   []float64{},
		},
		{
			name:   "empty input yields empty series",
			values: nil,
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Returns(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, CalculateSharpeRatio(nil, 0.04, 252))
		assert.Nil(t, CalculateSharpeRatio([]float64{0.01}, 0.04, 252))
	})

	t.Run("zero deviation", func(t *testing.T) {
		assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0.04, 252))
	})

	t.Run("known value", func(t *testing.T) {
		// mean 0.15, sample std sqrt(0.005); annualized over 252 periods
		got := CalculateSharpeRatio([]float64{0.1, 0.2}, 0.04, 252)
		require.NotNil(t, got)
		assert.InDelta(t, 33.639, *got, 0.01)
	})
}

func TestCalculateSortinoRatio(t *testing.T) {
	t.Run("no negative returns is undefined", func(t *testing.T) {
		assert.Nil(t, CalculateSortinoRatio([]float64{0.01, 0.02, 0.03}, 0.04, 252))
	})

	t.Run("single negative return is undefined", func(t *testing.T) {
		// downside deviation needs at least two negative observations
		assert.Nil(t, CalculateSortinoRatio([]float64{0.01, -0.02, 0.03}, 0.04, 252))
	})

	t.Run("defined with downside spread", func(t *testing.T) {
		got := CalculateSortinoRatio([]float64{0.02, -0.01, 0.03, -0.03}, 0.04, 252)
		require.NotNil(t, got)
		assert.False(t, *got == 0)
	})
}

func TestCalculateDrawdownMetrics(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, CalculateDrawdownMetrics([]float64{10000}))
	})

	t.Run("non-decreasing sequence has zero drawdown", func(t *testing.T) {
		m := CalculateDrawdownMetrics([]float64{100, 100, 150, 200})
		require.NotNil(t, m)
		assert.Equal(t, 0.0, m.MaxDrawdown)
		assert.Equal(t, 0.0, m.CurrentDrawdownPct)
	})

	t.Run("peak and trough identified", func(t *testing.T) {
		m := CalculateDrawdownMetrics([]float64{10000, 11000, 10450})
		require.NotNil(t, m)
		assert.InDelta(t, -0.05, m.MaxDrawdown, 1e-9)
		assert.InDelta(t, -5.0, m.MaxDrawdownPct, 1e-9)
		assert.InDelta(t, -5.0, m.CurrentDrawdownPct, 1e-9)
		assert.Equal(t, 1, m.PeakIndex)
		assert.Equal(t, 2, m.TroughIndex)
		assert.Equal(t, 11000.0, m.PeakValue)
		assert.Equal(t, 10450.0, m.TroughValue)
	})

	t.Run("bounded for positive sequences", func(t *testing.T) {
		m := CalculateDrawdownMetrics([]float64{100, 1, 50, 2, 80})
		require.NotNil(t, m)
		assert.GreaterOrEqual(t, m.MaxDrawdown, -1.0)
		assert.LessOrEqual(t, m.MaxDrawdown, 0.0)
	})
}

func TestCalculateCalmarRatio(t *testing.T) {
	t.Run("undefined when drawdown is zero", func(t *testing.T) {
		assert.Nil(t, CalculateCalmarRatio([]float64{100, 110, 120}, 252))
	})

	t.Run("undefined with fewer than two points", func(t *testing.T) {
		assert.Nil(t, CalculateCalmarRatio([]float64{100}, 252))
	})

	t.Run("known value", func(t *testing.T) {
		// total return -10% over 2 periods, max drawdown -25%
		got := CalculateCalmarRatio([]float64{100, 120, 90}, 252)
		require.NotNil(t, got)
		assert.InDelta(t, -4.0, *got, 0.001)
	})
}

func TestCalculateValueAtRisk(t *testing.T) {
	t.Run("requires ten observations", func(t *testing.T) {
		assert.Nil(t, CalculateValueAtRisk([]float64{0.01, -0.02, 0.03}, 0.95))
	})

	t.Run("constant distribution", func(t *testing.T) {
		returns := make([]float64, 10)
		for i := range returns {
			returns[i] = -0.01
		}
		got := CalculateValueAtRisk(returns, 0.95)
		require.NotNil(t, got)
		assert.InDelta(t, -0.01, *got, 1e-12)
	})

	t.Run("99 percent is at least as severe as 95 percent", func(t *testing.T) {
		returns := []float64{-0.08, -0.05, -0.02, -0.01, 0.0, 0.01, 0.02, 0.03, 0.04, 0.06, 0.01, -0.03}
		var95 := CalculateValueAtRisk(returns, 0.95)
		var99 := CalculateValueAtRisk(returns, 0.99)
		require.NotNil(t, var95)
		require.NotNil(t, var99)
		assert.LessOrEqual(t, *var99, *var95)
	})
}

func TestCalculateAlphaBeta(t *testing.T) {
	t.Run("length mismatch is undefined", func(t *testing.T) {
		assert.Nil(t, CalculateAlphaBeta([]float64{0.01, 0.02}, []float64{0.01}, 0.04, 252))
	})

	t.Run("zero benchmark variance is undefined", func(t *testing.T) {
		assert.Nil(t, CalculateAlphaBeta([]float64{0.01, 0.02}, []float64{0.01, 0.01}, 0.04, 252))
	})

	t.Run("portfolio tracking benchmark exactly", func(t *testing.T) {
		series := []float64{0.01, -0.02, 0.03, 0.005}
		got := CalculateAlphaBeta(series, series, 0.0, 252)
		require.NotNil(t, got)
		assert.InDelta(t, 1.0, got.Beta, 1e-9)
		assert.InDelta(t, 0.0, got.Alpha, 1e-9)
	})
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Nil(t, AnnualizedVolatility([]float64{0.01}, 252))

	got := AnnualizedVolatility([]float64{0.01, -0.01, 0.02, -0.02}, 252)
	require.NotNil(t, got)
	assert.Greater(t, *got, 0.0)
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name   string
		sharpe *float64
		ddPct  float64
		volPct float64
		want   RiskLevel
	}{
		{"calm portfolio", ptr(2.0), -5, 10, RiskLow},
		{"middling", ptr(0.8), -20, 20, RiskModerate},
		{"stressed", ptr(0.4), -35, 30, RiskVeryHigh},
		{"sharpe undefined", nil, -60, 50, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessRisk(tt.sharpe, tt.ddPct, tt.volPct))
		})
	}
}

func ptr(f float64) *float64 { return &f }
