package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return prices
}

func TestSMA(t *testing.T) {
	t.Run("leading values undefined", func(t *testing.T) {
		sma := SMA(risingPrices(25), 20)
		require.Len(t, sma, 25)
		for i := 0; i < 19; i++ {
			assert.False(t, Defined(sma[i]), "index %d should be undefined", i)
		}
		for i := 19; i < 25; i++ {
			assert.True(t, Defined(sma[i]), "index %d should be defined", i)
		}
	})

	t.Run("strictly increasing for rising prices", func(t *testing.T) {
		sma := SMA(risingPrices(25), 20)
		for i := 20; i < 25; i++ {
			assert.Greater(t, sma[i], sma[i-1])
		}
	})

	t.Run("rolling mean value", func(t *testing.T) {
		sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
		assert.InDelta(t, 2.0, sma[2], 1e-12)
		assert.InDelta(t, 3.0, sma[3], 1e-12)
		assert.InDelta(t, 4.0, sma[4], 1e-12)
	})

	t.Run("insufficient history", func(t *testing.T) {
		sma := SMA([]float64{1, 2}, 3)
		require.Len(t, sma, 2)
		assert.False(t, Defined(sma[0]))
		assert.False(t, Defined(sma[1]))
	})
}

func TestEMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	ema := EMA(prices, 3)

	require.Len(t, ema, 5)
	assert.False(t, Defined(ema[0]))
	assert.False(t, Defined(ema[1]))

	// Seeded with SMA(3) of first three prices.
	assert.InDelta(t, 2.0, ema[2], 1e-12)

	// k = 2/(3+1) = 0.5
	assert.InDelta(t, 4*0.5+2.0*0.5, ema[3], 1e-12)
	assert.InDelta(t, 5*0.5+3.0*0.5, ema[4], 1e-12)
}

func TestRSI(t *testing.T) {
	t.Run("approaches 100 for steadily rising prices", func(t *testing.T) {
		rsi := RSI(risingPrices(25), 14)
		require.Len(t, rsi, 25)
		for i := 0; i < 14; i++ {
			assert.False(t, Defined(rsi[i]))
		}
		last, ok := Latest(rsi)
		require.True(t, ok)
		assert.InDelta(t, 100.0, last, 1e-9)
	})

	t.Run("bounded within 0 and 100", func(t *testing.T) {
		prices := []float64{44, 47, 45, 50, 43, 48, 52, 41, 46, 49, 44, 51, 47, 45, 53, 42, 48, 50, 46, 44}
		rsi := RSI(prices, 14)
		for i, v := range rsi {
			if !Defined(v) {
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
			assert.LessOrEqual(t, v, 100.0, "index %d", i)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		rsi := RSI(risingPrices(14), 14)
		for _, v := range rsi {
			assert.False(t, Defined(v))
		}
	})
}

func TestMACD(t *testing.T) {
	prices := risingPrices(60)
	res := MACD(prices, 12, 26, 9)

	require.Len(t, res.MACD, 60)
	require.Len(t, res.Signal, 60)
	require.Len(t, res.Histogram, 60)

	// MACD defined once the slow EMA is, signal 9 periods later.
	assert.False(t, Defined(res.MACD[24]))
	assert.True(t, Defined(res.MACD[25]))
	assert.False(t, Defined(res.Signal[32]))
	assert.True(t, Defined(res.Signal[33]))

	for i := range prices {
		if Defined(res.Histogram[i]) {
			assert.InDelta(t, res.MACD[i]-res.Signal[i], res.Histogram[i], 1e-12)
		}
	}
}

func TestBollinger(t *testing.T) {
	prices := risingPrices(30)
	bands := Bollinger(prices, 20, 2.0)

	require.Len(t, bands.Middle, 30)
	assert.False(t, Defined(bands.Middle[18]))
	assert.True(t, Defined(bands.Middle[19]))

	for i := 19; i < 30; i++ {
		assert.Greater(t, bands.Upper[i], bands.Middle[i])
		assert.Less(t, bands.Lower[i], bands.Middle[i])
		// Bands are symmetric around the middle.
		assert.InDelta(t, bands.Upper[i]-bands.Middle[i], bands.Middle[i]-bands.Lower[i], 1e-9)
	}
}

func TestLatest(t *testing.T) {
	_, ok := Latest([]float64{math.NaN(), math.NaN()})
	assert.False(t, ok)

	v, ok := Latest([]float64{math.NaN(), 3.5, math.NaN()})
	require.True(t, ok)
	assert.Equal(t, 3.5, v)
}

func TestGenerateSignals(t *testing.T) {
	t.Run("rising series is overbought and bullish", func(t *testing.T) {
		prices := risingPrices(250)
		bundle := ComputeBundle(prices)
		signals := GenerateSignals(bundle, prices)

		assert.Equal(t, "OVERBOUGHT - Consider selling", signals["rsi"])
		assert.Equal(t, "GOLDEN CROSS - Bullish", signals["ma_crossover"])
		assert.Contains(t, signals, "macd")
		assert.Contains(t, signals, "bollinger")
	})

	t.Run("short series yields no signals", func(t *testing.T) {
		prices := risingPrices(5)
		signals := GenerateSignals(ComputeBundle(prices), prices)
		assert.Empty(t, signals)
	})
}
