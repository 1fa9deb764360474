package indicators

// Default parameters used by the bundle and signal generation.
const (
	DefaultRSIPeriod       = 14
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0

	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// DefaultSMAPeriods are the moving-average windows computed by the bundle.
// 50 and 200 drive the golden/death cross signal.
var DefaultSMAPeriods = []int{20, 50, 200}

// DefaultEMAPeriods are the exponential windows computed by the bundle.
var DefaultEMAPeriods = []int{12, 26}

// Bundle holds every indicator series computed for one price series.
type Bundle struct {
	SMA       map[int][]float64 `json:"sma"`
	EMA       map[int][]float64 `json:"ema"`
	RSI       []float64         `json:"rsi"`
	MACD      MACDResult        `json:"macd"`
	Bollinger BollingerBands    `json:"bollinger"`
}

// ComputeBundle calculates the full default indicator set for a price series.
func ComputeBundle(prices []float64) Bundle {
	b := Bundle{
		SMA: make(map[int][]float64, len(DefaultSMAPeriods)),
		EMA: make(map[int][]float64, len(DefaultEMAPeriods)),
	}
	for _, p := range DefaultSMAPeriods {
		b.SMA[p] = SMA(prices, p)
	}
	for _, p := range DefaultEMAPeriods {
		b.EMA[p] = EMA(prices, p)
	}
	b.RSI = RSI(prices, DefaultRSIPeriod)
	b.MACD = MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	b.Bollinger = Bollinger(prices, DefaultBollingerPeriod, DefaultBollingerK)
	return b
}

// GenerateSignals derives qualitative trade-signal labels from the latest
// defined indicator values. Indicators without enough history contribute no
// entry.
func GenerateSignals(b Bundle, prices []float64) map[string]string {
	signals := make(map[string]string)

	if rsi, ok := Latest(b.RSI); ok {
		switch {
		case rsi > rsiOverbought:
			signals["rsi"] = "OVERBOUGHT - Consider selling"
		case rsi < rsiOversold:
			signals["rsi"] = "OVERSOLD - Consider buying"
		default:
			signals["rsi"] = "NEUTRAL"
		}
	}

	if macd, ok := Latest(b.MACD.MACD); ok {
		if sig, ok := Latest(b.MACD.Signal); ok {
			if macd > sig {
				signals["macd"] = "BULLISH - MACD above signal"
			} else {
				signals["macd"] = "BEARISH - MACD below signal"
			}
		}
	}

	if len(prices) > 0 {
		price := prices[len(prices)-1]
		upper, okU := Latest(b.Bollinger.Upper)
		lower, okL := Latest(b.Bollinger.Lower)
		if okU && okL {
			switch {
			case price > upper:
				signals["bollinger"] = "OVERBOUGHT - Price above upper band"
			case price < lower:
				signals["bollinger"] = "OVERSOLD - Price below lower band"
			default:
				signals["bollinger"] = "NEUTRAL - Within bands"
			}
		}
	}

	sma50, ok50 := Latest(b.SMA[50])
	sma200, ok200 := Latest(b.SMA[200])
	if ok50 && ok200 {
		if sma50 > sma200 {
			signals["ma_crossover"] = "GOLDEN CROSS - Bullish"
		} else {
			signals["ma_crossover"] = "DEATH CROSS - Bearish"
		}
	}

	return signals
}
