package indicators

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the indicator API.
type Handlers struct {
	log zerolog.Logger
}

// NewHandlers creates a new indicators handlers instance.
func NewHandlers(log zerolog.Logger) *Handlers {
	return &Handlers{log: log.With().Str("handler", "indicators").Logger()}
}

// HandleCompute calculates the default indicator bundle and signal labels
// for a submitted price series (oldest first).
// POST /api/indicators
func (h *Handlers) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prices []float64 `json:"prices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Prices) == 0 {
		http.Error(w, "Price series is required", http.StatusBadRequest)
		return
	}
	for _, p := range body.Prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			http.Error(w, "Prices must be positive finite numbers", http.StatusBadRequest)
			return
		}
	}

	bundle := ComputeBundle(body.Prices)
	response := map[string]any{
		"bundle":  jsonSafeBundle(bundle),
		"signals": GenerateSignals(bundle, body.Prices),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// jsonSafeBundle converts undefined leading entries (NaN) to nulls, since
// encoding/json rejects NaN.
func jsonSafeBundle(b Bundle) map[string]any {
	sma := make(map[int][]*float64, len(b.SMA))
	for period, series := range b.SMA {
		sma[period] = nullable(series)
	}
	ema := make(map[int][]*float64, len(b.EMA))
	for period, series := range b.EMA {
		ema[period] = nullable(series)
	}
	return map[string]any{
		"sma": sma,
		"ema": ema,
		"rsi": nullable(b.RSI),
		"macd": map[string]any{
			"macd":      nullable(b.MACD.MACD),
			"signal":    nullable(b.MACD.Signal),
			"histogram": nullable(b.MACD.Histogram),
		},
		"bollinger": map[string]any{
			"upper":  nullable(b.Bollinger.Upper),
			"middle": nullable(b.Bollinger.Middle),
			"lower":  nullable(b.Bollinger.Lower),
		},
	}
}

func nullable(series []float64) []*float64 {
	out := make([]*float64, len(series))
	for i := range series {
		if Defined(series[i]) {
			v := series[i]
			out[i] = &v
		}
	}
	return out
}
