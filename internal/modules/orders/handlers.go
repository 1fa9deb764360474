package orders

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Handlers contains HTTP handlers for order execution.
type Handlers struct {
	engine *Engine
	log    zerolog.Logger
}

// NewHandlers creates a new orders handlers instance.
func NewHandlers(engine *Engine, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		log:    log.With().Str("handler", "orders").Logger(),
	}
}

// HandleBuy executes a buy order at the current oracle price.
// POST /api/portfolios/{id}/orders/buy
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, domain.OrderBuy)
}

// HandleSell executes a sell order at the current oracle price.
// POST /api/portfolios/{id}/orders/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, domain.OrderSell)
}

func (h *Handlers) handleOrder(w http.ResponseWriter, r *http.Request, side domain.OrderSide) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	var body struct {
		AssetClass string `json:"asset_class"`
		Ticker     string `json:"ticker"`
		Quantity   string `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := Request{PortfolioID: portfolioID, Ticker: body.Ticker, Side: side}
	if req.AssetClass, err = domain.AssetClassFromString(body.AssetClass); err != nil {
		h.writeConfirmation(w, rejected(req, StatusValidationError, err.Error()))
		return
	}
	if req.Quantity, err = parseQuantity(body.Quantity); err != nil {
		h.writeConfirmation(w, rejected(req, StatusValidationError, err.Error()))
		return
	}

	conf, err := h.engine.Execute(req)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Order execution failed")
		http.Error(w, "Order execution failed", http.StatusInternalServerError)
		return
	}
	h.writeConfirmation(w, conf)
}

type signalsRequest struct {
	DryRun  bool `json:"dry_run"`
	Signals []struct {
		AssetClass   string `json:"asset_class"`
		Ticker       string `json:"ticker"`
		Side         string `json:"side"`
		Weight       string `json:"weight"`
		Quantity     string `json:"quantity"`
		CurrentPrice string `json:"current_price"`
	} `json:"signals"`
}

// HandleExecuteSignals runs a batch of model signals (sells before buys).
// POST /api/portfolios/{id}/signals/execute
func (h *Handlers) HandleExecuteSignals(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	body, signals, ok := h.parseSignals(w, r)
	if !ok {
		return
	}

	result, err := h.engine.ExecuteSignals(portfolioID, signals, body.DryRun)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Signal batch failed")
		http.Error(w, "Signal execution failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleExecuteModelSignals runs a batch against the portfolio linked to a
// model name, creating it on first use.
// POST /api/signals/model/{model}/execute
func (h *Handlers) HandleExecuteModelSignals(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	if model == "" {
		http.Error(w, "Model name is required", http.StatusBadRequest)
		return
	}

	body, signals, ok := h.parseSignals(w, r)
	if !ok {
		return
	}

	result, err := h.engine.ExecuteSignalsForModel(model, signals, body.DryRun)
	if err != nil {
		h.log.Error().Err(err).Str("model", model).Msg("Model signal batch failed")
		http.Error(w, "Signal execution failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) parseSignals(w http.ResponseWriter, r *http.Request) (signalsRequest, []Signal, bool) {
	var body signalsRequest
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return body, nil, false
	}
	if len(body.Signals) == 0 {
		http.Error(w, "At least one signal is required", http.StatusBadRequest)
		return body, nil, false
	}

	signals := make([]Signal, 0, len(body.Signals))
	for _, raw := range body.Signals {
		s := Signal{Ticker: raw.Ticker}
		var err error
		if s.AssetClass, err = domain.AssetClassFromString(raw.AssetClass); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return body, nil, false
		}
		if s.Side, err = domain.OrderSideFromString(raw.Side); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return body, nil, false
		}
		if raw.Weight != "" {
			if s.Weight, err = parseQuantity(raw.Weight); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return body, nil, false
			}
		}
		if raw.Quantity != "" {
			if s.Quantity, err = parseQuantity(raw.Quantity); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return body, nil, false
			}
		}
		if raw.CurrentPrice != "" {
			if s.CurrentPrice, err = parseQuantity(raw.CurrentPrice); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return body, nil, false
			}
		}
		signals = append(signals, s)
	}
	return body, signals, true
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// parseQuantity accepts decimal strings so callers never lose precision to
// float JSON numbers.
func parseQuantity(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value: %q", value)
	}
	return d, nil
}

func (h *Handlers) writeConfirmation(w http.ResponseWriter, conf Confirmation) {
	status := http.StatusOK
	if !conf.Status.OK() {
		// Rejections are well-formed results, not server errors.
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, conf)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
