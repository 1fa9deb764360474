package pricing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Handlers contains HTTP handlers for the price store.
type Handlers struct {
	store *StoreOracle
	cache *CachedOracle
	log   zerolog.Logger
}

// NewHandlers creates a new pricing handlers instance. The cache is
// invalidated on writes so fresh prices are visible immediately.
func NewHandlers(store *StoreOracle, cache *CachedOracle, log zerolog.Logger) *Handlers {
	return &Handlers{
		store: store,
		cache: cache,
		log:   log.With().Str("handler", "pricing").Logger(),
	}
}

// HandleUpsertPrice writes the current price for one instrument.
// PUT /api/prices
func (h *Handlers) HandleUpsertPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssetClass string `json:"asset_class"`
		Ticker     string `json:"ticker"`
		Price      string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	class, err := domain.AssetClassFromString(body.AssetClass)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	price, err := decimal.NewFromString(body.Price)
	if err != nil || !price.IsPositive() {
		http.Error(w, "Price must be a positive decimal", http.StatusBadRequest)
		return
	}

	if err := h.store.UpsertPrice(body.Ticker, class, price); err != nil {
		h.log.Error().Err(err).Str("ticker", body.Ticker).Msg("Failed to store price")
		http.Error(w, "Failed to store price", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		h.cache.Clear()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"asset_class": class,
		"ticker":      body.Ticker,
		"price":       price,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandleGetPrice returns the stored price for one instrument.
// GET /api/prices/{class}/{ticker}
func (h *Handlers) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	class, err := domain.AssetClassFromString(chi.URLParam(r, "class"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ticker := chi.URLParam(r, "ticker")

	price, found, err := h.store.GetPrice(ticker, class)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to get price")
		http.Error(w, "Failed to get price", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No price for instrument", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"asset_class": class,
		"ticker":      ticker,
		"symbol":      FeedSymbol(ticker, class),
		"price":       price,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
