package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
)

// Handlers contains HTTP handlers for the analytics API.
type Handlers struct {
	service *Service
	repo    *Repository
	log     zerolog.Logger
}

// NewHandlers creates a new analytics handlers instance.
func NewHandlers(service *Service, repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleCreateSnapshot records a snapshot for a portfolio.
// POST /api/portfolios/{id}/snapshots
func (h *Handlers) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var body struct {
		Date            string `json:"date"`
		ErrorOnConflict bool   `json:"error_on_conflict"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	snap, err := h.service.Snapshot(portfolioID, body.Date, body.ErrorOnConflict)
	if errors.Is(err, portfolio.ErrSnapshotExists) {
		http.Error(w, "Snapshot already exists for date", http.StatusConflict)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Snapshot failed")
		http.Error(w, "Failed to create snapshot", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, snap)
}

// HandleComputePerformance derives and stores a performance metrics row.
// POST /api/portfolios/{id}/metrics/performance
func (h *Handlers) HandleComputePerformance(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	m, err := h.service.ComputePerformance(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Performance computation failed")
		http.Error(w, "Failed to compute performance metrics", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, m)
}

// HandleGetPerformanceHistory returns stored performance rows.
// GET /api/portfolios/{id}/metrics/performance
func (h *Handlers) HandleGetPerformanceHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	history, err := h.repo.GetPerformanceHistory(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Failed to get performance history")
		http.Error(w, "Failed to get performance history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []PerformanceMetric{}
	}
	h.writeJSON(w, history)
}

// HandleComputeRisk derives and stores a risk metrics row.
// POST /api/portfolios/{id}/metrics/risk
func (h *Handlers) HandleComputeRisk(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	m, err := h.service.ComputeRisk(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Risk computation failed")
		http.Error(w, "Failed to compute risk metrics", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, m)
}

// HandleGetRiskHistory returns stored risk rows.
// GET /api/portfolios/{id}/metrics/risk
func (h *Handlers) HandleGetRiskHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	history, err := h.repo.GetRiskHistory(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Failed to get risk history")
		http.Error(w, "Failed to get risk history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []RiskMetric{}
	}
	h.writeJSON(w, history)
}

// HandleAdvancedReport computes the full on-demand report.
// GET /api/portfolios/{id}/metrics/advanced?benchmark_id=N
func (h *Handlers) HandleAdvancedReport(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var benchmarkID *int64
	if param := r.URL.Query().Get("benchmark_id"); param != "" {
		id, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			http.Error(w, "Invalid benchmark ID", http.StatusBadRequest)
			return
		}
		benchmarkID = &id
	}

	report, err := h.service.Advanced(portfolioID, benchmarkID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Advanced report failed")
		http.Error(w, "Failed to compute report", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleGetTradeOutcomes returns FIFO-matched closed trades.
// GET /api/portfolios/{id}/trades
func (h *Handlers) HandleGetTradeOutcomes(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	ledger, err := h.service.portfolios.GetTransactions(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Failed to get ledger")
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	outcomes := MatchTrades(ledger)
	if outcomes == nil {
		outcomes = []TradeOutcome{}
	}
	h.writeJSON(w, map[string]any{
		"outcomes": outcomes,
		"stats":    ComputeTradeStats(outcomes),
	})
}

func (h *Handlers) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
