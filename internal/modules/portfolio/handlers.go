package portfolio

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/pricing"
)

// Handlers contains HTTP handlers for the portfolio API.
type Handlers struct {
	repo   *Repository
	oracle pricing.Oracle
	log    zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance.
func NewHandlers(repo *Repository, oracle pricing.Oracle, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:   repo,
		oracle: oracle,
		log:    log.With().Str("handler", "portfolio").Logger(),
	}
}

type createPortfolioRequest struct {
	Name                       string           `json:"name"`
	Description                string           `json:"description"`
	InitialCapital             decimal.Decimal  `json:"initial_capital"`
	MaxCashPerTrade            *decimal.Decimal `json:"max_cash_per_trade"`
	MaxPositionSize            *decimal.Decimal `json:"max_position_size"`
	MaxAllocationPerAssetClass *decimal.Decimal `json:"max_allocation_per_asset_class"`
	FeeStructureID             *int64           `json:"fee_structure_id"`
	ModelName                  string           `json:"model_name"`
}

// HandleCreatePortfolio creates a portfolio with cash equal to initial capital.
// POST /api/portfolios
func (h *Handlers) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Portfolio name is required", http.StatusBadRequest)
		return
	}
	if req.InitialCapital.IsNegative() {
		http.Error(w, "Initial capital cannot be negative", http.StatusBadRequest)
		return
	}

	p := &Portfolio{
		Name:                       req.Name,
		Description:                req.Description,
		InitialCapital:             req.InitialCapital.Round(2),
		MaxCashPerTrade:            req.MaxCashPerTrade,
		MaxPositionSize:            req.MaxPositionSize,
		MaxAllocationPerAssetClass: req.MaxAllocationPerAssetClass,
		FeeStructureID:             req.FeeStructureID,
		ModelName:                  req.ModelName,
	}

	created, err := h.repo.Create(p)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		http.Error(w, "Failed to create portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandleListPortfolios returns portfolios filtered by status (default active).
// GET /api/portfolios?status=active
func (h *Handlers) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	status := domain.PortfolioActive
	if param := r.URL.Query().Get("status"); param != "" {
		status = domain.PortfolioStatus(param)
		if !status.IsValid() {
			http.Error(w, "Invalid portfolio status", http.StatusBadRequest)
			return
		}
	}

	portfolios, err := h.repo.ListByStatus(status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		http.Error(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}
	if portfolios == nil {
		portfolios = []Portfolio{}
	}
	h.writeJSON(w, portfolios)
}

// HandleGetPortfolio returns a single portfolio.
// GET /api/portfolios/{id}
func (h *Handlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, p)
}

// HandleGetValue returns the derived valuation view, refreshing market
// prices from the oracle first.
// GET /api/portfolios/{id}/value
func (h *Handlers) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	holdings, err := h.repo.GetHoldings(p.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to get holdings")
		http.Error(w, "Failed to get holdings", http.StatusInternalServerError)
		return
	}

	h.refreshPrices(holdings)
	h.writeJSON(w, Value(p, holdings))
}

// HandleGetHoldings returns the current positions of a portfolio.
// GET /api/portfolios/{id}/holdings
func (h *Handlers) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	holdings, err := h.repo.GetHoldings(p.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to get holdings")
		http.Error(w, "Failed to get holdings", http.StatusInternalServerError)
		return
	}

	h.refreshPrices(holdings)
	if holdings == nil {
		holdings = []Holding{}
	}
	h.writeJSON(w, holdings)
}

// HandleGetTransactions returns the immutable ledger of a portfolio.
// GET /api/portfolios/{id}/transactions
func (h *Handlers) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	txns, err := h.repo.GetTransactions(p.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to get transactions")
		http.Error(w, "Failed to get transactions", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []Transaction{}
	}
	h.writeJSON(w, txns)
}

// HandleGetSnapshots returns the daily snapshot series of a portfolio.
// GET /api/portfolios/{id}/snapshots
func (h *Handlers) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	snapshots, err := h.repo.GetSnapshots(p.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to get snapshots")
		http.Error(w, "Failed to get snapshots", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	h.writeJSON(w, snapshots)
}

// HandleSetStatus changes a portfolio's lifecycle status. Archiving or
// deleting never touches the ledger.
// PATCH /api/portfolios/{id}/status
func (h *Handlers) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := domain.PortfolioStatus(req.Status)
	if !status.IsValid() {
		http.Error(w, "Invalid portfolio status", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetStatus(p.ID, status); err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to update status")
		http.Error(w, "Failed to update status", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]any{"id": p.ID, "status": status})
}

// HandleGetAllocation returns the per-class allocation of NAV.
// GET /api/portfolios/{id}/allocation
func (h *Handlers) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	holdings, err := h.repo.GetHoldings(p.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to get holdings")
		http.Error(w, "Failed to get holdings", http.StatusInternalServerError)
		return
	}

	h.refreshPrices(holdings)
	h.writeJSON(w, Allocation(p, holdings))
}

// HandleArchive archives a portfolio. The ledger and snapshots remain.
// DELETE /api/portfolios/{id}
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	p, ok := h.portfolioFromURL(w, r)
	if !ok {
		return
	}

	if err := h.repo.SetStatus(p.ID, domain.PortfolioArchived); err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to archive portfolio")
		http.Error(w, "Failed to archive portfolio", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]any{"id": p.ID, "status": domain.PortfolioArchived})
}

// refreshPrices marks holdings to market with the best known oracle price.
// Oracle misses leave the entry-price fallback in place.
func (h *Handlers) refreshPrices(holdings []Holding) {
	for i := range holdings {
		price, found, err := h.oracle.GetPrice(holdings[i].Ticker, holdings[i].AssetClass)
		if err != nil {
			h.log.Warn().Err(err).Str("ticker", holdings[i].Ticker).Msg("Price lookup failed")
			continue
		}
		if found {
			holdings[i].CurrentPrice = &price
		}
	}
}

func (h *Handlers) portfolioFromURL(w http.ResponseWriter, r *http.Request) (*Portfolio, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return nil, false
	}

	p, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", id).Msg("Failed to get portfolio")
		http.Error(w, "Failed to get portfolio", http.StatusInternalServerError)
		return nil, false
	}
	if p == nil {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return nil, false
	}
	return p, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
