package fees

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Handlers contains HTTP handlers for fee structure management.
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new fees handlers instance.
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "fees").Logger(),
	}
}

// HandleCreate registers a named fee policy.
// POST /api/fees
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Scheme      string `json:"scheme"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scheme, err := domain.FeeSchemeFromString(body.Scheme)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount := decimal.Zero
	if body.Amount != "" {
		if amount, err = decimal.NewFromString(body.Amount); err != nil {
			http.Error(w, "Invalid fee amount", http.StatusBadRequest)
			return
		}
	}

	f, err := New(body.Name, scheme, amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.Description = body.Description

	created, err := h.repo.Create(f)
	if err != nil {
		h.log.Error().Err(err).Str("name", body.Name).Msg("Failed to create fee structure")
		http.Error(w, "Failed to create fee structure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandleGetByName returns a fee policy by its unique name.
// GET /api/fees/{name}
func (h *Handlers) HandleGetByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := h.repo.GetByName(name)
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("Failed to get fee structure")
		http.Error(w, "Failed to get fee structure", http.StatusInternalServerError)
		return
	}
	if f == nil {
		http.Error(w, "Fee structure not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
