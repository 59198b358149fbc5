package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
	"github.com/MikeSquared-Agency/Themis/internal/hermes"
	"github.com/MikeSquared-Agency/Themis/internal/store"
)

type ChainsHandler struct {
	store   store.Store
	hermes  hermes.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewChainsHandler(s store.Store, h hermes.Client, timeout time.Duration, logger *slog.Logger) *ChainsHandler {
	return &ChainsHandler{store: s, hermes: h, timeout: timeout, logger: logger}
}

// Allocation solves a single budget on demand without touching the stored
// chain. Fractional budgets are allowed.
func (h *ChainsHandler) Allocation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	budget, err := strconv.ParseFloat(chi.URLParam(r, "budget"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid budget"})
		return
	}

	pop, err := h.store.GetPopulation(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if pop == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "population not found"})
		return
	}

	p, err := engine.NewPopulation(pop.Groups)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	alloc, err := p.Allocate(budget)
	if err != nil {
		if errors.Is(err, engine.ErrBudgetOutOfRange) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

type ChainResponse struct {
	PopulationID string              `json:"population_id"`
	Budgets      int                 `json:"budgets"`
	Repairs      int                 `json:"repairs"`
	BuildMs      int64               `json:"build_ms"`
	ComputedAt   time.Time           `json:"computed_at"`
	Series       []engine.ChainPoint `json:"series"`
	Allocations  []engine.Allocation `json:"allocations,omitempty"`
}

func (h *ChainsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	pop, err := h.store.GetPopulation(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if pop == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "population not found"})
		return
	}

	p, err := engine.NewPopulation(pop.Groups)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	chain, err := p.BuildChain(ctx)
	buildMs := time.Since(start).Milliseconds()
	if err != nil {
		var cerr *engine.ChainError
		status := http.StatusInternalServerError
		failed := hermes.ChainFailedEvent{PopulationID: id.String(), Error: err.Error()}
		switch {
		case errors.As(err, &cerr):
			status = http.StatusUnprocessableEntity
			failed.Budget = cerr.Budget
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		if perr := h.hermes.Publish(hermes.SubjectChainFailed(id.String()), failed); perr != nil {
			h.logger.Warn("publish chain failed", "error", perr)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	rec := &store.ChainRecord{
		PopulationID: id,
		Chain:        chain,
		Repairs:      chain.Repairs,
		BuildMs:      buildMs,
	}
	if err := h.store.SaveChain(r.Context(), rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	full := chain.Allocations[len(chain.Allocations)-1]
	if err := h.hermes.Publish(hermes.SubjectChainComputed(id.String()), hermes.ChainComputedEvent{
		PopulationID: id.String(),
		Budgets:      len(chain.Allocations),
		Repairs:      chain.Repairs,
		FullUtility:  full.TotalUtility,
		BuildMs:      buildMs,
	}); err != nil {
		h.logger.Warn("publish chain computed", "error", err)
	}

	writeJSON(w, http.StatusCreated, chainResponse(rec, r.URL.Query().Get("include") == "allocations"))
}

func (h *ChainsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.GetChain(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no chain computed for this population"})
		return
	}
	writeJSON(w, http.StatusOK, chainResponse(rec, r.URL.Query().Get("include") == "allocations"))
}

func chainResponse(rec *store.ChainRecord, includeAllocations bool) *ChainResponse {
	resp := &ChainResponse{
		PopulationID: rec.PopulationID.String(),
		Budgets:      len(rec.Chain.Allocations),
		Repairs:      rec.Repairs,
		BuildMs:      rec.BuildMs,
		ComputedAt:   rec.ComputedAt,
		Series:       rec.Chain.Series(),
	}
	if includeAllocations {
		resp.Allocations = rec.Chain.Allocations
	}
	return resp
}
