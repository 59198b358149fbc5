package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
	"github.com/MikeSquared-Agency/Themis/internal/hermes"
	"github.com/MikeSquared-Agency/Themis/internal/store"
)

type PopulationsHandler struct {
	store   store.Store
	hermes  hermes.Client
	maxSize int
	logger  *slog.Logger
}

func NewPopulationsHandler(s store.Store, h hermes.Client, maxSize int, logger *slog.Logger) *PopulationsHandler {
	return &PopulationsHandler{store: s, hermes: h, maxSize: maxSize, logger: logger}
}

type CreatePopulationRequest struct {
	Name   string               `json:"name"`
	Source string               `json:"source,omitempty"`
	Groups []engine.GroupSample `json:"groups"`
}

func (h *PopulationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePopulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || len(req.Groups) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and groups required"})
		return
	}

	size := 0
	for _, g := range req.Groups {
		size += len(g.Samples)
	}
	if h.maxSize > 0 && size > h.maxSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "population exceeds the configured size limit"})
		return
	}

	// building the frontiers up front rejects malformed samples before
	// anything is persisted
	if _, err := engine.NewPopulation(req.Groups); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	pop := &store.Population{
		Name:   req.Name,
		Source: req.Source,
		Groups: req.Groups,
		Size:   size,
	}
	if err := h.store.CreatePopulation(r.Context(), pop); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.hermes.Publish(hermes.SubjectPopulationCreated(pop.ID.String()), hermes.PopulationCreatedEvent{
		PopulationID: pop.ID.String(),
		Name:         pop.Name,
		Groups:       len(pop.Groups),
		Size:         pop.Size,
		Source:       pop.Source,
	}); err != nil {
		h.logger.Warn("publish population created", "error", err)
	}

	writeJSON(w, http.StatusCreated, pop)
}

func (h *PopulationsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.PopulationFilter{
		Source: r.URL.Query().Get("source"),
	}
	pops, err := h.store.ListPopulations(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if pops == nil {
		pops = []*store.Population{}
	}
	writeJSON(w, http.StatusOK, pops)
}

func (h *PopulationsHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, pop)
}

func (h *PopulationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeletePopulation(r.Context(), id); err != nil {
		if err == pgx.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "population not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.hermes.Publish(hermes.SubjectPopulationDeleted(id.String()), map[string]string{
		"population_id": id.String(),
	}); err != nil {
		h.logger.Warn("publish population deleted", "error", err)
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid population id"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}
