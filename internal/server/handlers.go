package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"succession/internal/deck"
	"succession/internal/logging"
	"succession/internal/plan"
	"succession/internal/store"
)

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error    string            `json:"error"`
	Problems []plan.FieldError `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryHTTP).Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr *plan.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	writeJSON(w, status, resp)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (plan.Input, error) {
	var in plan.Input
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, fmt.Errorf("invalid plan JSON: %w", err)
	}
	return in, nil
}

// ----------------------------------------------------------------------------
// POST /api/decks
// ----------------------------------------------------------------------------

func (s *Server) handleBuildDeck(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.BuildTimeout)
	defer cancel()
	res, err := s.builder.Build(ctx, in)
	switch {
	case errors.Is(err, plan.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, deck.ErrCapacity):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		logging.Get(logging.CategoryHTTP).Errorf("deck build failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", deck.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deck.Filename(in)))
	h.Set("Content-Length", strconv.Itoa(len(res.Deck)))
	h.Set("X-Deck-Slides", strconv.Itoa(res.Slides))
	h.Set("X-Deck-Warnings", strconv.Itoa(len(res.Warnings)))
	h.Set("X-Deck-Repair", string(res.Repair.Status))
	h.Set("X-Build-Id", res.BuildID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Deck); err != nil {
		logging.Get(logging.CategoryHTTP).Warnf("failed to send deck %s: %v", res.BuildID, err)
	}
}

// ----------------------------------------------------------------------------
// Store endpoints
// ----------------------------------------------------------------------------

func (s *Server) directory(w http.ResponseWriter) bool {
	if s.dir == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("employee directory is not configured"))
		return false
	}
	return true
}

func (s *Server) handleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	if !s.directory(w) {
		return
	}
	lastName := strings.TrimSpace(r.URL.Query().Get("last_name"))
	if lastName == "" {
		writeError(w, http.StatusBadRequest, errors.New("last_name is required"))
		return
	}
	people, err := s.dir.SearchEmployees(lastName, s.opts.SearchLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if people == nil {
		people = []plan.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleIncumbentPlan(w http.ResponseWriter, r *http.Request) {
	if !s.directory(w) {
		return
	}
	p, err := s.dir.LatestIncumbentPlan(r.PathValue("id"))
	respondLookup(w, p, err)
}

func (s *Server) handleSuccessorAssessment(w http.ResponseWriter, r *http.Request) {
	if !s.directory(w) {
		return
	}
	a, err := s.dir.LatestSuccessorAssessment(r.PathValue("id"))
	respondLookup(w, a, err)
}

func respondLookup(w http.ResponseWriter, v interface{}, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

type savePlanResponse struct {
	RecordIDs []string `json:"record_ids"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	if !s.directory(w) {
		return
	}
	in, err := decodeInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ids, err := s.dir.SavePlan(in)
	switch {
	case errors.Is(err, plan.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusCreated, savePlanResponse{RecordIDs: ids})
	}
}

// ----------------------------------------------------------------------------
// Misc
// ----------------------------------------------------------------------------

func (s *Server) handleFormOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.FormOptions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
