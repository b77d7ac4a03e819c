package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

const defaultHistoryLimit = 50

type tableView struct {
	Name       string         `json:"name"`
	Default    domain.Outcome `json:"default"`
	Rules      []domain.Rule  `json:"rules"`
	Moods      []string       `json:"moods"`
	Activities []string       `json:"activities"`
}

type moodRequest struct {
	Text  string `json:"text"`
	Table string `json:"table,omitempty"`
}

// Recommend handles POST /recommendations
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req domain.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidInput)
		return
	}

	rec, err := h.companion.Recommend(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// History handles GET /history?limit=n
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorWithCode(w, http.StatusBadRequest, "limit must be a non-negative integer", errCodeInvalidInput)
			return
		}
		limit = n
	}

	entries, err := h.companion.History(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Rules handles GET /rules
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	tables := h.companion.Tables()
	out := make([]tableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableView{
			Name:       t.Name,
			Default:    t.Default,
			Rules:      t.Rules(),
			Moods:      t.Moods(),
			Activities: t.Activities(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DetectMood handles POST /mood
func (h *Handler) DetectMood(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidInput)
		return
	}

	res, err := h.companion.DetectMood(r.Context(), req.Text, req.Table)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
