package rest

import (
	"encoding/json"
	"net/http"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/inference"
)

type modelView struct {
	Name        string           `json:"name"`
	Kind        string           `json:"kind"`
	Description string           `json:"description,omitempty"`
	Schema      domain.Schema    `json:"schema"`
	Output      inference.Output `json:"output"`
}

func viewOf(m inference.Model) modelView {
	return modelView{
		Name:        m.Name(),
		Kind:        m.Kind(),
		Description: m.Description(),
		Schema:      m.Schema(),
		Output:      m.Output(),
	}
}

type predictRequest struct {
	Inputs map[string]any `json:"inputs"`
}

// ListModels handles GET /models
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.models.List()
	out := make([]modelView, 0, len(models))
	for _, m := range models {
		out = append(out, viewOf(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetModel handles GET /models/{name}
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.models.Get(r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

// Predict handles POST /models/{name}/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req predictRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidInput)
		return
	}
	if len(req.Inputs) == 0 {
		writeErrorWithCode(w, http.StatusBadRequest, "inputs are required", errCodeInvalidInput)
		return
	}

	p, err := h.models.Predict(r.Context(), r.PathValue("name"), req.Inputs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
