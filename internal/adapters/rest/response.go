package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/core/ports"
	"github.com/ewilliams-labs/vocalis/internal/core/services"
	"github.com/ewilliams-labs/vocalis/internal/worker"
)

// Error codes returned in the "code" field of error bodies.
const (
	errCodeInvalidInput     = "INVALID_INPUT"
	errCodeUnknownCategory  = "UNKNOWN_CATEGORY"
	errCodeOutOfRange       = "OUT_OF_RANGE"
	errCodeSchemaMismatch   = "SCHEMA_MISMATCH"
	errCodeNotFound         = "NOT_FOUND"
	errCodeEmptyAudio       = "EMPTY_AUDIO"
	errCodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	errCodeNoVoicedFrames   = "NO_VOICED_FRAMES"
	errCodeNoConfidentMatch = "NO_CONFIDENT_MATCH"
	errCodeNotConfigured    = "NOT_CONFIGURED"
	errCodeQueueFull        = "QUEUE_FULL"
	errCodeTooLarge         = "PAYLOAD_TOO_LARGE"
	errCodeJobPending       = "JOB_PENDING"
	errCodeJobFailed        = "JOB_FAILED"
	errCodeInternal         = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// statusFor maps service errors onto HTTP statuses. Order matters: field
// errors match ErrInvalidInput as well as their own kind.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, errCodeTooLarge
	case errors.Is(err, ports.ErrNoConfidentMatch):
		return http.StatusUnprocessableEntity, errCodeNoConfidentMatch
	case errors.Is(err, services.ErrClassifierUnavailable):
		return http.StatusNotImplemented, errCodeNotConfigured
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrPoolStopped):
		return http.StatusServiceUnavailable, errCodeQueueFull
	case errors.Is(err, domain.ErrModelNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errCodeNotFound
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, errCodeUnsupportedMedia
	case errors.Is(err, domain.ErrEmptyAudio):
		return http.StatusBadRequest, errCodeEmptyAudio
	case errors.Is(err, domain.ErrNoVoicedFrames):
		return http.StatusUnprocessableEntity, errCodeNoVoicedFrames
	case errors.Is(err, domain.ErrUnknownCategory):
		return http.StatusBadRequest, errCodeUnknownCategory
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusBadRequest, errCodeOutOfRange
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusBadRequest, errCodeSchemaMismatch
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errCodeInvalidInput
	default:
		return http.StatusInternalServerError, errCodeInternal
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusServiceUnavailable {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeErrorWithCode(w, status, err.Error(), code)
}
