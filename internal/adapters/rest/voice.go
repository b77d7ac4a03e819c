package rest

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/vocalis/internal/audio"
	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
	"github.com/ewilliams-labs/vocalis/internal/worker"
)

const (
	uploadField     = "audio"
	multipartMemory = 8 << 20
)

type jobAccepted struct {
	ID    string       `json:"id"`
	State worker.State `json:"state"`
}

// openUpload parses the multipart form and returns the uploaded clip.
func (h *Handler) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, "", err
		}
		return nil, "", &domain.FieldError{Field: uploadField, Reason: "expected a multipart form: " + err.Error(), Kind: domain.ErrInvalidInput}
	}
	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", &domain.FieldError{Field: uploadField, Reason: "file is required", Kind: domain.ErrInvalidInput}
	}
	return f, hdr.Filename, nil
}

// synthOptions overlays the form fields on the configured defaults.
func (h *Handler) synthOptions(r *http.Request) (dsp.SynthOptions, error) {
	opts := h.voice.Defaults()
	if v := r.FormValue("wave"); v != "" {
		shape, err := dsp.ParseWaveShape(v)
		if err != nil {
			return opts, err
		}
		opts.Shape = shape
	}
	if v := r.FormValue("interpolation"); v != "" {
		mode, err := dsp.ParseInterpolation(v)
		if err != nil {
			return opts, err
		}
		opts.Interpolation = mode
	}
	if v := r.FormValue("volume"); v != "" {
		vol, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return opts, &domain.FieldError{Field: "volume", Reason: fmt.Sprintf("%q is not a number", v), Kind: domain.ErrInvalidInput}
		}
		opts.Volume = vol
	}
	if v := r.FormValue("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return opts, &domain.FieldError{Field: "strict", Reason: fmt.Sprintf("%q is not a boolean", v), Kind: domain.ErrInvalidInput}
		}
		opts.Strict = strict
	}
	return opts, nil
}

// Synthesize handles POST /voice/synthesize
func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	f, name, err := h.openUpload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	opts, err := h.synthOptions(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out, err := h.voice.Synthesize(r.Context(), f, name, opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, out); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeAudio(w, buf.Bytes(), "audio/wav", "synthesized.wav")
}

// Analyze handles POST /voice/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	f, name, err := h.openUpload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	a, err := h.voice.Analyze(r.Context(), f, name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SubmitJob handles POST /voice/jobs. The clip is decoded before the job
// is queued so bad uploads fail synchronously.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeErrorWithCode(w, http.StatusNotImplemented, "async synthesis not configured", errCodeNotConfigured)
		return
	}

	f, name, err := h.openUpload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	opts, err := h.synthOptions(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	clip, err := h.voice.Load(r.Context(), f, name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	id, err := h.jobs.Submit(worker.Job{Task: worker.SynthesisTask(h.voice, clip, opts)})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/voice/jobs/"+id)
	writeJSON(w, http.StatusAccepted, jobAccepted{ID: id, State: worker.StateQueued})
}

// GetJob handles GET /voice/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeErrorWithCode(w, http.StatusNotImplemented, "async synthesis not configured", errCodeNotConfigured)
		return
	}
	st, err := h.jobs.Store().Get(r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetJobAudio handles GET /voice/jobs/{id}/audio
func (h *Handler) GetJobAudio(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeErrorWithCode(w, http.StatusNotImplemented, "async synthesis not configured", errCodeNotConfigured)
		return
	}
	res, st, err := h.jobs.Store().Result(r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	switch st.State {
	case worker.StateDone:
		writeAudio(w, res.Data, res.ContentType, st.ID+".wav")
	case worker.StateFailed:
		writeErrorWithCode(w, http.StatusUnprocessableEntity, st.Error, errCodeJobFailed)
	default:
		writeErrorWithCode(w, http.StatusConflict, fmt.Sprintf("job is %s", st.State), errCodeJobPending)
	}
}

func writeAudio(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
