// Package inference loads trained model artifacts once and serves
// predictions from them through a named-field schema.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// DefaultPattern matches artifact files anywhere below the models directory.
const DefaultPattern = "**/*.model.{yaml,yml,json}"

var (
	ErrNoArtifacts    = errors.New("inference: no model artifacts found")
	ErrDuplicateModel = errors.New("inference: duplicate model name")
)

// Registry holds the loaded models. A reload replaces the whole set at
// once; models themselves are never mutated.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{models: map[string]Model{}, logger: logger}
}

// LoadDir discovers every artifact in fsys matching pattern and loads it.
// Either all artifacts load and replace the current set, or nothing
// changes and the first error is returned.
func (r *Registry) LoadDir(fsys fs.FS, pattern string) (int, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := fs.Stat(fsys, "."); err != nil {
		return 0, fmt.Errorf("inference: models directory: %w", err)
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("inference: glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w (pattern %q)", ErrNoArtifacts, pattern)
	}
	sort.Strings(matches)

	next := make(map[string]Model, len(matches))
	for _, name := range matches {
		m, err := loadFile(fsys, name)
		if err != nil {
			return 0, err
		}
		if _, dup := next[m.Name()]; dup {
			return 0, fmt.Errorf("%w: %q in %s", ErrDuplicateModel, m.Name(), name)
		}
		next[m.Name()] = m
		r.logger.Debug("model loaded", "name", m.Name(), "kind", m.Kind(), "file", name, "fields", m.Schema().Width())
	}

	r.mu.Lock()
	r.models = next
	r.mu.Unlock()
	r.logger.Info("model registry loaded", "count", len(next))
	return len(next), nil
}

// loadFile loads one artifact. A missing name falls back to the file name
// without its ".model.*" suffix.
func loadFile(fsys fs.FS, name string) (Model, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("inference: open %s: %w", name, err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if a.Name == "" {
		base := path.Base(name)
		if i := strings.Index(base, ".model."); i > 0 {
			a.Name = base[:i]
		} else {
			a.Name = strings.TrimSuffix(base, path.Ext(base))
		}
	}
	m, err := Build(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Register adds a single model, rejecting duplicate names.
func (r *Registry) Register(m Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.models[m.Name()]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateModel, m.Name())
	}
	next := make(map[string]Model, len(r.models)+1)
	for k, v := range r.models {
		next[k] = v
	}
	next[m.Name()] = m
	r.models = next
	return nil
}

// Get returns the named model.
func (r *Registry) Get(name string) (Model, error) {
	r.mu.RLock()
	m, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("inference: %q: %w", name, domain.ErrModelNotFound)
	}
	return m, nil
}

// List returns all models sorted by name.
func (r *Registry) List() []Model {
	r.mu.RLock()
	out := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len is the number of loaded models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Predict validates named inputs against the model schema, assembles the
// row in training order and runs the model.
func (r *Registry) Predict(ctx context.Context, name string, inputs map[string]any) (domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Prediction{}, err
	}
	m, err := r.Get(name)
	if err != nil {
		return domain.Prediction{}, err
	}
	row, err := m.Schema().Assemble(inputs)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("inference: %s: %w", name, err)
	}
	return run(m, row)
}

// PredictRaw runs the model on a positional row. Only the width is
// checked: values in the wrong column order produce a wrong answer, not an
// error.
func (r *Registry) PredictRaw(name string, row []float64) (domain.Prediction, error) {
	m, err := r.Get(name)
	if err != nil {
		return domain.Prediction{}, err
	}
	return run(m, row)
}

func run(m Model, row []float64) (domain.Prediction, error) {
	v, err := m.PredictVector(row)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("inference: %s: %w", m.Name(), err)
	}
	p := domain.Prediction{Model: m.Name(), Kind: m.Kind(), Value: v, Row: row}
	if enc := m.Output().Encoder; enc.Len() > 0 {
		label, err := enc.InverseTransform(int(v))
		if err != nil {
			return domain.Prediction{}, fmt.Errorf("inference: %s: %w", m.Name(), err)
		}
		p.Label = label
	}
	return p, nil
}
