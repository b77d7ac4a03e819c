package inference

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Model kinds understood by Load.
const (
	KindLinear       = "linear"
	KindPolynomial   = "polynomial"
	KindLogistic     = "logistic"
	KindDecisionTree = "decision_tree"
	KindKMeans       = "kmeans"
	KindKNN          = "knn"
	KindNaiveBayes   = "naive_bayes"
	KindRandomForest = "random_forest"
	KindSVM          = "svm"
)

var ErrInvalidArtifact = errors.New("inference: invalid artifact")

// Artifact is the on-disk description of a trained model. It is written as
// YAML; JSON documents parse the same way.
type Artifact struct {
	Name        string        `json:"name" yaml:"name"`
	Kind        string        `json:"kind" yaml:"kind"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      domain.Schema `json:"schema" yaml:"schema"`
	Output      Output        `json:"output" yaml:"output"`
	Scaler      *Scaler       `json:"scaler,omitempty" yaml:"scaler,omitempty"`
	Params      Params        `json:"params" yaml:"params"`
}

// Scaler standardizes an assembled row before the model sees it:
// (x - Mean) / Scale per column.
type Scaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

func (s *Scaler) validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler: %d means and %d scales for %d fields", len(s.Mean), len(s.Scale), width)
	}
	for i, v := range s.Scale {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scaler: scale %d is %g", i, v)
		}
	}
	return nil
}

func (s *Scaler) apply(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, x := range row {
		out[i] = (x - s.Mean[i]) / s.Scale[i]
	}
	return out
}

// Output names the predicted quantity. Classifiers list their classes so
// codes can be turned back into labels.
type Output struct {
	Name    string       `json:"name" yaml:"name"`
	Encoder LabelEncoder `json:"encoder" yaml:"encoder,omitempty"`
}

// Params holds the fitted values. Each kind reads only its own fields.
type Params struct {
	Coefficients []float64    `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Intercept    float64      `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Degree       int          `json:"degree,omitempty" yaml:"degree,omitempty"`
	Threshold    float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Nodes        []TreeNode   `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Centroids    [][]float64  `json:"centroids,omitempty" yaml:"centroids,omitempty"`
	K            int          `json:"k,omitempty" yaml:"k,omitempty"`
	Points       [][]float64  `json:"points,omitempty" yaml:"points,omitempty"`
	Targets      []float64    `json:"targets,omitempty" yaml:"targets,omitempty"`
	Priors       []float64    `json:"priors,omitempty" yaml:"priors,omitempty"`
	Means        [][]float64  `json:"means,omitempty" yaml:"means,omitempty"`
	Variances    [][]float64  `json:"variances,omitempty" yaml:"variances,omitempty"`
	Trees        [][]TreeNode `json:"trees,omitempty" yaml:"trees,omitempty"`
	Weights      [][]float64  `json:"weights,omitempty" yaml:"weights,omitempty"`
	Intercepts   []float64    `json:"intercepts,omitempty" yaml:"intercepts,omitempty"`
}

// TreeNode is one node of a fitted decision tree. A node whose Left and
// Right are both negative is a leaf carrying Value. Otherwise rows with
// row[Feature] <= Threshold go left.
type TreeNode struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Value     float64 `json:"value" yaml:"value"`
}

func (n TreeNode) leaf() bool { return n.Left < 0 && n.Right < 0 }

// Decode parses an artifact document without validating it.
func Decode(r io.Reader) (Artifact, error) {
	var a Artifact
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		if errors.Is(err, io.EOF) {
			return Artifact{}, fmt.Errorf("%w: empty document", ErrInvalidArtifact)
		}
		return Artifact{}, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	a.Name = strings.TrimSpace(a.Name)
	a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
	return a, nil
}

// Load decodes and validates an artifact and returns the ready model.
func Load(r io.Reader) (Model, error) {
	a, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Build(a)
}

// Build validates a decoded artifact and returns the ready model.
func Build(a Artifact) (Model, error) {
	if a.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArtifact)
	}
	if err := a.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, a.Name, err)
	}
	if err := a.Output.Encoder.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, a.Name, err)
	}
	if a.Scaler != nil {
		if err := a.Scaler.validate(a.Schema.Width()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, a.Name, err)
		}
	}

	build, ok := builders[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidArtifact, a.Name, a.Kind)
	}
	fn, err := build(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, a.Name, err)
	}
	return &model{artifact: a, predict: fn}, nil
}
