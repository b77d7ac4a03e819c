package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldKind tells how a form value becomes a model column.
type FieldKind string

const (
	KindNumeric     FieldKind = "numeric"
	KindCategorical FieldKind = "categorical"
)

// FeatureField describes one model input column.
type FeatureField struct {
	Name       string    `json:"name" yaml:"name"`
	Kind       FieldKind `json:"kind" yaml:"kind"`
	Min        *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Categories []string  `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Schema is the ordered list of columns a model was trained on.
type Schema struct {
	Fields []FeatureField `json:"fields" yaml:"fields"`
}

// Width is the number of model columns.
func (s Schema) Width() int { return len(s.Fields) }

// Names returns the field names in column order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Validate checks the schema is well formed.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: schema has no fields", ErrSchemaMismatch)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field %d has no name", ErrSchemaMismatch, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrSchemaMismatch, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case KindNumeric:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("%w: field %q has min > max", ErrSchemaMismatch, f.Name)
			}
		case KindCategorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("%w: categorical field %q has no categories", ErrSchemaMismatch, f.Name)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown kind %q", ErrSchemaMismatch, f.Name, f.Kind)
		}
	}
	return nil
}

// Assemble turns named inputs into a row in training column order.
// Missing fields, unknown names, out-of-range numbers and unknown
// categories are rejected.
func (s Schema) Assemble(inputs map[string]any) ([]float64, error) {
	known := make(map[string]struct{}, len(s.Fields))
	row := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		known[f.Name] = struct{}{}
		raw, ok := inputs[f.Name]
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "is required", Kind: ErrInvalidInput}
		}
		v, err := f.Encode(raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	for name := range inputs {
		if _, ok := known[name]; !ok {
			return nil, &FieldError{Field: name, Reason: "is not part of the schema", Kind: ErrSchemaMismatch}
		}
	}
	return row, nil
}

// Encode converts a single raw value into its column value.
func (f FeatureField) Encode(raw any) (float64, error) {
	if f.Kind == KindCategorical {
		label, ok := raw.(string)
		if !ok {
			return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("expected a category name, got %T", raw), Kind: ErrInvalidInput}
		}
		for i, c := range f.Categories {
			if c == label {
				return float64(i), nil
			}
		}
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%q not in %v", label, f.Categories), Kind: ErrUnknownCategory}
	}

	v, err := toFloat(raw)
	if err != nil {
		return 0, &FieldError{Field: f.Name, Reason: err.Error(), Kind: ErrInvalidInput}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FieldError{Field: f.Name, Reason: "must be finite", Kind: ErrInvalidInput}
	}
	if f.Min != nil && v < *f.Min {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%g below minimum %g", v, *f.Min), Kind: ErrOutOfRange}
	}
	if f.Max != nil && v > *f.Max {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%g above maximum %g", v, *f.Max), Kind: ErrOutOfRange}
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}
