package inference

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// LabelEncoder maps class names to integer codes by position.
type LabelEncoder struct {
	Classes []string `json:"classes" yaml:"classes"`
}

// Transform returns the code for label.
func (e LabelEncoder) Transform(label string) (int, error) {
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, &domain.FieldError{Reason: fmt.Sprintf("label %q not in %v", label, e.Classes), Kind: domain.ErrUnknownCategory}
}

// InverseTransform returns the label for code.
func (e LabelEncoder) InverseTransform(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", &domain.FieldError{Reason: fmt.Sprintf("code %d outside [0, %d)", code, len(e.Classes)), Kind: domain.ErrOutOfRange}
	}
	return e.Classes[code], nil
}

// Len is the number of classes.
func (e LabelEncoder) Len() int { return len(e.Classes) }

func (e LabelEncoder) validate() error {
	seen := make(map[string]struct{}, len(e.Classes))
	for _, c := range e.Classes {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate class %q", domain.ErrSchemaMismatch, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// covers reports whether v is a whole number that names a class.
func (e LabelEncoder) covers(v float64) bool {
	return v == math.Trunc(v) && v >= 0 && int(v) < len(e.Classes)
}
