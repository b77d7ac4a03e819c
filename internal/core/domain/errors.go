package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("domain: not found")
	ErrInvalidInput      = errors.New("domain: invalid input")
	ErrModelNotFound     = errors.New("domain: model not found")
	ErrUnknownCategory   = errors.New("domain: unknown category")
	ErrOutOfRange        = errors.New("domain: value out of range")
	ErrSchemaMismatch    = errors.New("domain: schema mismatch")
	ErrNoVoicedFrames    = errors.New("domain: no voiced frames")
	ErrUnsupportedFormat = errors.New("domain: unsupported audio format")
	ErrEmptyAudio        = errors.New("domain: empty audio")
)

// FieldError reports which input field failed validation and why.
// It matches its Kind sentinel under errors.Is.
type FieldError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%v: field %q: %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	if e.Kind == nil {
		return target == ErrInvalidInput
	}
	return target == e.Kind || target == ErrInvalidInput
}
