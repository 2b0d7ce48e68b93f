package course

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTopic       = errors.New("topic is empty")
	ErrSchemaValidation = errors.New("schema validation failed")
	ErrUpstream         = errors.New("upstream service error")
	ErrPersistence      = errors.New("persistence error")
	ErrNotFound         = errors.New("not found")
)

// GenerationError is returned by the outline generator and the slide expander.
// Stage names the step that failed; the cause is either a ValidationError or an
// error wrapping ErrUpstream.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrSchemaValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSchemaValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrSchemaValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Upstream marks err as a failure of an external service.
func Upstream(err error) error {
	if err == nil || errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
