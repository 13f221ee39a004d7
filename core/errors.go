package core

import "github.com/pkg/errors"

// FieldError describes what is wrong with one submitted field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is rejected input, optionally with per-field detail for the
// dashboard shell to render inline.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the service cannot safely continue and should stop;
// the HTTP error handler turns it into a graceful shutdown.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (at its cause) asks for a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
