package apperror

import (
	"errors"
	"strings"
)

// ValidationError carries every business rule a request violated, in the
// order the rules were evaluated.
type ValidationError struct {
	Messages []string `json:"errors"`
}

func NewValidation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Messages) > 0
}

// Err returns nil when no rule was violated so callers can `return v.Err()`.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// DataAccessError wraps a failure from storage or another collaborator. The
// cause is opaque to callers of the engine.
type DataAccessError struct {
	Op  string
	Err error
}

func NewDataAccess(op string, err error) *DataAccessError {
	return &DataAccessError{Op: op, Err: err}
}

func (e *DataAccessError) Error() string {
	if e.Op == "" {
		return "data access: " + e.Err.Error()
	}
	return "data access: " + e.Op + ": " + e.Err.Error()
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsDataAccess(err error) bool {
	var d *DataAccessError
	return errors.As(err, &d)
}

// Messages extracts the validation messages from err, or nil if err is not
// a ValidationError.
func Messages(err error) []string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Messages
	}
	return nil
}

// AsDataAccess passes through an existing DataAccessError and wraps anything
// else under op.
func AsDataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	var d *DataAccessError
	if errors.As(err, &d) {
		return err
	}
	return NewDataAccess(op, err)
}
