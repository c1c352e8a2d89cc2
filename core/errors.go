package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing record. Domain packages keep one value per record type
// so callers can compare with errors.Cause(err) == pkg.ErrXNotFound.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err NotFoundError) Error() string { return err.msg }

// CapacityError rejects an enrollment into a full exam schedule.
type CapacityError struct {
	Max int
}

func NewCapacityError(max int) error {
	return &CapacityError{Max: max}
}

func (err CapacityError) Error() string {
	return fmt.Sprintf("exam schedule is full (max %d applicants)", err.Max)
}

// ConflictError rejects an operation blocked by Count dependent records.
type ConflictError struct {
	msg   string
	Count int
}

func NewConflictError(count int, format string, args ...interface{}) error {
	return &ConflictError{msg: fmt.Sprintf(format, args...), Count: count}
}

func (err ConflictError) Error() string { return err.msg }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}
