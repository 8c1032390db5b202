package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it without knowing the domain
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindInvariant    Kind = "INVARIANT_VIOLATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONCURRENCY_CONFLICT"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain error with a stable code.
// Two errors with the same Code match under errors.Is, so a sentinel keeps
// matching after WithMessage / WithDetail / WithFields.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Fields  []FieldError
	cause   error
}

// New creates a new domain error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation is shorthand for a validation error
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// Invariant is shorthand for an invariant violation
func Invariant(code, message string) *Error {
	return New(KindInvariant, code, message)
}

// NotFound is shorthand for a not-found error
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Conflict is shorthand for a concurrency conflict
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Is matches on Code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) clone() *Error {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	if e.Fields != nil {
		c.Fields = append([]FieldError(nil), e.Fields...)
	}
	return &c
}

// WithMessage returns a copy carrying a formatted message
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithDetail returns a copy carrying an extra detail value
func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]interface{})
	}
	c.Details[key] = value
	return c
}

// WithFields returns a copy carrying per-field errors
func (e *Error) WithFields(fields ...FieldError) *Error {
	c := e.clone()
	c.Fields = append(c.Fields, fields...)
	return c
}

// Wrap returns a copy that wraps cause
func (e *Error) Wrap(cause error) *Error {
	c := e.clone()
	c.cause = cause
	return c
}

// KindOf returns the Kind of err, or KindInternal when err is not a domain error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the domain error from err
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
