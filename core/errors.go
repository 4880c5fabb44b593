package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports missing or malformed input, rejected before any store access.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
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

// FieldMap returns the field errors keyed by field name.
func (err ValidationError) FieldMap() map[string]string {
	flds := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

// ConflictError reports a uniqueness violation (eg. an email already registered).
type ConflictError struct {
	msg string
}

func NewConflictError(msg string) *ConflictError { return &ConflictError{msg} }

func (err *ConflictError) Error() string { return err.msg }

// AuthError reports bad credentials or an invalid, expired or revoked token.
type AuthError struct {
	msg string
}

func NewAuthError(msg string) *AuthError { return &AuthError{msg} }

func (err *AuthError) Error() string { return err.msg }

// NotFoundError reports a missing record, as opposed to a store failure.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) *NotFoundError { return &NotFoundError{msg} }

func (err *NotFoundError) Error() string { return err.msg }

// TransportError reports that the remote end (network or store) could not be reached.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func (err *TransportError) Error() string {
	if err.Err == nil {
		return err.Op + ": transport failure"
	}
	return err.Op + ": " + err.Err.Error()
}

func (err *TransportError) Unwrap() error { return err.Err }

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsConflict(err error) bool {
	var cErr *ConflictError
	return errors.As(err, &cErr)
}

func IsAuth(err error) bool {
	var aErr *AuthError
	return errors.As(err, &aErr)
}

func IsNotFound(err error) bool {
	var nErr *NotFoundError
	return errors.As(err, &nErr)
}

func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

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
