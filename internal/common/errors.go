// Package common defines the sentinel errors shared by the repositories,
// services and the HTTP layer of the auth service. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Credential errors. ErrorInvalidCredentials never tells the caller
	// which half of the email/password pair was wrong.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorEmailNotVerified   = errors.New("email not verified")

	// Token lifecycle errors. ErrorTokenExpired matches ErrorInvalidOrExpired too.
	ErrorInvalidOrExpired = errors.New("invalid or expired")
	ErrorTokenExpired     = fmt.Errorf("%w: expired", ErrorInvalidOrExpired)
	ErrorInvalidCode      = errors.New("invalid code")
	ErrorTooManyAttempts  = errors.New("too many attempts")

	// Outbound mail errors.
	ErrorMailDelivery = errors.New("mail delivery failed")
)

// ValidationError carries per-field messages for malformed input.
// It matches ErrorValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records msg for field, keeping the first message reported for it.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed validation.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when some field failed and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrorValidation
}
