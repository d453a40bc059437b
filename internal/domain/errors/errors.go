// Package errors holds the error taxonomy the HTTP boundary maps to status codes.
package errors

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
)

// NotFoundError reports that no row of Entity matched.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " is not found."
}

// NotFound builds a NotFoundError named after T.
func NotFound[T any]() *NotFoundError {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return &NotFoundError{Entity: t.Name()}
}

// FieldFailure is a single violated rule.
type FieldFailure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violated rule of one validation run.
type ValidationError struct {
	Failures []FieldFailure
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has at least one failure.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Failures {
		if f.Field == field {
			return true
		}
	}
	return false
}

// DomainError carries the HTTP status it should surface with.
type DomainError struct {
	Code    int
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func New(code int, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	ErrInvalidCredentials     = New(http.StatusUnauthorized, "login or password is incorrect")
	ErrInvalidThirdPartyToken = New(http.StatusUnauthorized, "invalid third-party token")
	ErrClaimNotFound          = New(http.StatusUnauthorized, "claim not found")
	ErrPasswordAlreadySet     = New(http.StatusBadRequest, "password is already set, use a different endpoint to reset password")
	ErrAccountDeleted         = New(http.StatusForbidden, "account has been deleted")
)

// StatusCode resolves the HTTP status for err; unclassified errors map to 500.
func StatusCode(err error) int {
	var nf *NotFoundError
	var ve *ValidationError
	var de *DomainError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &de):
		return de.Code
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
