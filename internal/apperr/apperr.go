// Package apperr defines the error taxonomy shared by the session, marker and
// history components: authentication failures raised before any store call,
// and store rejections carrying the provider's code and message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorises an error for callers and for HTTP status mapping.
type Kind string

const (
	// KindNotAuthenticated means no identity was available for the call.
	KindNotAuthenticated Kind = "not_authenticated"
	// KindStoreRejected means the persistence store returned an error.
	KindStoreRejected Kind = "store_rejected"
	// KindValidation means the caller supplied unusable input.
	KindValidation Kind = "validation"
)

// CodeNoRows is the provider code for a single-row read that matched nothing.
const CodeNoRows = "PGRST116"

// ErrNotAuthenticated is matched by every AuthError via errors.Is.
var ErrNotAuthenticated = errors.New("user not authenticated")

// AuthError is raised locally when no identity is present. It is never retried.
type AuthError struct {
	Kind Kind
	Op   string
}

func (e *AuthError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, ErrNotAuthenticated.Error())
	}
	return ErrNotAuthenticated.Error()
}

// Is lets errors.Is(err, ErrNotAuthenticated) match.
func (e *AuthError) Is(target error) bool {
	return target == ErrNotAuthenticated
}

// NotAuthenticated builds the AuthError for op.
func NotAuthenticated(op string) *AuthError {
	return &AuthError{Kind: KindNotAuthenticated, Op: op}
}

// PersistenceError wraps a store failure with the provider's code and message.
type PersistenceError struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: store rejected [%s]: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s: store rejected: %s", e.Op, msg)
}

// Unwrap returns the underlying driver error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Store wraps cause into a PersistenceError for op. A nil cause returns nil.
func Store(op, code string, cause error) error {
	if cause == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(cause, &pe) {
		return cause
	}
	return &PersistenceError{
		Kind:    KindStoreRejected,
		Op:      op,
		Code:    code,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NoRows builds the PersistenceError for a single-row read that matched nothing.
func NoRows(op, what string) error {
	return &PersistenceError{
		Kind:    KindStoreRejected,
		Op:      op,
		Code:    CodeNoRows,
		Message: fmt.Sprintf("no %s found", what),
	}
}

// IsNoRows reports whether err is the no-rows store result.
func IsNoRows(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Code == CodeNoRows
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// ValidationError is raised for unusable caller input at the outer surfaces.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// HTTPStatus maps an error to the status the dashboard API answers with.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		pe *PersistenceError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case IsAuth(err):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		if pe.Code == CodeNoRows {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
