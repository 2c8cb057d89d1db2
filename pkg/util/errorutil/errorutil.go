package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// CredentialsMessage is the only detail ever returned for a failed session check.
const CredentialsMessage = "Could not validate credentials"

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Headers    map[string]string
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthorized builds a 401 carrying a bearer challenge.
func NewUnauthorized(message string) error {
	de := NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
	de.Headers = map[string]string{"WWW-Authenticate": "Bearer"}
	return de
}

// NewCredentialsError is the uniform session failure. It never says which check failed.
func NewCredentialsError() error {
	return NewUnauthorized(CredentialsMessage)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewPayloadTooLarge(message string) error {
	return NewDomainError("PAYLOAD_TOO_LARGE", message, http.StatusRequestEntityTooLarge, nil)
}

// NewTooManyRequests reports a temporary lockout; retryAfterSeconds is sent as Retry-After when positive.
func NewTooManyRequests(message string, retryAfterSeconds int) error {
	de := NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
	if retryAfterSeconds > 0 {
		de.Headers = map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfterSeconds)}
	}
	return de
}

func NewInternalError(err error) error {
	return newInternalError(err)
}

func newInternalError(err error) *DomainError {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &DomainError{
			Code:       "NOT_FOUND",
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	}
	return newInternalError(err)
}
