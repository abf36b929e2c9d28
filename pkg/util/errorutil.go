package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared between the engine and the HTTP layer.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeIntegrity          = "INTEGRITY_VIOLATION"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodePasswordReset      = "PASSWORD_RESET_REQUIRED"
	CodeNotCapturable      = "NOT_CAPTURABLE"
	CodeNoteRequired       = "NOTE_REQUIRED_ON_STATUS_CHANGE"
	CodeNotReopenable      = "NOT_REOPENABLE"
	CodeReopenExpired      = "REOPEN_WINDOW_EXPIRED"
	CodeInUse              = "IN_USE"
	CodeStaleTicket        = "STALE_TICKET"
	CodeNoInitialStatus    = "NO_INITIAL_STATUS"
	CodeNoCapturedStatus   = "NO_CAPTURED_STATUS"
	CodeMalformedSetting   = "MALFORMED_SETTING"
	CodeDependencyDegraded = "DEPENDENCY_UNAVAILABLE"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
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
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStateConflict reports that the ticket's current status does not allow the operation.
func NewStateConflict(code, message string, details map[string]any) error {
	return NewDomainError(code, message, http.StatusConflict, details)
}

// NewIntegrityError reports a uniqueness violation on a named value.
func NewIntegrityError(field, value string) error {
	return NewDomainError(CodeIntegrity,
		fmt.Sprintf("%s %q already exists", field, value),
		http.StatusConflict,
		map[string]any{"field": field, "value": value})
}

// NewConfigurationError reports a missing or broken policy setting. It blocks the
// operation entirely and is meant for administrators.
func NewConfigurationError(reason, message string) error {
	return NewDomainError(CodeConfiguration, message, http.StatusInternalServerError,
		map[string]any{"reason": reason})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
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
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code, either as its
// primary code or as the configuration reason.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	if domainErr.Code == code {
		return true
	}
	if reason, ok := domainErr.Details["reason"].(string); ok && reason == code {
		return true
	}
	return false
}
