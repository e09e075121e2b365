package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest    ErrorType = "INVALID_REQUEST"
	ErrAuthFailed        ErrorType = "AUTH_FAILED"
	ErrRateLimited       ErrorType = "RATE_LIMITED"
	ErrCredentialsAbsent ErrorType = "CREDENTIALS_ABSENT"
	ErrUpstreamRejected  ErrorType = "UPSTREAM_REJECTED"
	ErrAddressBlocked    ErrorType = "ADDRESS_BLOCKED"
	ErrMalformedUpstream ErrorType = "MALFORMED_UPSTREAM"
	ErrTransport         ErrorType = "TRANSPORT_FAILURE"
	ErrNotFound          ErrorType = "NOT_FOUND"
	ErrReadOnly          ErrorType = "READ_ONLY"
	ErrInternal          ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application.
// UpstreamStatus and UpstreamBody carry the exchange response verbatim
// (secrets already stripped at the call site) so operators can diagnose
// exchange-side policy issues. Where identifies the failing step of a
// multi-step flow ("derive", "verify").
type AppError struct {
	Type           ErrorType `json:"code"`
	Message        string    `json:"message"`
	Where          string    `json:"where,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	UpstreamBody   string    `json:"upstream_body,omitempty"`
	Suggestion     string    `json:"suggestion,omitempty"`
	HTTPStatus     int       `json:"-"`
	Cause          error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewCredentialsAbsent(owner string) *AppError {
	return New(ErrCredentialsAbsent, fmt.Sprintf("no credentials stored for %s", owner), nil)
}

// NewUpstream preserves the exchange's status code and body on the error so
// nothing is lost between the transport and the caller.
func NewUpstream(errType ErrorType, msg string, status int, body string) *AppError {
	e := New(errType, msg, nil)
	e.UpstreamStatus = status
	e.UpstreamBody = body
	return e
}

func (e *AppError) At(where string) *AppError {
	e.Where = where
	return e
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest, ErrCredentialsAbsent:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrAddressBlocked:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	case ErrUpstreamRejected, ErrMalformedUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrCredentialsAbsent:
		return "Provision credentials via POST /v1/auth/derive or PUT /v1/credentials/:address first."
	case ErrRateLimited:
		return "Back off and retry after the indicated interval."
	case ErrAuthFailed:
		return "Check the relay key."
	case ErrAddressBlocked:
		return "The exchange blocked this address. Configure a funder address if one exists."
	case ErrReadOnly:
		return "The relay is in read-only mode."
	default:
		return ""
	}
}
