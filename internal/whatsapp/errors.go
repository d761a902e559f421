package whatsapp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorizes delivery failures.
type ErrorKind string

const (
	ErrValidation ErrorKind = "validation" // payload rejected before sending
	ErrAuth       ErrorKind = "auth"       // 401/403, invalid or expired token
	ErrRateLimit  ErrorKind = "rate_limit" // 429
	ErrServer     ErrorKind = "server"     // 5xx
	ErrTransport  ErrorKind = "transport"  // network failure, no response
	ErrRejected   ErrorKind = "rejected"   // any other 4xx
)

// ErrTooManyButtons is wrapped by the validation error for 4+ reply buttons.
var ErrTooManyButtons = errors.New("too many buttons")

// DeliveryError is returned by every Client send method on failure.
type DeliveryError struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Message string // API error message or response body
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("whatsapp %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("whatsapp %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("whatsapp %s: %s", e.Kind, e.Message)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Sends are never
// retried automatically; this only feeds logs and metrics.
func (e *DeliveryError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimit, ErrServer, ErrTransport:
		return true
	}
	return false
}

// KindOf returns the ErrorKind of err, or "" when err is not a DeliveryError.
func KindOf(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func validationError(err error) *DeliveryError {
	return &DeliveryError{Kind: ErrValidation, Message: err.Error(), Err: err}
}

// classifyStatus maps a failed Cloud API response to a DeliveryError.
func classifyStatus(status int, message string) *DeliveryError {
	kind := ErrRejected
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ErrAuth
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimit
	case status >= 500:
		kind = ErrServer
	}
	return &DeliveryError{Kind: kind, Status: status, Message: message}
}
