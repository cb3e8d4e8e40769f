package mpesa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// APIError is a structured error returned by the Daraja API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("daraja error %s (http %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("daraja error (http %d): %s", e.StatusCode, e.Message)
}

// transportError wraps a network-level failure so Classify can tell timeouts
// from other transport problems
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func wrapTransport(err error) error {
	return &transportError{err: err}
}

// ErrorKind buckets a gateway failure into the small set of cases callers are
// allowed to see
type ErrorKind string

const (
	ErrorKindAuth    ErrorKind = "auth"
	ErrorKindBusy    ErrorKind = "busy"
	ErrorKindServer  ErrorKind = "server"
	ErrorKindTimeout ErrorKind = "timeout"
	ErrorKindNetwork ErrorKind = "network"
)

// GatewayError is a classified gateway failure. Message is safe to show a
// cashier; the raw provider error stays in Raw for operational logs only.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Raw     error
}

func (e *GatewayError) Error() string { return e.Message }
func (e *GatewayError) Unwrap() error { return e.Raw }

// User-safe messages, one per kind. Raw provider text must never leak to a
// terminal.
var kindMessages = map[ErrorKind]string{
	ErrorKindAuth:    "payment service authentication failed, contact administrator",
	ErrorKindBusy:    "payment service is busy, try again shortly",
	ErrorKindServer:  "payment service error, try again or contact administrator",
	ErrorKindTimeout: "payment request timed out, try again",
	ErrorKindNetwork: "network error reaching payment service",
}

// Daraja error codes with a known classification
var codeKinds = map[string]ErrorKind{
	"500.001.1001": ErrorKindBusy, // a transaction is already in process for this subscriber
	"400.002.02":   ErrorKindServer,
	"404.001.03":   ErrorKindAuth, // invalid access token
	"401.002.01":   ErrorKindAuth,
}

// Classify maps any error coming out of the client into a GatewayError.
// Structured codes are preferred; the substring table is a fallback for
// genuinely unstructured provider text.
func Classify(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	kind := ErrorKindServer

	var apiErr *APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		kind = classifyAPIError(apiErr)
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrorKindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrorKindTimeout
	default:
		var tErr *transportError
		if errors.As(err, &tErr) {
			kind = ErrorKindNetwork
		}
	}

	return &GatewayError{Kind: kind, Message: kindMessages[kind], Raw: err}
}

func classifyAPIError(apiErr *APIError) ErrorKind {
	if kind, ok := codeKinds[apiErr.Code]; ok {
		return kind
	}

	switch apiErr.StatusCode {
	case 401, 403:
		return ErrorKindAuth
	case 429:
		return ErrorKindBusy
	}

	// Fallback substring table for unstructured provider text.
	msg := strings.ToLower(apiErr.Message)
	switch {
	case strings.Contains(msg, "busy"), strings.Contains(msg, "in process"):
		return ErrorKindBusy
	case strings.Contains(msg, "invalid access token"), strings.Contains(msg, "unauthorized"):
		return ErrorKindAuth
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return ErrorKindTimeout
	}

	return ErrorKindServer
}
