package openai

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindRateLimit  ErrorKind = "rate_limit"
	KindAuth       ErrorKind = "auth"
	KindConnection ErrorKind = "connection"
	KindServer     ErrorKind = "server"
)

// APIError is the provider failure surfaced to callers. Agents use Kind to
// pick a fallback path; none of them retry.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("openai %s (http %d): %s", e.Kind, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("openai %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("openai %s", e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	default:
		return KindServer
	}
}

// connectionError covers transport failures, timeouts and cancellation;
// the agents treat them all as one recoverable class.
func connectionError(err error) *APIError {
	return &APIError{Kind: KindConnection, Err: err}
}

// ErrKind reports the APIError kind carried by err, or "" for non-provider
// errors.
func ErrKind(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
