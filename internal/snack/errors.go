package snack

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// UpstreamError is a non-2xx response from the snack service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("snack service returned %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("snack service returned %d", e.Status)
}

// Retryable reports true for 5xx and 429 responses.
func (e *UpstreamError) Retryable() bool {
	return e.Status >= 500 || e.Status == 429
}

// CircuitOpenError is returned while the circuit breaker rejects calls.
type CircuitOpenError struct {
	Endpoint string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("snack service %s: circuit breaker open, try again later", e.Endpoint)
}

// RequestError wraps a failure to reach the service or read its reply.
type RequestError struct {
	Op        string
	Err       error
	retryable bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("snack %s failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(op string, err error) *RequestError {
	return &RequestError{Op: op, Err: err, retryable: isTransient(err)}
}

// shouldRetry classifies an error for the retry loop and the breaker.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}

	var circuit *CircuitOpenError
	if errors.As(err, &circuit) {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.retryable
	}

	return isTransient(err)
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// UserMessage returns a message suitable for showing in the editor.
func UserMessage(err error) string {
	var circuit *CircuitOpenError
	if errors.As(err, &circuit) {
		return "Snack service temporarily unavailable. Please try again later."
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		switch {
		case upstream.Status == 429:
			return "Too many snack requests. Please wait a moment."
		case upstream.Status >= 500:
			return "Snack service error. Please try again later."
		default:
			return fmt.Sprintf("Snack service rejected the request (%d).", upstream.Status)
		}
	}
	return "Failed to create snack."
}
