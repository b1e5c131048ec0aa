package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// GatewayError wraps a failure from the external system with a retryable
// classification
type GatewayError struct {
	Operation  string
	StatusCode int
	Transient  bool
	Err        error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("erp gateway: %s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("erp gateway: %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying cause
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewTransientGatewayError wraps a retryable failure
func NewTransientGatewayError(operation string, statusCode int, err error) *GatewayError {
	return &GatewayError{Operation: operation, StatusCode: statusCode, Transient: true, Err: err}
}

// NewPermanentGatewayError wraps a failure retrying cannot fix
func NewPermanentGatewayError(operation string, statusCode int, err error) *GatewayError {
	return &GatewayError{Operation: operation, StatusCode: statusCode, Transient: false, Err: err}
}

// TransientStatusCode reports whether an HTTP status is worth retrying.
// Server errors and throttling are; other client errors are not.
func TransientStatusCode(code int) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

// IsTransient classifies an error as retryable. Gateway errors carry
// their own classification; timeouts and cancelled deadlines are
// transient; anything unrecognized is treated as permanent so unknown
// failures park instead of looping.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Transient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
