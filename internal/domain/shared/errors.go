package shared

import "errors"

// Error codes used across the returns domain
const (
	CodeInvalidReturn            = "INVALID_RETURN"
	CodeInvalidDamageAssessment  = "INVALID_DAMAGE_ASSESSMENT"
	CodeInvalidStateTransition   = "INVALID_STATE_TRANSITION"
	CodeConcurrentModification   = "CONCURRENT_MODIFICATION"
	CodeNotFound                 = "NOT_FOUND"
	CodePreconditionUnavailable  = "PRECONDITION_UNAVAILABLE"
	CodePickingNotCompleted      = "PICKING_NOT_COMPLETED"
	CodeLocationCapacityExceeded = "LOCATION_CAPACITY_EXCEEDED"
)

// DomainError represents a domain-level error with a stable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// IsDomainError reports whether err carries the given domain error code
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Operation not allowed in current state")
)
