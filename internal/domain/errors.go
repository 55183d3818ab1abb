package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for engine misuse and lookups
var (
	// ErrEmptyInput indicates a caller passed an empty estimate or record set
	// to an aggregation entry point. This is a caller bug, not a data-quality
	// issue, and always fails fast.
	ErrEmptyInput = errors.New("empty input set")

	// ErrNotFound indicates a persisted entity does not exist
	ErrNotFound = errors.New("not found")
)

// EngineError represents a standardized error response
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrEmptySet       = "EMPTY_INPUT_SET"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrLookupFetch    = "LOOKUP_FETCH_ERROR"
	ErrScoring        = "SCORING_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
