package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Ingestion errors
	ErrEmptyContent   = errors.New("source produced no usable content")
	ErrSourceNotFound = errors.New("source not found")

	// Query errors
	ErrNoRelevantContext = errors.New("no relevant context found")

	// Credential errors
	ErrAuthRequired = errors.New("sign-in required to use credits")
	ErrNoServerKey  = errors.New("no server-side provider key configured")

	// Persistence errors
	ErrConversationNotFound = errors.New("conversation not found")
)

// ValidationError marks a missing or malformed required input. Detected
// before any paid provider call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientCreditsError carries what the action would cost against what
// the user holds. Raised strictly before the paid action runs.
type InsufficientCreditsError struct {
	Needed    int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Needed, e.Available)
}

// UpstreamProviderError wraps a failed embedding or completion call. Never
// retried automatically.
type UpstreamProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamProviderError) Unwrap() error {
	return e.Err
}
