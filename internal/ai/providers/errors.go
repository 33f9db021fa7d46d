// Package providers holds the failure taxonomy shared by AI provider adapters.
package providers

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized provider failure class.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider answered with output we cannot use
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates a missing or rejected API key
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable, including an
	// open circuit
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates quota exhaustion
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates a failure on our side of the call
	ErrorInternal ErrorCategory = "internal"
)

// ErrCircuitOpen is wrapped by outage errors raised without calling out.
var ErrCircuitOpen = errors.New("circuit open")

// ProviderError wraps provider failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Operation  string
	Message    string
	Underlying error
	// Retryable is informational. Nothing retries automatically.
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s %s [%s]: %s: %v", e.ProviderID, e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s %s [%s]: %s", e.ProviderID, e.Operation, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a normalized provider error.
func NewProviderError(category ErrorCategory, providerID, operation, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  category.retryable(),
	}
}

func (c ErrorCategory) retryable() bool {
	return c == ErrorTimeout || c == ErrorProviderOutage || c == ErrorRateLimited
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category, defaulting to internal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// CountsAgainstCircuit reports whether a failure says the provider itself is
// unhealthy, as opposed to a bad request or unusable output.
func CountsAgainstCircuit(err error) bool {
	switch GetCategory(err) {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited:
		return !errors.Is(err, ErrCircuitOpen)
	default:
		return false
	}
}
