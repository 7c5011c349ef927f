package courier

import (
	"errors"
	"fmt"
)

// ProviderError represents an error from a courier provider.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Provider, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// Sentinel errors for common courier scenarios.
var (
	// ErrProviderNotFound indicates the requested provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrQuoteUnavailable indicates the provider declined to quote the parcel.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrNoQuotes indicates no provider returned a usable quote.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrShipmentRejected indicates the provider refused to create the shipment.
	ErrShipmentRejected = errors.New("shipment rejected")

	// ErrLabelNotAvailable indicates the label could not be retrieved.
	ErrLabelNotAvailable = errors.New("label not available")

	// ErrInvalidParcel indicates parcel weight or dimensions are out of policy.
	ErrInvalidParcel = errors.New("invalid parcel")
)
