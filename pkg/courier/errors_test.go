package courier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warelink/shipbridge/pkg/courier"
)

func TestProviderError_Error(t *testing.T) {
	err := courier.NewProviderError("Fastway", "QUOTE_UNAVAILABLE", "No price for this route")
	assert.Equal(t, "Fastway error (QUOTE_UNAVAILABLE): No price for this route", err.Error())
}

func TestProviderError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := courier.NewProviderError("Fastway", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestProviderError_Unwrap(t *testing.T) {
	err := courier.NewProviderError("Fastway", "QUOTE_UNAVAILABLE", "No price").
		WithCause(courier.ErrQuoteUnavailable)
	assert.True(t, errors.Is(err, courier.ErrQuoteUnavailable))
}

func TestProviderError_Is(t *testing.T) {
	err1 := courier.NewProviderError("Fastway", "QUOTE_UNAVAILABLE", "No price")
	err2 := courier.NewProviderError("NZ Post", "QUOTE_UNAVAILABLE", "Different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestProviderError_IsNot(t *testing.T) {
	err1 := courier.NewProviderError("Fastway", "QUOTE_UNAVAILABLE", "No price")
	err2 := courier.NewProviderError("Fastway", "AUTH_ERROR", "Bad credentials")

	// Different codes should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestProviderError_WithStatusCode(t *testing.T) {
	err := courier.NewProviderError("NZ Post", "AUTH_ERROR", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}
