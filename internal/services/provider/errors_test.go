package provider

import (
	"errors"
	"testing"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

func TestClassifyError_RateLimit(t *testing.T) {
	testCases := []string{
		"API error: status 429",
		"rate limit exceeded",
		"Rate Limit Error",
		"too many requests",
		"RESOURCE_EXHAUSTED",
	}

	for _, tc := range testCases {
		providerErr := ClassifyError(errors.New(tc), "groq")

		if providerErr.Type != "rate_limit" {
			t.Errorf("Expected rate_limit for '%s', got %s", tc, providerErr.Type)
		}
		if providerErr.Provider != "groq" {
			t.Errorf("Expected provider 'groq', got %s", providerErr.Provider)
		}
	}
}

func TestClassifyError_CreditExhausted(t *testing.T) {
	testCases := []string{
		"API error: status 402",
		"insufficient credits",
		"Credit exhausted",
		"billing issue",
	}

	for _, tc := range testCases {
		providerErr := ClassifyError(errors.New(tc), "cerebras")

		if providerErr.Type != "credit_exhausted" {
			t.Errorf("Expected credit_exhausted for '%s', got %s", tc, providerErr.Type)
		}
	}
}

func TestClassifyError_ServerAndClient(t *testing.T) {
	testCases := []struct {
		msg  string
		want string
	}{
		{"API error: status 500", "server_error"},
		{"HTTP 503", "server_error"},
		{"model is overloaded", "server_error"},
		{"API error: status 400", "client_error"},
		{"Unauthorized", "client_error"},
		{"connection reset by peer", "unknown"},
	}

	for _, tc := range testCases {
		if got := ClassifyError(errors.New(tc.msg), "openai").Type; got != tc.want {
			t.Errorf("ClassifyError(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestClassifyError_AppErrors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"transport 502", apperrors.NewTransportError("upstream failed", "X", 0, nil), "server_error"},
		{"transport 401", apperrors.NewTransportError("rejected", "X", 401, nil), "client_error"},
		{"bad shape", apperrors.NewInvalidResponseShapeError("no candidates", "X", nil), "bad_response"},
		{"unsupported", apperrors.NewUnsupportedCapabilityError("groq", "audio"), "unsupported"},
		{"rate limit", apperrors.NewRateLimitError("slow down", "X", ""), "rate_limit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyError(tc.err, "p").Type; got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(nil, "groq") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestIsRetryableError(t *testing.T) {
	testCases := []struct {
		msg       string
		retryable bool
	}{
		{"status 429", true},
		{"insufficient credit", true},
		{"status 500", true},
		{"status 400", false},
		{"some unknown error", false},
	}

	for _, tc := range testCases {
		if got := IsRetryableError(errors.New(tc.msg)); got != tc.retryable {
			t.Errorf("IsRetryableError(%q) = %v, want %v", tc.msg, got, tc.retryable)
		}
	}
	if IsRetryableError(nil) {
		t.Error("Expected nil error to be non-retryable")
	}
}
