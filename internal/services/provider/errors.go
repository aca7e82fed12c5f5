package provider

import (
	"strings"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

// ProviderError represents a classified error from an AI provider
type ProviderError struct {
	Type     string // "rate_limit", "credit_exhausted", "server_error", "client_error", "bad_response", "unsupported", "unknown"
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	classified := func(t string) *ProviderError {
		return &ProviderError{Type: t, Message: msg, Provider: provider}
	}

	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeRateLimit:
			return classified("rate_limit")
		case apperrors.ErrorTypeInvalidResponseShape:
			return classified("bad_response")
		case apperrors.ErrorTypeUnsupportedCapability, apperrors.ErrorTypeInvalidMediaKind:
			return classified("unsupported")
		}
	}

	// Check for rate limit (429)
	if containsAny(msg, "status 429", "HTTP 429", "rate limit", "too many requests", "resource_exhausted") {
		return classified("rate_limit")
	}

	// Check for credit exhaustion (402 or credit-related messages)
	if containsAny(msg, "status 402", "HTTP 402", "insufficient credit", "credit exhausted", "billing", "quota") {
		return classified("credit_exhausted")
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr.StatusCode >= 500 {
			return classified("server_error")
		}
		if appErr.StatusCode >= 400 {
			return classified("client_error")
		}
	}

	// Check for server errors (5xx) in message
	if containsAny(msg, "status 5", "HTTP 5", "server error", "internal error", "overloaded") {
		return classified("server_error")
	}

	// Check for client errors (4xx) in message
	if containsAny(msg, "status 4", "HTTP 4", "bad request", "unauthorized", "forbidden") {
		return classified("client_error")
	}

	return classified("unknown")
}

// IsRetryableError returns true if another provider may succeed where this one failed
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch ClassifyError(err, "").Type {
	case "rate_limit", "credit_exhausted", "server_error":
		return true
	default:
		return false
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive)
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
