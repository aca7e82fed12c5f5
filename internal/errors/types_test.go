package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	expected := "failed operation: underlying error"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
	if !errors.Is(errWithWrap, wrappedErr) {
		t.Error("expected wrapped error to be reachable through Unwrap")
	}
}

func TestAppError_Code(t *testing.T) {
	err := &AppError{
		ErrorCode: "ERR_CODE_123",
	}
	if err.Code() != "ERR_CODE_123" {
		t.Errorf("expected ERR_CODE_123, got %v", err.Code())
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{
			name: "rate limit is retryable",
			err:  NewRateLimitError("slow down", "RATE", ""),
			want: true,
		},
		{
			name: "validation error is not retryable",
			err:  NewValidationError("bad", "BAD", ""),
			want: false,
		},
		{
			name: "5xx transport error is retryable",
			err:  NewTransportError("vendor down", "HTTP", http.StatusServiceUnavailable, nil),
			want: true,
		},
		{
			name: "4xx transport error is not retryable",
			err:  NewTransportError("bad key", "HTTP", http.StatusUnauthorized, nil),
			want: false,
		},
		{
			name: "cancelled is not retryable",
			err:  NewCancelledError(context.Canceled),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeOf_WalksChain(t *testing.T) {
	base := NewNoCapableProviderError("audio")
	wrapped := fmt.Errorf("analyze: %w", base)

	if got := TypeOf(wrapped); got != ErrorTypeNoCapableProvider {
		t.Errorf("TypeOf() = %q, want %q", got, ErrorTypeNoCapableProvider)
	}
	if !IsType(wrapped, ErrorTypeNoCapableProvider) {
		t.Error("expected IsType to match wrapped error")
	}
	if IsType(nil, ErrorTypeNoCapableProvider) {
		t.Error("expected IsType(nil) to be false")
	}
	if TypeOf(errors.New("plain")) != "" {
		t.Error("expected empty type for plain errors")
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewNoCapableProviderError("image"), true},
		{NewAllProvidersFailedError("text", 2, nil), true},
		{NewCancelledError(context.Canceled), true},
		{NewConfigurationError("bad yaml", "CONFIG_PARSE", nil), true},
		{NewUnauthorizedError("expired token"), true},
		{NewTransportError("timeout", "HTTP", 0, nil), false},
		{NewInvalidResponseShapeError("empty", "EMPTY", nil), false},
		{NewUnsupportedCapabilityError("groq", "audio"), false},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.err); got != tt.want {
			t.Errorf("IsTerminal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestConstructors(t *testing.T) {
	if err := NewUnsupportedCapabilityError("groq", "audio"); err.Message != "provider groq does not support audio input" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err := NewAllProvidersFailedError("image", 3, nil); err.Message != "all 3 capable providers failed image analysis" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err := NewTransportError("x", "X", 0, nil); err.StatusCode != http.StatusBadGateway {
		t.Errorf("expected default status 502, got %d", err.StatusCode)
	}
	if err := NewCancelledError(nil); err.StatusCode != StatusClientClosedRequest {
		t.Errorf("expected status 499, got %d", err.StatusCode)
	}
}
