package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeConfiguration         ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeUnknownProviderType   ErrorType = "UNKNOWN_PROVIDER_TYPE"
	ErrorTypeMissingConfig         ErrorType = "MISSING_CONFIG"
	ErrorTypeNoProviderAvailable   ErrorType = "NO_PROVIDER_AVAILABLE"
	ErrorTypeUnsupportedCapability ErrorType = "UNSUPPORTED_CAPABILITY"
	ErrorTypeInvalidMediaKind      ErrorType = "INVALID_MEDIA_KIND"
	ErrorTypeTransport             ErrorType = "TRANSPORT_ERROR"
	ErrorTypeInvalidResponseShape  ErrorType = "INVALID_RESPONSE_SHAPE"
	ErrorTypeValidation            ErrorType = "VALIDATION_ERROR"
	ErrorTypeNoCapableProvider     ErrorType = "NO_CAPABLE_PROVIDER"
	ErrorTypeAllProvidersFailed    ErrorType = "ALL_PROVIDERS_FAILED"
	ErrorTypeCancelled             ErrorType = "CANCELLED"
	ErrorTypeRateLimit             ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound              ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeUnauthorized          ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal              ErrorType = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// abandoned the request before a result was produced.
const StatusClientClosedRequest = 499

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeTransport:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the type of the first AppError in err's chain, or an empty
// ErrorType when there is none.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of type t.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsTerminal reports whether the error ends an analysis request outright.
func IsTerminal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNoCapableProvider, ErrorTypeAllProvidersFailed, ErrorTypeCancelled,
		ErrorTypeConfiguration, ErrorTypeNoProviderAvailable, ErrorTypeValidation, ErrorTypeUnauthorized:
		return true
	default:
		return false
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUnauthorizedError creates a new authentication error (401)
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnauthorized,
		Message:       message,
		StatusCode:    http.StatusUnauthorized,
		ErrorCode:     "UNAUTHORIZED",
		IsOperational: true,
		Recovery:      "Sign in again.",
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewConfigurationError creates a fatal configuration error surfaced at startup.
func NewConfigurationError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeConfiguration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Recovery:      "Fix the provider configuration file or environment and restart the service.",
		Err:           err,
	}
}

// NewUnknownProviderTypeError is returned by the factory for unrecognized type names.
func NewUnknownProviderTypeError(typeName string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnknownProviderType,
		Message:       fmt.Sprintf("unknown provider type %q", typeName),
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "UNKNOWN_PROVIDER_TYPE",
		IsOperational: false,
		Recovery:      "Use one of: gemini, openai, anthropic, openai_compatible, groq, cerebras.",
	}
}

// NewMissingConfigError is returned by the factory when no config was given.
func NewMissingConfigError(typeName string) *AppError {
	return &AppError{
		Type:          ErrorTypeMissingConfig,
		Message:       fmt.Sprintf("missing configuration for provider type %q", typeName),
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "MISSING_CONFIG",
		IsOperational: false,
	}
}

// NewNoProviderAvailableError is returned when the registry cannot resolve any provider.
func NewNoProviderAvailableError() *AppError {
	return &AppError{
		Type:          ErrorTypeNoProviderAvailable,
		Message:       "no AI provider is available",
		StatusCode:    http.StatusServiceUnavailable,
		ErrorCode:     "NO_PROVIDER_AVAILABLE",
		IsOperational: true,
		Recovery:      "Enable at least one provider and supply its API key.",
	}
}

// NewUnsupportedCapabilityError names the provider that cannot serve the input kind.
func NewUnsupportedCapabilityError(provider, capability string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnsupportedCapability,
		Message:       fmt.Sprintf("provider %s does not support %s input", provider, capability),
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     "UNSUPPORTED_CAPABILITY",
		IsOperational: true,
	}
}

// NewInvalidMediaKindError is returned when a media payload is neither image nor audio.
func NewInvalidMediaKindError(provider, kind string) *AppError {
	return &AppError{
		Type:          ErrorTypeInvalidMediaKind,
		Message:       fmt.Sprintf("provider %s received unsupported media kind %q", provider, kind),
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "INVALID_MEDIA_KIND",
		IsOperational: true,
	}
}

// NewTransportError wraps a network or HTTP failure talking to a vendor.
func NewTransportError(message string, errorCode string, statusCode int, err error) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	return &AppError{
		Type:          ErrorTypeTransport,
		Message:       message,
		StatusCode:    statusCode,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Wait for the AI service to be available or configure another provider.",
		Err:           err,
	}
}

// NewInvalidResponseShapeError is returned when a vendor reply carries no usable text.
func NewInvalidResponseShapeError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInvalidResponseShape,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Err:           err,
	}
}

// NewNoCapableProviderError is returned before any call when nothing can serve the kind.
func NewNoCapableProviderError(kind string) *AppError {
	return &AppError{
		Type:          ErrorTypeNoCapableProvider,
		Message:       fmt.Sprintf("no provider supports %s analysis", kind),
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     "NO_CAPABLE_PROVIDER",
		IsOperational: true,
		Recovery:      "Configure a provider with the required capability.",
	}
}

// NewAllProvidersFailedError is returned once every capable provider has been tried.
func NewAllProvidersFailedError(kind string, attempts int, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeAllProvidersFailed,
		Message:       fmt.Sprintf("all %d capable providers failed %s analysis", attempts, kind),
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     "ALL_PROVIDERS_FAILED",
		IsOperational: true,
		Recovery:      "Try again later or describe the meal in more detail.",
		Err:           err,
	}
}

// NewCancelledError marks an analysis abandoned by its caller.
func NewCancelledError(err error) *AppError {
	return &AppError{
		Type:          ErrorTypeCancelled,
		Message:       "analysis cancelled",
		StatusCode:    StatusClientClosedRequest,
		ErrorCode:     "CANCELLED",
		IsOperational: true,
		Err:           err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Err:           err,
	}
}
