// Package errors provides the typed application error shared by every
// layer of the router. Resolution-time failures (configuration lookups,
// authorization, argument decoding) and invocation-time failures are all
// expressed as *AppError so the transport layer can map them by Type.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeNotFound represents an unknown project, source, plugin or ressource
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeSignature represents a signature that matches no candidate key
	ErrTypeSignature ErrorType = "signature"
	// ErrTypeOrigin represents a remote address rejected by an allow-list
	ErrTypeOrigin ErrorType = "origin"
	// ErrTypeArgument represents a missing or undeclared request argument
	ErrTypeArgument ErrorType = "argument"
	// ErrTypeDecodeAlgorithm represents an unknown argument decoding algorithm
	ErrTypeDecodeAlgorithm ErrorType = "decode_algorithm"
	// ErrTypePluginInvocation represents a failure raised by a plugin entry point
	ErrTypePluginInvocation ErrorType = "plugin_invocation"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface. Context keys are rendered in sorted
// order so messages are stable across runs.
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// WrongSignatureError reports that no candidate source accepted the
// signature. The rejected value is kept for audit.
func WrongSignatureError(signature string) *AppError {
	return (&AppError{
		Type:    ErrTypeSignature,
		Message: "wrong signature",
	}).WithContext("signature", signature)
}

// OriginError reports a remote address refused for a ressource/method pair.
func OriginError(ressource, method, remoteIP string) *AppError {
	return (&AppError{
		Type:    ErrTypeOrigin,
		Message: fmt.Sprintf("ip %s not authorized for %s/%s", remoteIP, ressource, method),
	}).WithContext("ressource", ressource).WithContext("method", method)
}

// ArgumentError creates an error for a missing or undeclared argument entry
func ArgumentError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeArgument,
		Message: msg,
	}
}

// DecodeAlgorithmNotFoundError reports an encoding with no registered decoder
func DecodeAlgorithmNotFoundError(algorithm string) *AppError {
	return (&AppError{
		Type:    ErrTypeDecodeAlgorithm,
		Message: fmt.Sprintf("decode algorithm %q not found", algorithm),
	}).WithContext("algorithm", algorithm)
}

// PluginInvocationError wraps a failure raised by a plugin entry point
func PluginInvocationError(plugin string, cause error) *AppError {
	return (&AppError{
		Type:    ErrTypePluginInvocation,
		Message: fmt.Sprintf("plugin %s failed", plugin),
		Cause:   cause,
	}).WithContext("plugin", plugin)
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// As finds the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
