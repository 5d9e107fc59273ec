// Package llmerrors provides structured error classification for generative AI provider calls.
package llmerrors

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

// ErrorType is the top-level failure class surfaced by the gateway.
type ErrorType int8

const (
	// ErrorTypeProviderError represents any failure reported by the provider or the network layer.
	ErrorTypeProviderError ErrorType = iota
	// ErrorTypeProviderUnavailable represents a missing provider credential.
	// Only fixable by configuration, never by retrying the same call.
	ErrorTypeProviderUnavailable
	// ErrorTypeGenerationFailed represents an image request that returned zero images.
	ErrorTypeGenerationFailed
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeProviderError:
		return "provider_error"
	case ErrorTypeProviderUnavailable:
		return "provider_unavailable"
	case ErrorTypeGenerationFailed:
		return "generation_failed"
	default:
		return "invalid"
	}
}

// Cause is the finer classification of a ProviderError, used for logs and metrics labels only.
type Cause string

const (
	CauseAuth      Cause = "auth"
	CauseRateLimit Cause = "rate_limit"
	CauseTransient Cause = "transient"
	CauseBadPrompt Cause = "bad_prompt"
	CauseCanceled  Cause = "canceled"
	CauseUnknown   Cause = "unknown"
)

// Error represents a classified provider error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Provider   string    // Provider name, set for ProviderUnavailable
	Cause      Cause     // Sub-classification for ProviderError
	Type       ErrorType // Top-level class
	StatusCode int       // HTTP status code if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	label := e.Type.String()
	if e.Cause != "" {
		label += "/" + string(e.Cause)
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("provider error (%s): %s: %v", label, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("provider error (%s): %s", label, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("provider error (%s): %v", label, e.Err)
	default:
		return fmt.Sprintf("provider error (%s): status %d", label, e.StatusCode)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error. Unclassified errors are ProviderErrors.
func TypeOf(err error) ErrorType {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Type
	}
	return ErrorTypeProviderError
}

// CauseOf returns the sub-classification of an error, or CauseUnknown.
func CauseOf(err error) Cause {
	var pErr *Error
	if errors.As(err, &pErr) && pErr.Cause != "" {
		return pErr.Cause
	}
	return CauseUnknown
}

// IsProviderUnavailable reports whether err means the credential is missing.
func IsProviderUnavailable(err error) bool {
	return Is(err, ErrorTypeProviderUnavailable)
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a ProviderError with a sub-classification wrapping another error.
func NewErrorWithCause(cause Cause, err error, message string) *Error {
	return &Error{
		Type:    ErrorTypeProviderError,
		Cause:   cause,
		Err:     err,
		Message: message,
	}
}

// NewErrorWithStatus creates a ProviderError carrying an HTTP status.
func NewErrorWithStatus(cause Cause, statusCode int, message string) *Error {
	return &Error{
		Type:       ErrorTypeProviderError,
		Cause:      cause,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewProviderUnavailable reports that no credential is configured for provider.
func NewProviderUnavailable(provider, envVar string) *Error {
	return &Error{
		Type:     ErrorTypeProviderUnavailable,
		Provider: provider,
		Message:  fmt.Sprintf("%s credential not configured (%s missing from secrets file and environment)", provider, envVar),
	}
}

// ProviderOf returns the provider recorded on a classified error, or "".
func ProviderOf(err error) string {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Provider
	}
	return ""
}

// NewGenerationFailed reports an image request that produced nothing.
func NewGenerationFailed(message string) *Error {
	return &Error{
		Type:    ErrorTypeGenerationFailed,
		Message: message,
	}
}

// Classify maps an SDK error onto a ProviderError using status codes and message patterns.
// Already-classified errors are returned unchanged.
func Classify(err error, provider string) error {
	if err == nil {
		return nil
	}
	var pErr *Error
	if errors.As(err, &pErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(CauseTransient, err, provider+" request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(CauseCanceled, err, provider+" request canceled")
	}

	errStr := err.Error()
	switch statusCode := ExtractStatusCode(errStr); statusCode {
	case 401, 403:
		return &Error{Type: ErrorTypeProviderError, Cause: CauseAuth, StatusCode: statusCode, Err: err, Message: provider + " authentication failed"}
	case 429:
		return &Error{Type: ErrorTypeProviderError, Cause: CauseRateLimit, StatusCode: statusCode, Err: err, Message: provider + " rate limit exceeded"}
	case 400:
		return &Error{Type: ErrorTypeProviderError, Cause: CauseBadPrompt, StatusCode: statusCode, Err: err, Message: provider + " rejected the request"}
	case 500, 502, 503, 504:
		return &Error{Type: ErrorTypeProviderError, Cause: CauseTransient, StatusCode: statusCode, Err: err, Message: provider + " server error"}
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "eof"),
		strings.Contains(lower, "reset"):
		return NewErrorWithCause(CauseTransient, err, provider+" network or connection error")
	case strings.Contains(lower, "quota"), strings.Contains(lower, "rate"):
		return NewErrorWithCause(CauseRateLimit, err, provider+" rate limiting detected")
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"), strings.Contains(lower, "permission"):
		return NewErrorWithCause(CauseAuth, err, provider+" authentication error")
	case strings.Contains(lower, "invalid"), strings.Contains(lower, "malformed"), strings.Contains(lower, "safety"):
		return NewErrorWithCause(CauseBadPrompt, err, provider+" prompt or request error")
	}

	return NewErrorWithCause(CauseUnknown, err, provider+" call failed")
}

// ExtractStatusCode attempts to extract an HTTP status code from an error string.
func ExtractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, pattern := range []string{"status code: ", "status: ", "http ", "code "} {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		end := start + 3
		if end > len(lower) {
			continue
		}
		switch lower[start:end] {
		case "400":
			return 400
		case "401":
			return 401
		case "403":
			return 403
		case "429":
			return 429
		case "500":
			return 500
		case "502":
			return 502
		case "503":
			return 503
		case "504":
			return 504
		}
	}
	return 0
}

// SanitizePrompt creates a safe representation of a prompt for logging.
// For large prompts, it returns first/last portions plus a hash of the full content.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}

	halfMax := maxChars / 2
	if halfMax < 100 {
		halfMax = 100
	}
	if 2*halfMax >= len(prompt) {
		return prompt
	}

	first := prompt[:halfMax]
	last := prompt[len(prompt)-halfMax:]

	hash := sha256.Sum256([]byte(prompt))
	hashStr := fmt.Sprintf("%x", hash)[:16]

	return fmt.Sprintf("%s...[%d chars, hash:%s]...%s", first, len(prompt), hashStr, last)
}
