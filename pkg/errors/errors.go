package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	// Network and connectivity errors
	ErrNetworkError       ErrorCode = "NETWORK_ERROR"
	ErrConnectionTimeout  ErrorCode = "CONNECTION_TIMEOUT"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// API errors
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrRecordNotFound   ErrorCode = "RECORD_NOT_FOUND"
	ErrBusinessRejected ErrorCode = "BUSINESS_REJECTED"
	ErrBadResponse      ErrorCode = "BAD_RESPONSE"

	// Local storage errors
	ErrStorageError  ErrorCode = "STORAGE_ERROR"
	ErrMalformedData ErrorCode = "MALFORMED_DATA"

	// Validation errors
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigurationError ErrorCode = "CONFIGURATION_ERROR"

	// Generic errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with user-friendly
// messaging
type AppError struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	UserMessage string    `json:"user_message"`
	Cause       error     `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRecoverable returns whether the error is recoverable
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// New creates a new application error
func New(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		UserMessage: userFriendlyMessage(code, message),
		Cause:       cause,
		Timestamp:   time.Now(),
		Recoverable: isRecoverable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return New(code, message, nil)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		// Keep the original classification, add the outer message
		return New(appErr.Code, message, err)
	}
	return New(code, message, err)
}

// Classify attempts to classify a generic error into an AppError
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrConnectionTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrNetworkError, "request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return New(ErrConnectionTimeout, "network timeout", err)
		}
		return New(ErrNetworkError, "network error", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return New(ErrNetworkError, "cannot reach the server", err)
	case strings.Contains(msg, "timeout"):
		return New(ErrConnectionTimeout, "request timed out", err)
	}

	return New(ErrInternalError, err.Error(), err)
}

// FromHTTPStatus maps a non-2xx API status to an application error
func FromHTTPStatus(status int, body string) *AppError {
	message := fmt.Sprintf("server returned %d", status)
	if body != "" {
		message = fmt.Sprintf("server returned %d: %s", status, body)
	}

	switch {
	case status == http.StatusUnauthorized:
		return New(ErrUnauthorized, message, nil)
	case status == http.StatusForbidden:
		return New(ErrPermissionDenied, message, nil)
	case status == http.StatusNotFound:
		return New(ErrRecordNotFound, message, nil)
	case status >= 500:
		return New(ErrServiceUnavailable, message, nil)
	default:
		return New(ErrBadResponse, message, nil)
	}
}

// NewBusinessError creates an error for a success:false API response.
// The server-supplied reason is shown to the user verbatim.
func NewBusinessError(reason string) *AppError {
	if reason == "" {
		reason = "the server rejected the request"
	}
	err := New(ErrBusinessRejected, reason, nil)
	err.UserMessage = reason
	return err
}

// IsCode reports whether err carries the given application error code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// userFriendlyMessage returns a user-friendly message for the error code
func userFriendlyMessage(code ErrorCode, originalMessage string) string {
	switch code {
	case ErrNetworkError:
		return "Network problem. Please check your connection and try again."
	case ErrConnectionTimeout:
		return "The server took too long to respond. Please try again."
	case ErrServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	case ErrUnauthorized:
		return "Please sign in to continue."
	case ErrPermissionDenied:
		return "You don't have permission to modify this record."
	case ErrRecordNotFound:
		return "That record no longer exists."
	case ErrMalformedData:
		return "Stored history data was unreadable and has been reset."
	case ErrStorageError:
		return "Failed to save your history locally."
	case ErrInvalidInput:
		return "Invalid input: " + originalMessage
	case ErrConfigurationError:
		return "Configuration problem: " + originalMessage
	default:
		return originalMessage
	}
}

// isRecoverable determines if an error is recoverable
func isRecoverable(code ErrorCode) bool {
	switch code {
	case ErrNetworkError, ErrConnectionTimeout, ErrServiceUnavailable:
		return true
	default:
		return false
	}
}
