package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/tracker"
)

// ErrorType categorizes different error types
type ErrorType string

const (
	// Network errors
	ErrorTypeNetwork ErrorType = "network"
	ErrorTypeTimeout ErrorType = "timeout"

	// Authentication errors
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeSessionExpired ErrorType = "session_expired"
	ErrorTypeForbidden      ErrorType = "forbidden"

	// Request errors
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeServer     ErrorType = "server"

	// Attendance rules
	ErrorTypeBreakTime    ErrorType = "break_time"
	ErrorTypeOfficeClosed ErrorType = "office_closed"
	ErrorTypeNotClockedIn ErrorType = "not_clocked_in"
	ErrorTypeBusy         ErrorType = "busy"

	// Unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// CLIError represents a structured error with context
type CLIError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	StatusCode int
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// WithSuggestion adds a helpful suggestion to the error
func (e *CLIError) WithSuggestion(suggestion string) *CLIError {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *CLIError) HasSuggestion() bool {
	return e.Suggestion != ""
}

// Unwrap returns the underlying error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLI error
func NewCLIError(errorType ErrorType, message string, cause error) *CLIError {
	return &CLIError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NetworkError creates a network error
func NetworkError(message string, cause error) *CLIError {
	err := NewCLIError(ErrorTypeNetwork, message, cause)
	err.Suggestion = "Check that the HR server is reachable (api.base_url) and try again."
	return err
}

// TimeoutError creates a timeout error
func TimeoutError(cause error) *CLIError {
	err := NewCLIError(ErrorTypeTimeout, "Request timed out", cause)
	err.Suggestion = "The server is taking too long to respond. Raise api.timeout or try again in a moment."
	return err
}

// AuthError creates an authentication error
func AuthError(message string) *CLIError {
	err := NewCLIError(ErrorTypeAuth, message, nil)
	err.Suggestion = "Try logging in again with 'tracker auth login'"
	return err
}

// SessionExpiredError creates a session expired error
func SessionExpiredError(cause error) *CLIError {
	err := NewCLIError(ErrorTypeSessionExpired, "Your session has expired", cause)
	err.Suggestion = "Run 'tracker auth login' to start a new session."
	return err
}

// ForbiddenError creates a forbidden error
func ForbiddenError(message string) *CLIError {
	err := NewCLIError(ErrorTypeForbidden, message, nil)
	err.Suggestion = "Contact an administrator if you believe this is an error."
	return err
}

// ValidationError creates a validation error
func ValidationError(field, reason string) *CLIError {
	message := fmt.Sprintf("Validation error: %s - %s", field, reason)
	return NewCLIError(ErrorTypeValidation, message, nil)
}

// ServerError creates a server error
func ServerError(message string) *CLIError {
	err := NewCLIError(ErrorTypeServer, "Server error: "+message, nil)
	err.Suggestion = "The server encountered an error. Try again in a few moments."
	return err
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, identifier string) *CLIError {
	return NewCLIError(ErrorTypeNotFound,
		fmt.Sprintf("%s not found: %s", resourceType, identifier),
		nil)
}

func fromTracker(err error) *CLIError {
	switch {
	case errors.Is(err, tracker.ErrSessionInvalid):
		return SessionExpiredError(err)
	case errors.Is(err, tracker.ErrBreakTime):
		return NewCLIError(ErrorTypeBreakTime, "Clock and task actions are disabled during the break (1PM-2PM IST)", err).
			WithSuggestion("Try again after 2PM IST.")
	case errors.Is(err, tracker.ErrClosed):
		return NewCLIError(ErrorTypeOfficeClosed, "The office is closed, clocking is disabled after 6PM IST", err).
			WithSuggestion("If you are still clocked in, ask an administrator to close the session.")
	case errors.Is(err, tracker.ErrNotClockedIn):
		return NewCLIError(ErrorTypeNotClockedIn, "You are not clocked in", err).
			WithSuggestion("Run 'tracker clock in' first.")
	case errors.Is(err, tracker.ErrAlreadyClockedIn):
		return NewCLIError(ErrorTypeConflict, "You are already clocked in", err)
	case errors.Is(err, tracker.ErrTaskRunning):
		return NewCLIError(ErrorTypeConflict, "A task is already running", err).
			WithSuggestion("Stop it with 'tracker task stop' first.")
	case errors.Is(err, tracker.ErrNoActiveTask):
		return NewCLIError(ErrorTypeNotFound, "No task is running", err)
	case errors.Is(err, tracker.ErrBusy):
		return NewCLIError(ErrorTypeBusy, "That action is already in progress", err)
	}
	return nil
}

func fromAPI(apiErr *api.APIError, cause error) *CLIError {
	var cliErr *CLIError
	switch {
	case apiErr.StatusCode == 401:
		cliErr = SessionExpiredError(cause)
		if apiErr.Message != "" {
			cliErr.Message = apiErr.Message
		}
	case apiErr.StatusCode == 403:
		cliErr = ForbiddenError(apiErr.Message)
	case apiErr.StatusCode == 404:
		cliErr = NewCLIError(ErrorTypeNotFound, apiErr.Message, cause)
	case apiErr.StatusCode == 422:
		cliErr = NewCLIError(ErrorTypeValidation, apiErr.Message, cause)
	case apiErr.StatusCode >= 500:
		cliErr = ServerError(apiErr.Message)
	case apiErr.StatusCode == 400 || apiErr.StatusCode == 409:
		// the backend reports rule violations, e.g. break time, as 400 detail
		cliErr = NewCLIError(ErrorTypeConflict, apiErr.Message, cause)
	default:
		cliErr = NewCLIError(ErrorTypeUnknown, apiErr.Message, cause)
	}
	cliErr.Cause = cause
	cliErr.StatusCode = apiErr.StatusCode
	return cliErr
}

// CategorizeError converts a standard error into a CLIError
func CategorizeError(err error) *CLIError {
	if err == nil {
		return nil
	}

	// Check if it's already a CLIError
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	if trackerErr := fromTracker(err); trackerErr != nil {
		return trackerErr
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return fromAPI(apiErr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError(err)
	}

	// Categorize based on error message
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused"), strings.Contains(errMsg, "no such host"):
		return NetworkError("Could not connect to server. Make sure it's running.", err)
	case strings.Contains(errMsg, "timeout"):
		return TimeoutError(err)
	default:
		return NewCLIError(ErrorTypeUnknown, errMsg, err)
	}
}

// FormatError returns a user-friendly error message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	cliErr := CategorizeError(err)
	var sb strings.Builder

	sb.WriteString("Error")
	if cliErr.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(cliErr.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(cliErr.Message)
	sb.WriteString("\n")

	if cliErr.HasSuggestion() {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(cliErr.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}
