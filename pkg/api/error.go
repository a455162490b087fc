package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// APIError represents an API error response
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// errorResponse is the FastAPI error body. detail is a string for
// HTTPException and a list of {loc, msg, type} for validation failures.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// ParseError parses an error response from the API
func ParseError(resp *resty.Response) error {
	statusCode := resp.StatusCode()
	apiErr := &APIError{
		Code:       codeForStatus(statusCode),
		StatusCode: statusCode,
	}

	var errResp errorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && len(errResp.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(errResp.Detail, &detail); err == nil {
			apiErr.Message = detail
			return apiErr
		}

		var issues []validationIssue
		if err := json.Unmarshal(errResp.Detail, &issues); err == nil && len(issues) > 0 {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				msgs = append(msgs, issue.Msg)
			}
			apiErr.Message = strings.Join(msgs, "; ")
			return apiErr
		}
	}

	// Fallback to the raw body, then to the status text
	apiErr.Message = strings.TrimSpace(string(resp.Body()))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusUnprocessableEntity:
		return "validation_error"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "bad_request"
	default:
		return "unknown_error"
	}
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized checks if error is due to missing/invalid authentication
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsSessionInvalid reports whether err means the stored session can no
// longer be used: the backend answers 401 for a missing, expired, revoked or
// malformed token alike.
func IsSessionInvalid(err error) bool {
	return IsUnauthorized(err)
}

// IsForbidden checks if error is due to insufficient permissions
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsNotFound checks if error is due to resource not found
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsServerError checks if error is due to server error (5xx)
func IsServerError(err error) bool {
	return statusOf(err) >= 500
}

// Message returns the server-provided message of an API error, or the
// error text for anything else.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// CheckResponse checks if response is successful and returns error if not
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return ParseError(resp)
	}

	return nil
}
