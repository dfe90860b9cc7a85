package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// APIError is a non-transient failure reported by the Docs API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("docs api status %d (%s): %s", e.StatusCode, e.Status, truncate(e.Message, 200))
	}
	return fmt.Sprintf("docs api status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// RetryableError indicates a transient failure that can be retried with the
// same payload.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsForbidden reports whether err is an auth or permission failure.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized)
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var transientStatuses = map[string]bool{
	"INTERNAL":          true,
	"UNAVAILABLE":       true,
	"DEADLINE_EXCEEDED": true,
}

// classify turns a non-2xx response into an APIError or RetryableError.
// Quota exhaustion (429) is permanent: retrying inside the same run only
// burns more quota.
func classify(statusCode int, body []byte) error {
	var ge googleError
	msg := string(body)
	status := ""
	if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
		msg = ge.Error.Message
		status = ge.Error.Status
	}
	if statusCode >= 500 || transientStatuses[status] ||
		strings.Contains(strings.ToLower(msg), "internal error") {
		return &RetryableError{StatusCode: statusCode, Message: msg}
	}
	return &APIError{StatusCode: statusCode, Status: status, Message: msg}
}

// classifyTransport marks network timeouts and truncated responses as
// transient. Anything else from the transport is returned unchanged.
func classifyTransport(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RetryableError{Message: fmt.Sprintf("%s: %v", op, err)}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &RetryableError{Message: fmt.Sprintf("%s: %v", op, err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
