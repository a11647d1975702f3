package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks calls that never got an HTTP response.
var ErrUnavailable = errors.New("inventory API unavailable")

// APIError is a non-2xx answer from the inventory API.
type APIError struct {
	Endpoint string
	Status   int
	// Message is the backend's own error text, empty when the body had none.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// UserMessage returns the backend message shown verbatim to the user.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Unauthorized reports whether the API rejected the bearer token.
func (e *APIError) Unauthorized() bool {
	return e.Status == 401
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

var messageFields = []string{"message", "mensaje", "error", "detail"}

// extractMessage pulls the first non-empty message field from a JSON error
// body. Bodies that are not JSON objects yield "".
func extractMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, f := range messageFields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
