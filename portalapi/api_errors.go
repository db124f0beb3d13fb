package portalapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx answer from the portal backend. The backend
// answered, so auth.IsRejection treats it as a rejection, never as a
// transport failure.
type APIError struct {
	Status  int    // HTTP status code
	Message string // Server "error" or "detail" field, when present
	Body    []byte // Raw response body
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("portal api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("portal api: %d %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) StatusCode() int {
	return e.Status
}

// Unauthorized reports whether the backend refused the credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: body}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	for _, key := range []string{"error", "detail", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			e.Message = s
			return e
		}
	}
	// DRF field errors: {"field": ["msg", ...]}
	var parts []string
	for field, v := range payload {
		if list, ok := v.([]any); ok && len(list) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %v", field, list[0]))
		}
	}
	sort.Strings(parts)
	e.Message = strings.Join(parts, "; ")
	return e
}
