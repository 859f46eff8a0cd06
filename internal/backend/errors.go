package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// TransportMessage is what users see when the backend cannot be reached at all
const TransportMessage = "Greška u komunikaciji sa serverom. Pokušajte ponovno."

var ErrNoCSRFToken = errors.New("backend did not set a csrf cookie")

// APIError is any non-2xx answer from the backend.
// Data holds the decoded JSON body, or nil when the body was not JSON.
// Redirect is set by AuthRedirect when the caller should send the user to
// the login page.
type APIError struct {
	Status   int
	Data     any
	Message  string
	Redirect string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuth reports a 401 or 403
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// FieldErrors returns the per-field validation messages when the body is an
// object of field -> messages. "detail" is not a field.
func (e *APIError) FieldErrors() map[string][]string {
	obj, ok := e.Data.(map[string]any)
	if !ok {
		return nil
	}
	fields := make(map[string][]string)
	for key, value := range obj {
		if key == "detail" {
			continue
		}
		if msgs := messagesOf(value); len(msgs) > 0 {
			fields[key] = msgs
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func messagesOf(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, messagesOf(item)...)
		}
		return out
	case nil:
		return nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return []string{string(raw)}
	}
}

// newAPIError builds the error the same way for every endpoint: a string
// "detail" wins, then the flattened field errors, then a generic message.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var data any
	if len(strings.TrimSpace(string(body))) > 0 && json.Unmarshal(body, &data) == nil {
		apiErr.Data = data
	}
	apiErr.Message = messageFor(status, apiErr.Data)
	return apiErr
}

func messageFor(status int, data any) string {
	generic := fmt.Sprintf("Request failed: %d", status)
	switch v := data.(type) {
	case map[string]any:
		if detail, ok := v["detail"].(string); ok && detail != "" {
			return detail
		}
		if len(v) == 0 {
			return generic
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+strings.Join(messagesOf(v[key]), ", "))
		}
		return strings.Join(parts, "; ")
	case []any:
		if msgs := messagesOf(v); len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
		return generic
	default:
		return generic
	}
}

// TransportError means no HTTP response was received
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text that may be shown to users for err
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return TransportMessage
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
