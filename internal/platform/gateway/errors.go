package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAuthenticationExpired reports a 401 that could not be resolved by a
// token refresh. By the time a caller sees it the session has been cleared.
var ErrAuthenticationExpired = errors.New("authentication expired")

// NetworkError is a transport failure: the request produced no response at
// all. The gateway does not retry these; the caller may.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError is any non-401 4xx/5xx from the platform API. Message holds
// the human-readable text extracted from the response body; Body keeps the
// raw payload for callers that need more.
type RemoteError struct {
	Status  int
	Body    []byte
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: status %d", e.Status)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.Status, e.Message)
}

// ExtractMessage pulls a human-readable message out of an error response
// body. The platform's services disagree on their error envelope, so the
// candidates are tried in a fixed order: message, error, detail, errors
// (array or per-field object), non_field_errors, a bare JSON string, a
// per-field scan, and finally the raw body.
func ExtractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return trimmed
	}

	switch v := decoded.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		if msg := joinErrors(v["errors"]); msg != "" {
			return msg
		}
		if arr, ok := v["non_field_errors"].([]interface{}); ok {
			if msg := joinStrings(arr); msg != "" {
				return msg
			}
		}
		if msg := scanFields(v); msg != "" {
			return msg
		}
	}
	return trimmed
}

// joinErrors flattens an "errors" value: arrays join entry by entry, objects
// join field by field.
func joinErrors(v interface{}) string {
	switch errs := v.(type) {
	case []interface{}:
		return joinStrings(errs)
	case map[string]interface{}:
		parts := make([]string, 0, len(errs))
		for _, field := range sortedFieldNames(errs) {
			parts = append(parts, field+": "+stringify(errs[field]))
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// scanFields is the last-resort pass over a map whose values are strings or
// string arrays, as some validation responses key messages by field name.
func scanFields(m map[string]interface{}) string {
	var parts []string
	for _, field := range sortedFieldNames(m) {
		switch fv := m[field].(type) {
		case string:
			parts = append(parts, field+": "+fv)
		case []interface{}:
			if s := joinStrings(fv); s != "" {
				parts = append(parts, field+": "+s)
			}
		}
	}
	return strings.Join(parts, "; ")
}

func joinStrings(values []interface{}) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, stringify(v))
	}
	return strings.Join(parts, "; ")
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedFieldNames(m map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
