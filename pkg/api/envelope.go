package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// envelope is the wire contract every backend response follows.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// extractErrorMessage pulls a human-readable message out of an error
// response body. Preference order: errors.detail, errors.error, detail,
// error, message, then a synthetic "HTTP {code}: {text}". Malformed or
// absent JSON never fails; it falls through to the synthetic message.
func extractErrorMessage(body []byte, statusCode int) string {
	var payload map[string]any
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if errs, ok := payload["errors"].(map[string]any); ok {
			for _, key := range []string{"detail", "error"} {
				if s, ok := errs[key].(string); ok && s != "" {
					return s
				}
			}
		}
		for _, key := range []string{"detail", "error", "message"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
}
