package apiutil

import (
	"net/http"
	"strings"
)

const maxIDLength = 128

// PathID returns the trimmed path value key, or a FieldError when it is
// empty, too long or carries control characters.
func PathID(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.PathValue(key))
	if raw == "" {
		return "", FieldError{Field: key, Reason: "is required"}
	}
	if len(raw) > maxIDLength {
		return "", FieldError{Field: key, Reason: "is too long"}
	}
	for _, c := range raw {
		if c < 0x20 || c == 0x7f {
			return "", FieldError{Field: key, Reason: "contains invalid characters"}
		}
	}
	return raw, nil
}
