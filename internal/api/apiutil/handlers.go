package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError logs herr and writes it as an ErrorResponse. Server errors are
// logged at error level with the wrapped cause; the cause is never sent.
func WriteError(w http.ResponseWriter, r *http.Request, herr HandlerError) {
	logger := log.Ctx(r.Context())
	if herr.Status >= http.StatusInternalServerError {
		logger.Error().Err(herr.Err).Int("status", herr.Status).Msg(herr.Message)
	} else {
		logger.Debug().Err(herr.Err).Int("status", herr.Status).Msg(herr.Message)
	}

	body := ErrorResponse{Error: herr.Message}
	var field FieldError
	if errors.As(herr.Err, &field) {
		body.Fields = []FieldError{field}
	}
	if err := WriteJSON(w, herr.Status, body); err != nil {
		logger.Error().Err(err).Msg("Failed to write error response")
	}
}
