package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), envelope(err))
}

func envelope(err error) errorEnvelope {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errorEnvelope{Error: errorBody{
		Code:    code,
		Message: errors.UserMessage(err),
		Field:   errors.FieldOf(err),
	}}
}

func notFound(format string, args ...any) error {
	return errors.New(errors.ErrCodeNotFound, format, args...)
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.InvalidInput("body", "unreadable: %v", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errors.InvalidInput("body", "larger than %d bytes", maxBodyBytes)
	}
	return body, nil
}

// decode strictly unmarshals a JSON body into v.
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.InvalidInput("body", "a JSON object is required")
	}
	return adapter.Decode(adapter.Request{Params: body}, v)
}
