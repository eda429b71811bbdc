package adapter

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Decode unmarshals the request parameters into v. Unknown fields, type
// mismatches and malformed JSON are reported as INVALID_INPUT naming the
// field. Empty parameters leave v untouched.
func Decode(req Request, v any) error {
	if len(bytes.TrimSpace(req.Params)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.InvalidInput("params", "trailing data after JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "params"
		}
		return errors.InvalidInput(field, "expected %s, got JSON %s", typeErr.Type, typeErr.Value)
	}
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		return errors.InvalidInput(strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`), "unknown field")
	}
	return errors.InvalidInput("params", "malformed JSON: %v", err)
}
