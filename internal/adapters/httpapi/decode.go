package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime/types"
)

const maxBodyBytes = 1 << 20

// decodeJSON decodes a single JSON object from the request body. The returned
// error message is safe to show to callers.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return nil, errors.New("missing request body")
		case errors.Is(err, types.ErrValidationEmail):
			return map[string]any{"email": "must be a valid email address"}, errors.New("invalid email")
		case errors.As(err, &syntaxErr):
			return nil, fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return map[string]any{typeErr.Field: "has the wrong type"}, fmt.Errorf("invalid %s", typeErr.Field)
		case errors.As(err, &maxErr):
			return nil, errors.New("request body too large")
		default:
			return nil, err
		}
	}
	if dec.More() {
		return nil, errors.New("request body must contain a single JSON object")
	}
	return nil, nil
}
