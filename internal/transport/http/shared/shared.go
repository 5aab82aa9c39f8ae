// Package shared holds the JSON envelope helpers every handler uses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "havenlink/pkg/domain-errors"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error into its HTTP status and envelope.
// Unknown errors are masked as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			body.Message = dErr.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
