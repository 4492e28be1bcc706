// Package jsonutil reads and writes JSON request and response bodies.
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
)

// MaxBodyBytes caps decoded request bodies.
const MaxBodyBytes = 1 << 20

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteError writes e as an ErrorBody.
func WriteError(w http.ResponseWriter, e *apierr.Error) {
	WriteJSON(w, e.Status, ErrorBody{Error: e.Message, Code: e.Code, Fields: e.Fields})
}

// Decode reads a single JSON object from r into dst. Any failure is
// returned as a 400 *apierr.Error.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apierr.BadRequest("content type must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apierr.BadRequest("request body is empty")
		case errors.As(err, &maxErr):
			return apierr.BadRequest("request body too large")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apierr.BadRequest("malformed JSON")
		case errors.As(err, &typeErr):
			return apierr.BadRequest("invalid value for " + typeErr.Field)
		default:
			return apierr.BadRequest("invalid request body")
		}
	}
	if dec.More() {
		return apierr.BadRequest("request body must contain a single JSON object")
	}
	return nil
}
