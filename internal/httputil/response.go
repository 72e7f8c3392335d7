package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tendant/simple-projects/pkg/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Detail string            `json:"detail,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes {"error": message} with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ValidationError writes a 422 listing the failing fields.
func ValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
}

// DecodeJSON decodes the request body into v. An empty body leaves v untouched.
// A body over the size limit writes 413; any other decode failure writes 400.
// It returns false when a response has already been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	Error(w, http.StatusBadRequest, "invalid request body")
	return false
}
