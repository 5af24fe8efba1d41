package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details []control.Issue `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response")
		return
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorBody(w, status, ErrorResponse{Error: msg})
}

func writeErrorBody(w http.ResponseWriter, status int, body ErrorResponse) {
	data, err := jsonutil.Marshal(body)
	if err != nil {
		data = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeStoreError maps a store error to 422 (validation) or 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if ve, ok := control.AsValidationError(err); ok {
		writeErrorBody(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ve.Issues,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeDecodeError maps a body decoding failure to 413 or 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jsonutil.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, jsonutil.ErrEmptyBody):
		writeError(w, http.StatusBadRequest, "request body is required")
	default:
		writeError(w, http.StatusBadRequest, "malformed JSON body")
	}
}

// allowMethods answers 405 unless r uses one of methods. HEAD is accepted
// wherever GET is.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m || (m == http.MethodGet && r.Method == http.MethodHead) {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
