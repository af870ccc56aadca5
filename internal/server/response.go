package server

import (
	"encoding/json"
	"net/http"
)

// httpError is an error carrying an HTTP status plus a human hint, rendered
// as the JSON envelope {"error": ..., "hint": ...}.
type httpError struct {
	Status int    `json:"-"`
	Msg    string `json:"error"`
	Hint   string `json:"hint"`
}

func (e *httpError) Error() string { return e.Msg }

func errBadRequest(msg, hint string) *httpError {
	return &httpError{Status: http.StatusBadRequest, Msg: msg, Hint: hint}
}

func errUnauthorized(msg, hint string) *httpError {
	return &httpError{Status: http.StatusUnauthorized, Msg: msg, Hint: hint}
}

func errForbidden(hint string) *httpError {
	return &httpError{Status: http.StatusForbidden, Msg: "Forbidden", Hint: hint}
}

// errNotFound is used for both missing and expired resources so responses
// never leak whether an expired resource once existed.
func errNotFound(msg, hint string) *httpError {
	return &httpError{Status: http.StatusNotFound, Msg: msg, Hint: hint}
}

func errInternal(hint string) *httpError {
	return &httpError{Status: http.StatusInternalServerError, Msg: "Internal error", Hint: hint}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, e *httpError) {
	s.respondJSON(w, e.Status, e)
}
