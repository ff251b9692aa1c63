// Package http serves the bank API consumed by the client: users, accounts,
// ledger entries and loans under /api/v1.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophBank/internal/middleware"
	"github.com/atinyakov/GophBank/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a service error onto its HTTP status.
func fail(w http.ResponseWriter, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrAuth):
		status = http.StatusUnauthorized
	}
	writeError(w, status, se.Msg)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// owns reports whether the caller may act on a resource owned by owner.
func owns(r *http.Request, owner string) bool {
	c := middleware.ClaimsFromContext(r.Context())
	return c.IsAdmin() || (c != nil && c.UserID == owner)
}
