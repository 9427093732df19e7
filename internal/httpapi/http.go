package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"trackerd/internal/auth"
	"trackerd/internal/service"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognised is a 500 with a generic message; the detail stays in
// the server log.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidOrExpiredCode):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
