// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"peerhive/internal/domain/identity"
	"peerhive/internal/domain/post"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithDomainError maps a service error onto a status code
func respondWithDomainError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		respondWithError(w, code, "internal error")
		return
	}
	respondWithError(w, code, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, post.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, post.ErrEmptyText),
		errors.Is(err, post.ErrTextTooLong),
		errors.Is(err, post.ErrUnknownZone),
		errors.Is(err, post.ErrInvalidVote):
		return http.StatusBadRequest
	case errors.Is(err, post.ErrUnauthorized), errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, post.ErrVoteForbidden):
		return http.StatusForbidden
	case errors.Is(err, post.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
