// internal/server/handlers/session.go

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"peerhive/internal/domain/identity"
)

// AnonymousIssuer mints tokens for fresh anonymous identities
type AnonymousIssuer interface {
	IssueAnonymous(ttl time.Duration) (*identity.Identity, string, error)
}

// SessionHandler handles session bootstrap
type SessionHandler struct {
	issuer AnonymousIssuer
	ttl    time.Duration
	log    *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(issuer AnonymousIssuer, ttl time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		issuer: issuer,
		ttl:    ttl,
		log:    logger.With("component", "session_handler"),
	}
}

type sessionResponse struct {
	Token    string             `json:"token"`
	Identity *identity.Identity `json:"identity"`
}

// CreateAnonymous signs the caller in under a new anonymous identity
func (h *SessionHandler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	who, token, err := h.issuer.IssueAnonymous(h.ttl)
	if err != nil {
		h.log.Error("issue anonymous token", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondWithJSON(w, http.StatusCreated, sessionResponse{Token: token, Identity: who})
}

// CurrentIdentity echoes the identity carried by the request token
func (h *SessionHandler) CurrentIdentity(w http.ResponseWriter, r *http.Request) {
	who := identity.FromContext(r.Context())
	if who == nil {
		respondWithError(w, http.StatusUnauthorized, "identity required")
		return
	}

	respondWithJSON(w, http.StatusOK, who)
}
