// internal/server/handlers/auth.go

package handlers

import (
	"net/http"
	"strings"

	"peerhive/internal/domain/identity"
)

// Authenticate resolves the caller identity from a bearer token, or from the
// "token" query parameter for websocket clients. Requests without a token
// pass through with no identity; an invalid token is rejected.
func Authenticate(tokens identity.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			who, err := tokens.ValidateToken(raw)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), who)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// requireAdmin writes 401 or 403 and returns nil unless the caller is the admin
func requireAdmin(w http.ResponseWriter, r *http.Request, adminEmail string) *identity.Identity {
	who := identity.FromContext(r.Context())
	if who == nil {
		respondWithError(w, http.StatusUnauthorized, "identity required")
		return nil
	}
	if !who.IsAdmin(adminEmail) {
		respondWithError(w, http.StatusForbidden, "admin access required")
		return nil
	}
	return who
}
