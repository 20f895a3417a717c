// internal/domain/identity/service.go

package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Identity is the authenticated-identity descriptor supplied by the identity provider
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	IsAnonymous bool   `json:"isAnonymous"`
	Email       string `json:"email,omitempty"`
}

// uidPrefixLen is how much of the UID is shown in derived author names
const uidPrefixLen = 6

// AuthorName derives the display name stamped on a new post
func (i Identity) AuthorName() string {
	short := i.UID
	if len(short) > uidPrefixLen {
		short = short[:uidPrefixLen]
	}

	if i.IsAnonymous {
		return "User-" + short
	}
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return "Student-" + short
}

// IsAdmin reports whether this identity may open the admin view
func (i Identity) IsAdmin(adminEmail string) bool {
	if i.IsAnonymous || i.Email == "" || adminEmail == "" {
		return false
	}
	return strings.EqualFold(i.Email, adminEmail)
}

// TokenManager handles identity tokens
type TokenManager interface {
	// GenerateToken signs a token carrying the identity
	GenerateToken(id Identity, ttl time.Duration) (string, error)

	// ValidateToken validates a token and returns the identity it carries
	ValidateToken(token string) (*Identity, error)
}

// Common errors
var (
	ErrInvalidToken = errors.New("invalid identity token")
)

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, or nil
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}
