package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domain "peerhive/internal/domain/identity"
)

// TokenManager signs and validates HS256 identity tokens.
// The external identity provider mints tokens with the same secret.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

type identityClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Anonymous   bool   `json:"anon"`
}

// GenerateToken signs a token with the identity's UID as subject
func (m *TokenManager) GenerateToken(id domain.Identity, ttl time.Duration) (string, error) {
	if id.UID == "" {
		return "", fmt.Errorf("identity uid is empty")
	}

	now := m.now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Anonymous:   id.IsAnonymous,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns the identity it carries
func (m *TokenManager) ValidateToken(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Identity{
		UID:         claims.Subject,
		DisplayName: claims.DisplayName,
		IsAnonymous: claims.Anonymous,
		Email:       claims.Email,
	}, nil
}

// IssueAnonymous creates a fresh anonymous identity and its token
func (m *TokenManager) IssueAnonymous(ttl time.Duration) (*domain.Identity, string, error) {
	id := domain.Identity{
		UID:         uuid.NewString(),
		IsAnonymous: true,
	}

	token, err := m.GenerateToken(id, ttl)
	if err != nil {
		return nil, "", err
	}
	return &id, token, nil
}
