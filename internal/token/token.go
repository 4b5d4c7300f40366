// Package token issues and verifies the HS256 session tokens carried in the
// session cookie after Kakao login.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suwonbread/bready/internal/domain"
)

// Manager signs and parses session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager. secret must be non-empty.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue creates a signed token whose subject is the user id.
func (m *Manager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the user id. Expired, malformed, or
// wrongly-signed tokens map to domain.ErrUnauthorized.
func (m *Manager) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		})
	if err != nil {
		return "", fmt.Errorf("parse token: %w: %w", err, domain.ErrUnauthorized)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }
