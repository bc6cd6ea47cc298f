// Package token issues and verifies the bearer tokens attached to HTTP
// calls and the socket handshake.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pkt.systems/sketchroom/schema"
)

// DefaultTTL bounds token lifetime when the config does not set one.
const DefaultTTL = 24 * time.Hour

// Manager signs and verifies HMAC bearer tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a manager for the given signing secret.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("missing token secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue returns a signed token for the user.
func (m *Manager) Issue(userID schema.UserID) (string, error) {
	if err := schema.ValidateUserID(userID); err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses the token and returns the user it was issued to.
func (m *Manager) Verify(raw string) (schema.UserID, error) {
	if strings.TrimSpace(raw) == "" {
		return "", schema.ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", schema.ErrInvalidToken, err)
	}
	userID := schema.UserID(claims.Subject)
	if err := schema.ValidateUserID(userID); err != nil {
		return "", schema.ErrInvalidToken
	}
	return userID, nil
}
