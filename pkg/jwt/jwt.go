package jwt

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Claims extends jwt.RegisteredClaims with the dashboard role and the
// event slugs a manager may act on.
type Claims struct {
	jwt.RegisteredClaims
	Role   Role     `json:"role"`
	Events []string `json:"events,omitempty"`
}

// CanAccessEvent reports whether the session may act on the event.
func (c *Claims) CanAccessEvent(slug string) bool {
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return slices.Contains(c.Events, slug)
	}
	return false
}

type Manager struct {
	signingKey     []byte
	issuer         string
	accessTokenTTL time.Duration
}

func NewManager(signingKey string, issuer string, accessTTL time.Duration) *Manager {
	return &Manager{
		signingKey:     []byte(signingKey),
		issuer:         issuer,
		accessTokenTTL: accessTTL,
	}
}

// AccessTokenTTL is the lifetime of tokens issued by GenerateAccessToken.
func (m *Manager) AccessTokenTTL() time.Duration { return m.accessTokenTTL }

// GenerateAccessToken creates a signed JWT for a dashboard user.
// The returned claims carry the token id used for revocation.
func (m *Manager) GenerateAccessToken(username string, role Role, events []string) (string, *Claims, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Role:   role,
		Events: events,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// Validate parses and validates a token string, returning claims.
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}

	return claims, nil
}
