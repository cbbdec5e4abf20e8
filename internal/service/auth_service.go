package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"invitely/rsvphub/internal/config"
	"invitely/rsvphub/internal/repository"
	"invitely/rsvphub/pkg/crypto"
	jwtpkg "invitely/rsvphub/pkg/jwt"
)

// TokenSet is returned after a successful dashboard login.
type TokenSet struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	Role        jwtpkg.Role `json:"role"`
	Events      []string    `json:"events,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*TokenSet, error)
	// Authenticate validates a bearer token and rejects revoked sessions.
	Authenticate(ctx context.Context, accessToken string) (*jwtpkg.Claims, error)
	Logout(ctx context.Context, claims *jwtpkg.Claims) error
}

type authService struct {
	accounts     map[string]config.AdminAccount
	sessionStore repository.SessionStore
	jwtManager   *jwtpkg.Manager
}

// dummyHash keeps unknown usernames on the same bcrypt cost as real ones.
// It is computed on the first login for an unknown account.
var dummyHash = sync.OnceValues(func() (string, error) {
	return crypto.HashPassword("rsvphub-unknown-account")
})

func NewAuthService(
	accounts []config.AdminAccount,
	sessionStore repository.SessionStore,
	jwtManager *jwtpkg.Manager,
) AuthService {
	byName := make(map[string]config.AdminAccount, len(accounts))
	for _, a := range accounts {
		byName[strings.ToLower(strings.TrimSpace(a.Username))] = a
	}
	return &authService{
		accounts:     byName,
		sessionStore: sessionStore,
		jwtManager:   jwtManager,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*TokenSet, error) {
	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		hash, err := dummyHash()
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		crypto.CheckPassword(password, hash)
		return nil, ErrInvalidLogin
	}
	if !crypto.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidLogin
	}

	role := jwtpkg.Role(account.Role)
	if role != jwtpkg.RoleAdmin && role != jwtpkg.RoleManager {
		return nil, fmt.Errorf("account %q has unknown role %q", account.Username, account.Role)
	}

	token, claims, err := s.jwtManager.GenerateAccessToken(account.Username, role, account.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &TokenSet{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
		Role:        claims.Role,
		Events:      claims.Events,
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*jwtpkg.Claims, error) {
	claims, err := s.jwtManager.Validate(accessToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.sessionStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStore, err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// Logout revokes the session for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *jwtpkg.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return s.sessionStore.Revoke(ctx, claims.ID, ttl)
}

var _ AuthService = (*authService)(nil)
