package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"invitely/rsvphub/internal/service"
	jwtpkg "invitely/rsvphub/pkg/jwt"
	"invitely/rsvphub/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

// Authenticator turns a bearer token into session claims, rejecting revoked
// sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*jwtpkg.Claims, error)
}

// ErrNoClaims is returned by ClaimsFromContext outside JWTAuth.
var ErrNoClaims = errors.New("claims not found in context")

func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if errors.Is(err, service.ErrSessionStore) {
			_ = c.Error(err)
			response.InternalError(c, "failed to check session")
			c.Abort()
			return
		}
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

func ClaimsFromContext(c *gin.Context) (*jwtpkg.Claims, error) {
	claimsVal, exists := c.Get(ContextKeyUserClaims)
	if !exists {
		return nil, ErrNoClaims
	}
	claims, ok := claimsVal.(*jwtpkg.Claims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}
