package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"invitely/rsvphub/pkg/response"
)

// SlugSource extracts the event slug a request acts on.
type SlugSource func(c *gin.Context) string

func FromParam(name string) SlugSource {
	return func(c *gin.Context) string { return strings.TrimSpace(c.Param(name)) }
}

func FromQuery(name string) SlugSource {
	return func(c *gin.Context) string { return strings.TrimSpace(c.Query(name)) }
}

// EventScope lets admins act on every event and managers only on the events
// listed in their session. Must be used after JWTAuth.
func EventScope(source SlugSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ClaimsFromContext(c)
		if err != nil {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		slug := source(c)
		if slug == "" {
			response.BadRequest(c, "event is required")
			c.Abort()
			return
		}
		if !claims.CanAccessEvent(slug) {
			response.Forbidden(c, "no access to this event")
			c.Abort()
			return
		}
		c.Next()
	}
}
