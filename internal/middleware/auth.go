package middleware

import (
	"net/http"
	"strings"

	"blogauth/internal/pkg/response"
	"blogauth/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

// RequireAuth verifies the bearer access token and stores user_id and
// is_admin in the request context.
func RequireAuth(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := bearerPrincipal(c, verifier)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid access token")
			c.Abort()
			return
		}

		c.Set("user_id", principal.ID)
		c.Set("is_admin", principal.IsAdmin)
		c.Next()
	}
}

// OptionalAuth is RequireAuth that lets anonymous requests through. The
// OAuth authorize endpoint uses it to tell a link flow from a login flow.
func OptionalAuth(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal, ok := bearerPrincipal(c, verifier); ok {
			c.Set("user_id", principal.ID)
			c.Set("is_admin", principal.IsAdmin)
		}
		c.Next()
	}
}

// AdminOnly requires an authenticated admin. Mount after RequireAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_admin") {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerPrincipal(c *gin.Context, verifier *token.Verifier) (*token.Principal, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if raw == "" {
		return nil, false
	}

	res := verifier.Verify(raw)
	if res.Status != token.StatusValid {
		return nil, false
	}
	// only access tokens authorize requests; refresh and state tokens are
	// scoped to their own endpoints
	if res.Claims.Type != token.TypeAccess || res.Claims.User == nil {
		return nil, false
	}
	return res.Claims.User, true
}
