package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
)

// UserKey holds the *auth.Principal of an authenticated request.
const UserKey = "user"

// CurrentUser returns the request's principal, or nil for anonymous callers.
func CurrentUser(c *gin.Context) *auth.Principal {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

// OptionalAuth resolves the caller when credentials are present. Requests
// with missing or unusable credentials continue anonymously.
func OptionalAuth(authn auth.Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := authn.Authenticate(c.Request)
		switch {
		case err == nil:
			c.Set(UserKey, p)
		case !errors.Is(err, auth.ErrNoCredentials):
			logger.Debug("ignoring invalid credentials",
				"request_id", c.GetString(RequestIDKey),
				"error", err,
			)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid principal.
func RequireAuth(authn auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		p, err := authn.Authenticate(c.Request)
		if err != nil {
			msg := "authentication required"
			if !errors.Is(err, auth.ErrNoCredentials) {
				msg = "invalid or expired credentials"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse(msg))
			return
		}
		c.Set(UserKey, p)
		c.Next()
	}
}

// RequireRoles must run after RequireAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentUser(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("authentication required"))
			return
		}
		if !auth.Authorize(p, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("insufficient permissions"))
			return
		}
		c.Next()
	}
}
