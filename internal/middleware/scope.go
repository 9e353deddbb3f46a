package middleware

import (
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireScope is a middleware that checks the bearer token was granted scope.
// It must run after OAuth2Auth.
func RequireScope(scope string) gin.HandlerFunc {
	required := auth.ParseScope(scope)
	return func(c *gin.Context) {
		if _, exists := c.Get(UserIDKey); !exists {
			respondWithBearerError(c, auth.ErrInvalidToken.WithDescription("user not authenticated"))
			return
		}

		granted := auth.ParseScope(c.GetString(ScopesKey))
		if !granted.Contains(required) {
			respondWithBearerError(c, auth.ErrInsufficientScope.WithDescription("token requires scope: "+required.String()))
			return
		}

		c.Next()
	}
}
