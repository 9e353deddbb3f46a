package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Context keys set by the bearer middlewares.
const (
	UserIDKey   = "userID"
	UserKey     = "user"
	ClientIDKey = "clientID"
	ScopesKey   = "scopes"
)

const realm = "api"

// TokenValidator validates bearer tokens. It is satisfied by *auth.TokenService.
type TokenValidator interface {
	Validate(ctx context.Context, access string, required auth.Scope) (*models.OAuthToken, *models.User, error)
	ValidateOptional(ctx context.Context, access string, required auth.Scope) (*models.OAuthToken, *models.User, error)
}

// OAuth2Auth requires a valid bearer token (RFC 6750) and puts the token's
// user, client and scopes into the context.
func OAuth2Auth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		access, err := bearerToken(c)
		if err != nil {
			respondWithBearerError(c, err)
			return
		}

		token, user, err := tokens.Validate(c.Request.Context(), access, nil)
		if err != nil {
			respondWithBearerError(c, err)
			return
		}

		setIdentity(c, token, user)
		c.Next()
	}
}

// OptionalOAuth2Auth lets requests without an Authorization header through
// anonymously. A token that is present must be valid and carry scope.
func OptionalOAuth2Auth(tokens TokenValidator, scope string) gin.HandlerFunc {
	required := auth.ParseScope(scope)
	return func(c *gin.Context) {
		access, err := bearerToken(c)
		if err != nil && c.GetHeader("Authorization") != "" {
			respondWithBearerError(c, err)
			return
		}

		token, user, err := tokens.ValidateOptional(c.Request.Context(), access, required)
		if err != nil {
			respondWithBearerError(c, err)
			return
		}

		if token != nil {
			setIdentity(c, token, user)
		}
		c.Next()
	}
}

// CurrentUser returns the user authenticated by a bearer middleware, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

func setIdentity(c *gin.Context, token *models.OAuthToken, user *models.User) {
	c.Set(UserIDKey, user.ID)
	c.Set(UserKey, user)
	c.Set(ClientIDKey, token.ClientID)
	c.Set(ScopesKey, token.Scope)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", auth.ErrInvalidToken.WithDescription("missing Authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrInvalidRequest.WithDescription("Authorization header must use the Bearer scheme")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrInvalidToken.WithDescription("bearer token is empty")
	}
	return token, nil
}

// respondWithBearerError answers with an RFC 6750 error body and WWW-Authenticate challenge.
func respondWithBearerError(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		log.WithError(err).Error("Bearer token validation failed")
		authErr = auth.ErrServerError
	}

	if authErr.Status == http.StatusUnauthorized || authErr.Status == http.StatusForbidden {
		c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer realm=%q, error=%q, error_description=%q`,
			realm, authErr.Code, authErr.Description))
	}

	metrics.OAuthErrors.WithLabelValues(authErr.Code).Inc()
	c.AbortWithStatusJSON(authErr.Status, authErr.Response())
}
