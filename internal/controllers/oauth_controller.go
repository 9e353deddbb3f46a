package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type OAuthController struct {
	oauth *auth.OAuthService
	users services.UserService
}

func NewOAuthController(oauth *auth.OAuthService, users services.UserService) *OAuthController {
	return &OAuthController{oauth: oauth, users: users}
}

// Authorize godoc
// @Summary Authorization request
// @Description Validate an authorization request and describe it for the consent screen
// @Tags OAuth2
// @Produce json
// @Param client_id query string true "Client ID"
// @Param response_type query string true "Must be code"
// @Param redirect_uri query string false "Registered redirect URI"
// @Param scope query string false "Space separated scopes"
// @Param state query string false "Opaque client state"
// @Param code_challenge query string true "PKCE code challenge"
// @Param code_challenge_method query string false "plain or S256"
// @Success 200 {object} auth.ConsentView
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/authorize [get]
func (oc *OAuthController) Authorize(c *gin.Context) {
	view, err := oc.oauth.ValidateConsentRequest(c.Request.Context(), authorizeRequest(c))
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ConfirmAuthorization godoc
// @Summary Consent decision
// @Description Approve or deny an authorization request on behalf of the end user
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce html
// @Param confirm formData string false "yes to approve, anything else denies"
// @Param username formData string false "End user approving the request"
// @Success 200 {string} string "Out-of-band success page"
// @Success 302 "Redirect to the client with code or error"
// @Failure 400 {object} models.OAuth2Error
// @Failure 403 {string} string "Out-of-band denial page"
// @Router /oauth/authorize [post]
func (oc *OAuthController) ConfirmAuthorization(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := oc.oauth.ValidateConsentRequest(ctx, authorizeRequest(c))
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}

	var user *models.User
	if confirmed(c.PostForm("confirm")) {
		user, err = oc.grantingUser(c)
		if err != nil {
			respondWithOAuthError(c, err)
			return
		}
	}

	resp, err := oc.oauth.CreateAuthorizationResponse(ctx, user, view)
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}

	if resp.RedirectURI != "" {
		c.Redirect(resp.Status, resp.RedirectURI)
		return
	}
	c.Data(resp.Status, "text/html; charset=utf-8", []byte(resp.Body))
}

// grantingUser resolves the end user: an upstream session may have put a
// user in the context, otherwise the form names one.
func (oc *OAuthController) grantingUser(c *gin.Context) (*models.User, error) {
	if user, ok := middleware.CurrentUser(c); ok {
		return user, nil
	}

	username := strings.TrimSpace(c.PostForm("username"))
	if username == "" {
		return nil, auth.ErrInvalidRequest.WithDescription("username is required to approve")
	}
	if len(username) > 40 {
		return nil, auth.ErrInvalidRequest.WithDescription("username is too long")
	}
	return oc.users.FindOrCreateUser(c.Request.Context(), username)
}

// Token godoc
// @Summary Token endpoint
// @Description Exchange an authorization code or a refresh token for a bearer token
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Param code formData string false "Authorization code"
// @Param redirect_uri formData string false "Redirect URI used in the authorization request"
// @Param code_verifier formData string false "PKCE code verifier"
// @Param refresh_token formData string false "Refresh token"
// @Param scope formData string false "Narrower scope for refresh"
// @Param client_id formData string false "Client ID when not using HTTP Basic"
// @Param client_secret formData string false "Client secret for client_secret_post"
// @Success 200 {object} auth.TokenResponse
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (oc *OAuthController) Token(c *gin.Context) {
	creds, err := clientCredentials(c)
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}

	resp, err := oc.oauth.HandleTokenRequest(c.Request.Context(), creds, auth.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		Code:         c.PostForm("code"),
		RedirectURI:  c.PostForm("redirect_uri"),
		CodeVerifier: c.PostForm("code_verifier"),
		RefreshToken: c.PostForm("refresh_token"),
		Scope:        c.PostForm("scope"),
	})
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, resp)
}

// Revoke godoc
// @Summary Token revocation
// @Description Revoke an access or refresh token (RFC 7009)
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Param token formData string true "Token to revoke"
// @Param token_type_hint formData string false "access_token or refresh_token"
// @Success 200 "Token revoked or unknown"
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/revoke [post]
func (oc *OAuthController) Revoke(c *gin.Context) {
	creds, err := clientCredentials(c)
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}

	err = oc.oauth.HandleRevocationRequest(c.Request.Context(), creds, c.PostForm("token"), c.PostForm("token_type_hint"))
	if err != nil {
		respondWithOAuthError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func authorizeRequest(c *gin.Context) auth.AuthorizeRequest {
	param := func(key string) string {
		if v, ok := c.GetPostForm(key); ok {
			return v
		}
		return c.Query(key)
	}
	return auth.AuthorizeRequest{
		ClientID:            param("client_id"),
		RedirectURI:         param("redirect_uri"),
		ResponseType:        param("response_type"),
		Scope:               param("scope"),
		State:               param("state"),
		CodeChallenge:       param("code_challenge"),
		CodeChallengeMethod: param("code_challenge_method"),
	}
}

func confirmed(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "true", "on", "1":
		return true
	}
	return false
}

// clientCredentials reads client authentication from HTTP Basic (RFC 6749
// section 2.3.1) or the request body. Using both is an error.
func clientCredentials(c *gin.Context) (auth.ClientCredentials, error) {
	formID, formSecret := c.PostForm("client_id"), c.PostForm("client_secret")

	if id, secret, ok := c.Request.BasicAuth(); ok {
		if formSecret != "" {
			return auth.ClientCredentials{}, auth.ErrInvalidRequest.WithDescription("multiple client authentication methods")
		}
		var err error
		if id, err = url.QueryUnescape(id); err != nil {
			return auth.ClientCredentials{}, auth.ErrInvalidClient
		}
		if secret, err = url.QueryUnescape(secret); err != nil {
			return auth.ClientCredentials{}, auth.ErrInvalidClient
		}
		if formID != "" && formID != id {
			return auth.ClientCredentials{}, auth.ErrInvalidRequest.WithDescription("client_id does not match the Authorization header")
		}
		return auth.ClientCredentials{ClientID: id, ClientSecret: secret, Method: models.AuthMethodClientSecretBasic}, nil
	}

	if formSecret != "" {
		return auth.ClientCredentials{ClientID: formID, ClientSecret: formSecret, Method: models.AuthMethodClientSecretPost}, nil
	}
	return auth.ClientCredentials{ClientID: formID, Method: models.AuthMethodNone}, nil
}

// respondWithOAuthError renders protocol errors in the RFC 6749 vocabulary.
func respondWithOAuthError(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		log.WithError(err).WithField("path", c.FullPath()).Error("OAuth request failed")
		authErr = auth.ErrServerError
	}

	if authErr.Status == http.StatusUnauthorized && errors.Is(authErr, auth.ErrInvalidClient) {
		if _, _, ok := c.Request.BasicAuth(); ok {
			c.Header("WWW-Authenticate", `Basic realm="oauth"`)
		}
	}

	metrics.OAuthErrors.WithLabelValues(authErr.Code).Inc()
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(authErr.Status, authErr.Response())
}
