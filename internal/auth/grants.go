package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/go-oauth2/oauth2/v4"
)

// TokenRequest holds the form parameters of a token endpoint request.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scope        string
}

// TokenResponse is the successful token endpoint response (RFC 6749 section 5.1).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
}

func newTokenResponse(token *models.OAuthToken) *TokenResponse {
	resp := &TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
		Scope:       token.Scope,
	}
	if token.RefreshToken != nil {
		resp.RefreshToken = *token.RefreshToken
	}
	return resp
}

// GrantHandler exchanges one kind of grant for a token.
type GrantHandler interface {
	CreateTokenResponse(ctx context.Context, client *models.OAuthClient, req TokenRequest) (*models.OAuthToken, error)
}

// ResponseTypeHandler answers an approved consent for one response_type.
type ResponseTypeHandler interface {
	CreateAuthorizationResponse(ctx context.Context, user *models.User, view *ConsentView) (*AuthorizationResponse, error)
}

type authorizationCodeGrant struct {
	o *OAuthService
}

func (g authorizationCodeGrant) CreateTokenResponse(ctx context.Context, client *models.OAuthClient, req TokenRequest) (*models.OAuthToken, error) {
	grant, err := g.o.Redeem(ctx, client, req.Code, req.RedirectURI, req.CodeVerifier)
	if err != nil {
		return nil, err
	}
	return g.o.tokens.Issue(ctx, client, grant.User, grant.Scope)
}

type refreshTokenGrant struct {
	o *OAuthService
}

func (g refreshTokenGrant) CreateTokenResponse(ctx context.Context, client *models.OAuthClient, req TokenRequest) (*models.OAuthToken, error) {
	return g.o.tokens.Refresh(ctx, client, req.RefreshToken, req.Scope)
}

type codeResponseType struct {
	o *OAuthService
}

func (h codeResponseType) CreateAuthorizationResponse(ctx context.Context, user *models.User, view *ConsentView) (*AuthorizationResponse, error) {
	code, err := h.o.Approve(ctx, user, view)
	if err != nil {
		return nil, err
	}

	if view.RedirectURI == models.OutOfBandRedirectURI {
		return &AuthorizationResponse{
			Status: http.StatusOK,
			Body:   fmt.Sprintf("<title>Success code=%s</title>", code.Code),
		}, nil
	}

	params := map[string][]string{"code": {code.Code}}
	if view.State != "" {
		params["state"] = []string{view.State}
	}
	return &AuthorizationResponse{
		Status:      http.StatusFound,
		RedirectURI: appendQuery(view.RedirectURI, params),
	}, nil
}

// HandleTokenRequest authenticates the client and dispatches on grant_type.
func (o *OAuthService) HandleTokenRequest(ctx context.Context, creds ClientCredentials, req TokenRequest) (*TokenResponse, error) {
	handler, ok := o.grantTypes[oauth2.GrantType(req.GrantType)]
	if !ok {
		return nil, ErrUnsupportedGrantType.WithDescription(fmt.Sprintf("grant_type %q is not supported", req.GrantType))
	}

	client, err := o.AuthenticateClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(req.GrantType) {
		return nil, ErrUnauthorizedClient.WithDescription("client may not use grant_type " + req.GrantType)
	}

	token, err := handler.CreateTokenResponse(ctx, client, req)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(req.GrantType).Inc()
	return newTokenResponse(token), nil
}

// HandleRevocationRequest authenticates the client and revokes the presented token.
func (o *OAuthService) HandleRevocationRequest(ctx context.Context, creds ClientCredentials, token, hint string) error {
	client, err := o.AuthenticateClient(ctx, creds)
	if err != nil {
		return err
	}
	if err := o.tokens.Revoke(ctx, client, token, hint); err != nil {
		return err
	}
	metrics.TokensRevoked.Inc()
	return nil
}
