package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	log "github.com/sirupsen/logrus"
)

// AuthorizeRequest holds the parameters of an authorization request (RFC 6749 section 4.1.1, RFC 7636 section 4.3).
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ConsentView is a validated authorization request awaiting the end user's decision.
type ConsentView struct {
	ClientID     string `json:"client_id"`
	ClientName   string `json:"client_name"`
	ClientURI    string `json:"client_uri,omitempty"`
	RedirectURI  string `json:"redirect_uri"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope"`
	State        string `json:"state,omitempty"`

	client  *models.OAuthClient
	request AuthorizeRequest
}

// AuthorizationResponse tells the HTTP layer how to answer the consent decision:
// a redirect when RedirectURI is set, otherwise Body with Status.
type AuthorizationResponse struct {
	Status      int
	RedirectURI string
	Body        string
}

// RedeemedGrant is what a successfully redeemed authorization code was bound to.
type RedeemedGrant struct {
	ClientID    string
	User        *models.User
	Scope       Scope
	RedirectURI string
}

// ValidateConsentRequest checks an authorization request before the end user is asked for consent.
func (o *OAuthService) ValidateConsentRequest(ctx context.Context, req AuthorizeRequest) (*ConsentView, error) {
	client, err := o.lookupClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = client.DefaultRedirectURI()
		if redirectURI == "" {
			return nil, ErrInvalidRedirectURI.WithDescription("missing redirect_uri")
		}
	} else if !client.HasRedirectURI(redirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	if _, ok := o.responseTypes[oauth2.ResponseType(req.ResponseType)]; !ok {
		return nil, ErrUnsupportedResponseType.WithDescription(fmt.Sprintf("response_type %q is not supported", req.ResponseType))
	}
	if !client.AllowsResponseType(req.ResponseType) {
		return nil, ErrUnauthorizedClient.WithDescription("client may not use response_type " + req.ResponseType)
	}

	// An empty request gets the client's registered scope.
	registered := ParseScope(client.Metadata.Scope)
	scope := ParseScope(req.Scope)
	if scope.IsEmpty() {
		scope = registered
	} else if !registered.Contains(scope) {
		return nil, ErrInvalidScope.WithDescription("requested scope exceeds the client's registered scope")
	}

	if err := ValidateCodeChallenge(req.CodeChallenge, req.CodeChallengeMethod); err != nil {
		return nil, err
	}

	return &ConsentView{
		ClientID:     client.ID,
		ClientName:   client.Metadata.ClientName,
		ClientURI:    client.Metadata.ClientURI,
		RedirectURI:  redirectURI,
		ResponseType: req.ResponseType,
		Scope:        scope.String(),
		State:        req.State,
		client:       client,
		request:      req,
	}, nil
}

// CreateAuthorizationResponse completes a consent request. A nil user means the
// end user declined.
func (o *OAuthService) CreateAuthorizationResponse(ctx context.Context, user *models.User, view *ConsentView) (*AuthorizationResponse, error) {
	if user == nil {
		return o.Deny(view), nil
	}
	handler, ok := o.responseTypes[oauth2.ResponseType(view.ResponseType)]
	if !ok {
		return nil, ErrUnsupportedResponseType
	}
	return handler.CreateAuthorizationResponse(ctx, user, view)
}

// Approve issues and persists an authorization code for the consenting user.
func (o *OAuthService) Approve(ctx context.Context, user *models.User, view *ConsentView) (*models.OAuthCode, error) {
	now := o.now()
	value, err := o.codeGenerate.Token(ctx, &oauth2.GenerateBasic{
		Client:   view.client,
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		CreateAt: now,
	})
	if err != nil {
		return nil, err
	}

	code := &models.OAuthCode{
		Code:                value,
		ClientID:            view.ClientID,
		UserID:              user.ID,
		RedirectURI:         view.request.RedirectURI,
		Scope:               view.Scope,
		CodeChallenge:       view.request.CodeChallenge,
		CodeChallengeMethod: view.request.CodeChallengeMethod,
		AuthTime:            now,
		ExpiresAt:           now.Add(o.codeTTL),
	}
	if err := o.codes.CreateCode(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to store authorization code: %w", err)
	}

	metrics.AuthorizationCodesIssued.Inc()
	log.WithFields(log.Fields{
		"client_id": view.ClientID,
		"user_id":   user.ID,
		"scope":     code.Scope,
	}).Info("Issued authorization code")
	return code, nil
}

// Deny sends the client an access_denied error without a code.
func (o *OAuthService) Deny(view *ConsentView) *AuthorizationResponse {
	if view.RedirectURI == models.OutOfBandRedirectURI {
		return &AuthorizationResponse{
			Status: http.StatusForbidden,
			Body:   fmt.Sprintf("<title>Error error=%s</title>", models.ErrAccessDenied),
		}
	}
	params := url.Values{"error": {models.ErrAccessDenied}}
	if view.State != "" {
		params.Set("state", view.State)
	}
	return &AuthorizationResponse{
		Status:      http.StatusFound,
		RedirectURI: appendQuery(view.RedirectURI, params),
	}
}

// Redeem exchanges an authorization code for the grant it is bound to. The code
// is removed only when redemption succeeds; an expired code is removed on sight.
func (o *OAuthService) Redeem(ctx context.Context, client *models.OAuthClient, code, redirectURI, verifier string) (*RedeemedGrant, error) {
	if code == "" {
		return nil, ErrInvalidRequest.WithDescription("missing code")
	}

	stored, err := o.codes.GetCode(ctx, code, client.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidGrant.WithDescription("invalid authorization code")
		}
		return nil, err
	}

	if stored.IsExpired(o.now()) {
		if _, err := o.codes.RemoveCode(ctx, code, client.ID); err != nil {
			log.WithError(err).WithField("client_id", client.ID).Warn("Failed to remove expired authorization code")
		}
		return nil, ErrInvalidGrant.WithDescription("authorization code expired")
	}

	if stored.RedirectURI != "" && stored.RedirectURI != redirectURI {
		return nil, ErrInvalidGrant.WithDescription("redirect_uri does not match the authorization request")
	}

	if !VerifyCodeChallenge(stored.CodeChallenge, stored.CodeChallengeMethod, verifier) {
		return nil, ErrInvalidGrant.WithDescription("code_verifier does not match code_challenge")
	}

	user, err := o.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, ErrInvalidGrant.WithDescription("granting user no longer exists")
		}
		return nil, err
	}

	removed, err := o.codes.RemoveCode(ctx, code, client.ID)
	if err != nil {
		log.WithError(err).WithField("client_id", client.ID).Error("Failed to remove redeemed authorization code")
		return nil, ErrInvalidGrant.WithDescription("authorization code could not be consumed")
	}
	if !removed {
		return nil, ErrInvalidGrant.WithDescription("authorization code already used")
	}

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"user_id":   user.ID,
	}).Info("Redeemed authorization code")

	return &RedeemedGrant{
		ClientID:    client.ID,
		User:        user,
		Scope:       ParseScope(stored.Scope),
		RedirectURI: stored.RedirectURI,
	}, nil
}

func (o *OAuthService) lookupClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	if clientID == "" {
		return nil, ErrInvalidClient.WithDescription("missing client_id")
	}
	client, err := o.clients.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, ErrInvalidClient.WithDescription("unknown client")
		}
		return nil, err
	}
	return client, nil
}

func appendQuery(uri string, params url.Values) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
