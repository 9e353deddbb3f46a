package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	log "github.com/sirupsen/logrus"
)

// DefaultAccessTokenTTL is the expires_in of every issued access token.
const DefaultAccessTokenTTL = time.Hour

// Token type hints accepted by the revocation endpoint (RFC 7009).
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// UserStore loads the users tokens and codes are bound to.
type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// TokenService issues, validates, refreshes and revokes bearer tokens.
type TokenService struct {
	store     TokenStore
	users     UserStore
	generate  oauth2.AccessGenerate
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenService(store TokenStore, users UserStore, generate oauth2.AccessGenerate, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = DefaultAccessTokenTTL
	}
	return &TokenService{
		store:     store,
		users:     users,
		generate:  generate,
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

// Issue mints an access token for user and, when the client may use the
// refresh_token grant, a refresh token alongside it.
func (s *TokenService) Issue(ctx context.Context, client *models.OAuthClient, user *models.User, scope Scope) (*models.OAuthToken, error) {
	now := s.now()
	withRefresh := client.AllowsGrantType(models.GrantTypeRefreshToken)

	access, refresh, err := s.generate.Token(ctx, &oauth2.GenerateBasic{
		Client:   client,
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		CreateAt: now,
	}, withRefresh)
	if err != nil {
		return nil, err
	}

	token := &models.OAuthToken{
		ClientID:    client.ID,
		UserID:      user.ID,
		AccessToken: access,
		Scope:       scope.String(),
		IssuedAt:    now,
		ExpiresIn:   int64(s.expiresIn / time.Second),
	}
	if withRefresh {
		token.RefreshToken = &refresh
	}

	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"user_id":   user.ID,
		"scope":     token.Scope,
		"refresh":   withRefresh,
	}).Info("Issued bearer token")
	return token, nil
}

// Validate checks a presented access token and returns it with the user it is bound to.
func (s *TokenService) Validate(ctx context.Context, access string, required Scope) (*models.OAuthToken, *models.User, error) {
	if access == "" {
		return nil, nil, ErrInvalidToken.WithDescription("missing access token")
	}

	token, err := s.store.GetByAccess(ctx, access)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken.WithDescription("unknown access token")
		}
		return nil, nil, err
	}

	if !token.IsAccessActive(s.now()) {
		return nil, nil, ErrInvalidToken.WithDescription("access token expired or revoked")
	}

	if !ParseScope(token.Scope).Contains(required) {
		return nil, nil, ErrInsufficientScope.WithDescription("token requires scope: " + required.String())
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil, ErrInvalidToken.WithDescription("token owner no longer exists")
		}
		return nil, nil, err
	}

	return token, user, nil
}

// ValidateOptional behaves like Validate but returns no token and no error
// when the caller presented no token at all.
func (s *TokenService) ValidateOptional(ctx context.Context, access string, required Scope) (*models.OAuthToken, *models.User, error) {
	if access == "" {
		return nil, nil, nil
	}
	return s.Validate(ctx, access, required)
}

// Refresh issues a new token pair from a refresh token that is still inside its
// window. The presented refresh token stays usable until the window closes.
func (s *TokenService) Refresh(ctx context.Context, client *models.OAuthClient, refresh string, requested string) (*models.OAuthToken, error) {
	if refresh == "" {
		return nil, ErrInvalidRequest.WithDescription("missing refresh_token")
	}

	token, err := s.store.GetByRefresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidGrant.WithDescription("unknown refresh token")
		}
		return nil, err
	}

	if token.ClientID != client.ID {
		return nil, ErrInvalidGrant.WithDescription("refresh token was issued to another client")
	}
	if !token.IsRefreshActive(s.now()) {
		return nil, ErrInvalidGrant.WithDescription("refresh token expired or revoked")
	}

	granted := ParseScope(token.Scope)
	scope := granted
	if requested != "" {
		scope = ParseScope(requested)
		if !granted.Contains(scope) {
			return nil, ErrInvalidScope.WithDescription("requested scope exceeds the original grant")
		}
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, ErrInvalidGrant.WithDescription("token owner no longer exists")
		}
		return nil, err
	}

	return s.Issue(ctx, client, user, scope)
}

// Revoke marks the token presented by client as revoked. Unknown tokens and
// tokens of other clients are ignored (RFC 7009 section 2.2).
func (s *TokenService) Revoke(ctx context.Context, client *models.OAuthClient, value, hint string) error {
	if value == "" {
		return ErrInvalidRequest.WithDescription("missing token")
	}

	lookups := []func(context.Context, string) (*models.OAuthToken, error){s.store.GetByAccess, s.store.GetByRefresh}
	if hint == TokenTypeHintRefreshToken {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}

	var token *models.OAuthToken
	for _, lookup := range lookups {
		found, err := lookup(ctx, value)
		if err == nil {
			token = found
			break
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	if token == nil || token.ClientID != client.ID || token.Revoked {
		return nil
	}

	if err := s.store.RevokeToken(ctx, token.ID); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"token_id":  token.ID,
	}).Info("Revoked bearer token")
	return nil
}
