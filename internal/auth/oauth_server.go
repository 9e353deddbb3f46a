package auth

import (
	"context"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/go-oauth2/oauth2/v4"
)

// DefaultCodeTTL bounds how long an authorization code may wait for redemption.
const DefaultCodeTTL = 5 * time.Minute

// ClientStore loads registered clients.
type ClientStore interface {
	GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error)
}

type Config struct {
	CodeTTL time.Duration
}

// OAuthService is the authorization server: consent, code redemption, token
// issuance and revocation.
type OAuthService struct {
	clients      ClientStore
	users        UserStore
	codes        CodeStore
	tokens       *TokenService
	codeGenerate oauth2.AuthorizeGenerate
	codeTTL      time.Duration
	now          func() time.Time

	grantTypes    map[oauth2.GrantType]GrantHandler
	responseTypes map[oauth2.ResponseType]ResponseTypeHandler
}

func NewOAuthService(clients ClientStore, users UserStore, codes CodeStore, tokens *TokenService, cfg Config) *OAuthService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}

	o := &OAuthService{
		clients:      clients,
		users:        users,
		codes:        codes,
		tokens:       tokens,
		codeGenerate: NewOpaqueAuthorizeGenerate(),
		codeTTL:      cfg.CodeTTL,
		now:          time.Now,
	}

	o.grantTypes = map[oauth2.GrantType]GrantHandler{
		oauth2.AuthorizationCode: authorizationCodeGrant{o},
		oauth2.Refreshing:        refreshTokenGrant{o},
	}
	o.responseTypes = map[oauth2.ResponseType]ResponseTypeHandler{
		oauth2.Code: codeResponseType{o},
	}
	return o
}

// Tokens exposes the token service for bearer validation by resource endpoints.
func (o *OAuthService) Tokens() *TokenService {
	return o.tokens
}
