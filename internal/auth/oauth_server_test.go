package auth

import (
	"context"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testRedirectURI  = "https://ex.com/cb"
	testClientSecret = "test_secret"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.OAuthClient{}, &models.OAuthCode{}, &models.OAuthToken{})
	require.NoError(t, err)

	return db
}

type testServer struct {
	db     *gorm.DB
	oauth  *OAuthService
	tokens *TokenService
	user   *models.User
	client *models.OAuthClient
}

func newTestServer(t *testing.T) *testServer {
	db := setupTestDB(t)
	ctx := context.Background()

	users := services.NewUserService(db)
	clients := services.NewClientService(db)

	user, err := users.FindOrCreateUser(ctx, "alice")
	require.NoError(t, err)

	hashed, err := HashClientSecret(testClientSecret)
	require.NoError(t, err)

	client := &models.OAuthClient{
		ID:       "test_client",
		Secret:   hashed,
		UserID:   user.ID,
		IssuedAt: time.Now(),
		Metadata: models.ClientMetadata{
			ClientName:   "Test App",
			RedirectURIs: []string{testRedirectURI, models.OutOfBandRedirectURI},
			GrantTypes:   []string{models.GrantTypeAuthorizationCode, models.GrantTypeRefreshToken},
			Scope:        "profile entitlements",
		},
	}
	client.Metadata.Normalize()
	require.NoError(t, clients.CreateClient(ctx, client))

	tokens := NewTokenService(NewGormTokenStore(db), users, NewOpaqueAccessGenerate(), time.Hour)
	oauth := NewOAuthService(clients, users, NewGormCodeStore(db), tokens, Config{})

	return &testServer{db: db, oauth: oauth, tokens: tokens, user: user, client: client}
}

// basicCreds returns credentials for the test client as sent via HTTP Basic.
func basicCreds() ClientCredentials {
	return ClientCredentials{ClientID: "test_client", ClientSecret: testClientSecret, Method: models.AuthMethodClientSecretBasic}
}

func (s *testServer) consent(t *testing.T, verifier string) *ConsentView {
	view, err := s.oauth.ValidateConsentRequest(context.Background(), AuthorizeRequest{
		ClientID:            s.client.ID,
		RedirectURI:         testRedirectURI,
		ResponseType:        "code",
		Scope:               "profile",
		State:               "xyz",
		CodeChallenge:       xoauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	return view
}

func TestOAuthServerInitialization(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.oauth)
	assert.Equal(t, s.tokens, s.oauth.Tokens())
	assert.Equal(t, DefaultCodeTTL, s.oauth.codeTTL)
	assert.Contains(t, s.oauth.grantTypes, oauth2.AuthorizationCode)
	assert.Contains(t, s.oauth.grantTypes, oauth2.Refreshing)
	assert.Contains(t, s.oauth.responseTypes, oauth2.Code)
}

func TestHandleTokenRequestAuthorizationCode(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	verifier := xoauth2.GenerateVerifier()

	code, err := s.oauth.Approve(ctx, s.user, s.consent(t, verifier))
	require.NoError(t, err)

	resp, err := s.oauth.HandleTokenRequest(ctx, basicCreds(), TokenRequest{
		GrantType:    "authorization_code",
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: verifier,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "profile", resp.Scope)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)

	_, user, err := s.tokens.Validate(ctx, resp.AccessToken, ParseScope("profile"))
	require.NoError(t, err)
	assert.Equal(t, s.user.ID, user.ID)

	refreshed, err := s.oauth.HandleTokenRequest(ctx, basicCreds(), TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: resp.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, resp.AccessToken, refreshed.AccessToken)
	assert.Equal(t, "profile", refreshed.Scope)
}

func TestHandleTokenRequestErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.oauth.HandleTokenRequest(ctx, basicCreds(), TokenRequest{GrantType: "password"})
	assert.ErrorIs(t, err, ErrUnsupportedGrantType)

	_, err = s.oauth.HandleTokenRequest(ctx, basicCreds(), TokenRequest{GrantType: "client_credentials"})
	assert.ErrorIs(t, err, ErrUnsupportedGrantType)

	_, err = s.oauth.HandleTokenRequest(ctx, basicCreds(), TokenRequest{GrantType: "authorization_code", Code: "nope"})
	assert.ErrorIs(t, err, ErrInvalidGrant)

	bad := basicCreds()
	bad.ClientSecret = "wrong"
	_, err = s.oauth.HandleTokenRequest(ctx, bad, TokenRequest{GrantType: "authorization_code", Code: "nope"})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestRefreshGrantNotAllowed(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	hashed, err := HashClientSecret(testClientSecret)
	require.NoError(t, err)
	codeOnly := &models.OAuthClient{
		ID:     "code_only",
		Secret: hashed,
		UserID: s.user.ID,
		Metadata: models.ClientMetadata{
			ClientName:   "Code Only",
			RedirectURIs: []string{testRedirectURI},
			Scope:        "profile",
		},
	}
	codeOnly.Metadata.Normalize()
	require.NoError(t, services.NewClientService(s.db).CreateClient(ctx, codeOnly))

	creds := ClientCredentials{ClientID: "code_only", ClientSecret: testClientSecret, Method: models.AuthMethodClientSecretBasic}
	_, err = s.oauth.HandleTokenRequest(ctx, creds, TokenRequest{GrantType: "refresh_token", RefreshToken: "x"})
	assert.ErrorIs(t, err, ErrUnauthorizedClient)

	token, err := s.tokens.Issue(ctx, codeOnly, s.user, ParseScope("profile"))
	require.NoError(t, err)
	assert.Nil(t, token.RefreshToken)
}

func TestHandleRevocationRequest(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	token, err := s.tokens.Issue(ctx, s.client, s.user, ParseScope("profile"))
	require.NoError(t, err)

	require.NoError(t, s.oauth.HandleRevocationRequest(ctx, basicCreds(), token.AccessToken, ""))

	_, _, err = s.tokens.Validate(ctx, token.AccessToken, nil)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Revoking again, or revoking garbage, is not an error.
	assert.NoError(t, s.oauth.HandleRevocationRequest(ctx, basicCreds(), token.AccessToken, ""))
	assert.NoError(t, s.oauth.HandleRevocationRequest(ctx, basicCreds(), "unknown", TokenTypeHintRefreshToken))
}
