package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/database"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/entitlement"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
)

const (
	bootstrapClientID     = "bootstrap"
	bootstrapClientSecret = "bootstrap-secret"
	testWebhookSecret     = "whsec_test"
	testRedirectURI       = "https://ex.com/cb"
)

var oobCodePattern = regexp.MustCompile(`<title>Success code=([^<]+)</title>`)

type testApp struct {
	router *gin.Engine
	user   *models.User
	issuer *entitlement.Issuer
}

func newTestApp(t *testing.T) *testApp {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedApplications(ctx, db, database.DevelopmentApplications))

	users := services.NewUserService(db)
	clients := services.NewClientService(db)

	user, err := users.FindOrCreateUser(ctx, "alice")
	require.NoError(t, err)

	// The operator CLI registers the first client out of band.
	hashed, err := auth.HashClientSecret(bootstrapClientSecret)
	require.NoError(t, err)
	bootstrap := &models.OAuthClient{
		ID:       bootstrapClientID,
		Secret:   hashed,
		UserID:   user.ID,
		IssuedAt: time.Now(),
		Metadata: models.ClientMetadata{
			ClientName:   "Bootstrap",
			RedirectURIs: []string{models.OutOfBandRedirectURI},
			Scope:        "profile",
		},
	}
	bootstrap.Metadata.Normalize()
	require.NoError(t, clients.CreateClient(ctx, bootstrap))

	tokens := auth.NewTokenService(auth.NewGormTokenStore(db), users, auth.NewOpaqueAccessGenerate(), time.Hour)
	oauthService := auth.NewOAuthService(clients, users, auth.NewGormCodeStore(db), tokens, auth.Config{})

	keys, err := entitlement.NewKeyring(strings.Repeat("s", 32))
	require.NoError(t, err)
	ledger := entitlement.NewLedger(services.NewPurchaseService(db))
	issuer := entitlement.NewIssuer(keys, ledger, "")

	router := gin.New()
	RegisterRoutes(router, Dependencies{
		OAuth:        oauthService,
		Users:        users,
		Clients:      clients,
		Applications: services.NewApplicationService(db),
		Issuer:       issuer,
		Ledger:       ledger,
		Webhook:      webhook.NewVerifier(testWebhookSecret, 0),
	})

	return &testApp{router: router, user: user, issuer: issuer}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, path, body, bearer string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func consentForm(clientID, redirectURI, verifier string) url.Values {
	return url.Values{
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"scope":                 {"profile"},
		"state":                 {"xyz"},
		"code_challenge":        {xoauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"S256"},
	}
}

func (a *testApp) exchangeCode(t *testing.T, clientID, secret, code, redirectURI, verifier string) auth.TokenResponse {
	req := formRequest("/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
	})
	req.SetBasicAuth(url.QueryEscape(clientID), url.QueryEscape(secret))
	w := a.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// bootstrapToken runs the out-of-band flow for the operator-registered client.
func (a *testApp) bootstrapToken(t *testing.T) auth.TokenResponse {
	verifier := xoauth2.GenerateVerifier()
	form := consentForm(bootstrapClientID, models.OutOfBandRedirectURI, verifier)
	form.Set("confirm", "yes")
	form.Set("username", a.user.Username)

	w := a.do(formRequest("/oauth/authorize", form))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	match := oobCodePattern.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2)

	return a.exchangeCode(t, bootstrapClientID, bootstrapClientSecret, match[1], models.OutOfBandRedirectURI, verifier)
}

func TestAuthorizationCodeFlowEndToEnd(t *testing.T) {
	app := newTestApp(t)
	bootstrap := app.bootstrapToken(t)

	// Register a client with a web redirect.
	w := app.do(jsonRequest(http.MethodPost, "/api/v1/clients", `{
		"client_name": "Example",
		"redirect_uris": ["https://ex.com/cb"],
		"grant_types": ["authorization_code", "refresh_token"],
		"scope": "profile"
	}`, bootstrap.AccessToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var registered ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.ClientID)
	require.NotEmpty(t, registered.ClientSecret)
	assert.Equal(t, models.AuthMethodClientSecretBasic, registered.TokenEndpointAuthMethod)

	// Consent screen data.
	verifier := xoauth2.GenerateVerifier()
	form := consentForm(registered.ClientID, testRedirectURI, verifier)
	w = app.do(httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+form.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view auth.ConsentView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Example", view.ClientName)
	assert.Equal(t, "profile", view.Scope)

	// User 1 approves.
	form.Set("confirm", "yes")
	form.Set("username", app.user.Username)
	w = app.do(formRequest("/oauth/authorize", form))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "ex.com", location.Host)
	assert.Equal(t, "xyz", location.Query().Get("state"))
	code := location.Query().Get("code")
	require.NotEmpty(t, code)

	token := app.exchangeCode(t, registered.ClientID, registered.ClientSecret, code, testRedirectURI, verifier)
	assert.NotEmpty(t, token.AccessToken)
	assert.NotEmpty(t, token.RefreshToken)

	// The code is single use.
	req := formRequest("/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {verifier},
	})
	req.SetBasicAuth(registered.ClientID, registered.ClientSecret)
	w = app.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_grant"`)

	// Profile of user 1.
	w = app.do(jsonRequest(http.MethodGet, "/api/me", "", token.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"username":"alice","stripe":""}`, app.user.ID), w.Body.String())

	// Revoke, then the token no longer works.
	req = formRequest("/oauth/revoke", url.Values{"token": {token.AccessToken}})
	req.SetBasicAuth(registered.ClientID, registered.ClientSecret)
	w = app.do(req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(jsonRequest(http.MethodGet, "/api/me", "", token.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_token"`)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestDenyRedirectsWithAccessDenied(t *testing.T) {
	app := newTestApp(t)

	form := consentForm(bootstrapClientID, models.OutOfBandRedirectURI, xoauth2.GenerateVerifier())
	form.Set("confirm", "no")
	w := app.do(formRequest("/oauth/authorize", form))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Error error=access_denied</title>")
}

func TestTokenEndpointClientAuthentication(t *testing.T) {
	app := newTestApp(t)

	testCases := []struct {
		name       string
		setup      func(req *http.Request)
		form       url.Values
		wantStatus int
		wantError  string
		wantHeader bool
	}{
		{
			name:       "wrong basic secret",
			setup:      func(req *http.Request) { req.SetBasicAuth(bootstrapClientID, "wrong") },
			form:       url.Values{"grant_type": {"authorization_code"}, "code": {"x"}},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_client",
			wantHeader: true,
		},
		{
			name:       "post method not registered",
			form:       url.Values{"grant_type": {"authorization_code"}, "client_id": {bootstrapClientID}, "client_secret": {bootstrapClientSecret}},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_client",
		},
		{
			name:       "unsupported grant",
			setup:      func(req *http.Request) { req.SetBasicAuth(bootstrapClientID, bootstrapClientSecret) },
			form:       url.Values{"grant_type": {"password"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported_grant_type",
		},
		{
			name:       "unknown code",
			setup:      func(req *http.Request) { req.SetBasicAuth(bootstrapClientID, bootstrapClientSecret) },
			form:       url.Values{"grant_type": {"authorization_code"}, "code": {"nope"}, "code_verifier": {xoauth2.GenerateVerifier()}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_grant",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := formRequest("/oauth/token", tt.form)
			if tt.setup != nil {
				tt.setup(req)
			}
			w := app.do(req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error":"`+tt.wantError+`"`)
			if tt.wantHeader {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func signedPaymentEvent(t *testing.T, payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, webhook.SignHeader([]byte(testWebhookSecret), time.Now().Unix(), []byte(payload)))
	return req
}

func TestPaymentToEntitlementEndToEnd(t *testing.T) {
	app := newTestApp(t)
	payload := fmt.Sprintf(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"metadata":{"app_id":"app1","user_id":%d}}}}`, app.user.ID)

	w := app.do(signedPaymentEvent(t, payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true,"recorded":true}`, w.Body.String())

	// Redelivery is acknowledged without a second purchase.
	w = app.do(signedPaymentEvent(t, payload))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"recorded":false}`, w.Body.String())

	bearer := app.bootstrapToken(t).AccessToken
	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements", `{"ids":["app1","app2"]}`, bearer))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result entitlement.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"app2"}, result.Denied)
	require.Contains(t, result.Tokens, "app1")
	assert.Len(t, result.Tokens, 1)

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements/verify",
		fmt.Sprintf(`{"token":%q}`, result.Tokens["app1"]), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verified VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.Equal(t, fmt.Sprintf("users/%d", app.user.ID), verified.Subject)
	assert.Equal(t, []string{"app1"}, verified.Prefixes)
	assert.Equal(t, entitlement.DefaultIssuer, verified.Issuer)
}

func TestAnonymousEntitlements(t *testing.T) {
	app := newTestApp(t)
	anonID := "0f8fad5b-d9cb-469f-a165-70867728950e"

	payload := fmt.Sprintf(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"metadata":{"app_id":"app2","anon_id":%q}}}}`, anonID)
	w := app.do(signedPaymentEvent(t, payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements",
		fmt.Sprintf(`{"ids":["app1","app2"],"anon_id":%q}`, anonID), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result entitlement.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"app1"}, result.Denied)
	require.Contains(t, result.Tokens, "app2")

	claims, err := app.issuer.Verify(result.Tokens["app2"])
	require.NoError(t, err)
	assert.Equal(t, "anonymous/"+anonID, claims.Subject)

	// Neither a bearer token nor an anonymous id.
	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements", `{"ids":["app1"]}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// An invalid bearer token is rejected rather than treated as anonymous.
	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements", `{"ids":["app1"]}`, "not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrialEntitlement(t *testing.T) {
	app := newTestApp(t)

	w := app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements/trial", `{"id":"app1"}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err := app.issuer.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, entitlement.TrialSubject, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(entitlement.TrialTTL), claims.ExpiresAt.Time, 5*time.Second)

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements/trial", `{}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/entitlements/verify", `{"token":"garbage"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhookRejections(t *testing.T) {
	app := newTestApp(t)

	testCases := []struct {
		name      string
		payload   string
		signature func(payload string) string
		wantCode  int
		wantBody  string
	}{
		{
			name:    "bad signature",
			payload: `{"id":"evt","type":"payment_intent.succeeded"}`,
			signature: func(payload string) string {
				return webhook.SignHeader([]byte("other"), time.Now().Unix(), []byte(payload))
			},
			wantCode: http.StatusBadRequest,
			wantBody: models.ErrInvalidSignature,
		},
		{
			name:    "stale timestamp",
			payload: `{"id":"evt","type":"payment_intent.succeeded"}`,
			signature: func(payload string) string {
				return webhook.SignHeader([]byte(testWebhookSecret), time.Now().Add(-time.Hour).Unix(), []byte(payload))
			},
			wantCode: http.StatusBadRequest,
			wantBody: models.ErrInvalidSignature,
		},
		{
			name:     "missing header",
			payload:  `{"id":"evt","type":"payment_intent.succeeded"}`,
			wantCode: http.StatusBadRequest,
			wantBody: models.ErrInvalidSignature,
		},
		{
			name:     "both purchaser ids",
			payload:  `{"id":"evt","type":"payment_intent.succeeded","data":{"object":{"metadata":{"app_id":"app1","user_id":"1","anon_id":"0f8fad5b-d9cb-469f-a165-70867728950e"}}}}`,
			wantCode: http.StatusBadRequest,
			wantBody: models.ErrMalformedEvent,
		},
		{
			name:     "unhandled event type",
			payload:  `{"id":"evt","type":"charge.refunded"}`,
			wantCode: http.StatusOK,
			wantBody: `"recorded":false`,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(tt.payload))
			switch {
			case tt.signature != nil:
				req.Header.Set(webhook.SignatureHeader, tt.signature(tt.payload))
			case tt.name != "missing header":
				req.Header.Set(webhook.SignatureHeader, webhook.SignHeader([]byte(testWebhookSecret), time.Now().Unix(), []byte(tt.payload)))
			}
			w := app.do(req)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestApplicationCatalog(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/api/v1/applications", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var apps []models.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apps))
	assert.Len(t, apps, len(database.DevelopmentApplications))

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/applications/app1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/applications/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrApplicationNotFound)
}

func TestClientManagementRequiresOwnership(t *testing.T) {
	app := newTestApp(t)
	bearer := app.bootstrapToken(t).AccessToken

	w := app.do(jsonRequest(http.MethodPost, "/api/v1/clients", `{"client_name":"Public","redirect_uris":["https://ex.com/cb"],"token_endpoint_auth_method":"none"}`, bearer))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.Empty(t, registered.ClientSecret)

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/clients", `{"client_name":"Bad","redirect_uris":["/relative"]}`, bearer))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(jsonRequest(http.MethodGet, "/api/v1/clients", "", bearer))
	require.Equal(t, http.StatusOK, w.Code)
	var owned []models.OAuthClient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &owned))
	assert.Len(t, owned, 2)

	w = app.do(jsonRequest(http.MethodDelete, "/api/v1/clients/"+registered.ClientID, "", bearer))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(jsonRequest(http.MethodDelete, "/api/v1/clients/"+registered.ClientID, "", bearer))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(jsonRequest(http.MethodGet, "/api/v1/clients", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeletedClientTokensStopWorking(t *testing.T) {
	app := newTestApp(t)
	bearer := app.bootstrapToken(t).AccessToken

	w := app.do(jsonRequest(http.MethodPost, "/api/v1/clients", `{
		"client_name": "Short Lived",
		"redirect_uris": ["https://ex.com/cb"],
		"scope": "profile"
	}`, bearer))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))

	verifier := xoauth2.GenerateVerifier()
	form := consentForm(registered.ClientID, testRedirectURI, verifier)
	form.Set("confirm", "yes")
	form.Set("username", app.user.Username)
	w = app.do(formRequest("/oauth/authorize", form))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)

	issued := app.exchangeCode(t, registered.ClientID, registered.ClientSecret, location.Query().Get("code"), testRedirectURI, verifier)

	w = app.do(jsonRequest(http.MethodGet, "/api/me", "", issued.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(jsonRequest(http.MethodDelete, "/api/v1/clients/"+registered.ClientID, "", bearer))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(jsonRequest(http.MethodGet, "/api/me", "", issued.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the operator's own client is untouched
	w = app.do(jsonRequest(http.MethodGet, "/api/me", "", bearer))
	assert.Equal(t, http.StatusOK, w.Code)
}
