package auth

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ClientCredentials is what the caller presented to authenticate at the token
// or revocation endpoint. Method is how it was presented.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	Method       string
}

// HashClientSecret returns the bcrypt hash stored for a client secret.
func HashClientSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// AuthenticateClient resolves the client and checks the presented credentials
// against its registered token_endpoint_auth_method.
func (o *OAuthService) AuthenticateClient(ctx context.Context, creds ClientCredentials) (*models.OAuthClient, error) {
	client, err := o.lookupClient(ctx, creds.ClientID)
	if err != nil {
		return nil, err
	}

	registered := client.Metadata.TokenEndpointAuthMethod
	if registered == "" {
		registered = models.AuthMethodClientSecretBasic
	}

	if registered == models.AuthMethodNone {
		if creds.ClientSecret != "" {
			return nil, ErrInvalidClient.WithDescription("public client must not present a secret")
		}
		return client, nil
	}

	if creds.Method != registered {
		return nil, ErrInvalidClient.WithDescription("client must authenticate with " + registered)
	}
	if creds.ClientSecret == "" {
		return nil, ErrInvalidClient.WithDescription("missing client_secret")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.Secret), []byte(creds.ClientSecret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidClient
		}
		return nil, ErrInvalidClient.WithDescription("client secret could not be verified")
	}
	return client, nil
}
