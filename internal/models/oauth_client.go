package models

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// OutOfBandRedirectURI is the redirect target for clients that cannot receive a browser redirect.
const OutOfBandRedirectURI = "urn:ietf:wg:oauth:2.0:oob"

// Token endpoint authentication methods (RFC 7591)
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
)

// Grant and response types a client may register.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	ResponseTypeCode           = "code"
)

// ClientMetadata is the registration record of a client (RFC 7591 field names).
type ClientMetadata struct {
	ClientName              string   `json:"client_name" binding:"required"`
	ClientURI               string   `json:"client_uri"`
	GrantTypes              []string `json:"grant_types" gorm:"serializer:json"`
	RedirectURIs            []string `json:"redirect_uris" gorm:"serializer:json"`
	ResponseTypes           []string `json:"response_types" gorm:"serializer:json"`
	Scope                   string   `json:"scope"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// Normalize fills registration defaults.
func (m *ClientMetadata) Normalize() {
	if m.TokenEndpointAuthMethod == "" {
		m.TokenEndpointAuthMethod = AuthMethodClientSecretBasic
	}
	if len(m.GrantTypes) == 0 {
		m.GrantTypes = []string{GrantTypeAuthorizationCode}
	}
	if len(m.ResponseTypes) == 0 {
		m.ResponseTypes = []string{ResponseTypeCode}
	}
}

// Validate checks the metadata against what this server supports.
func (m *ClientMetadata) Validate() error {
	if m.ClientName == "" {
		return errors.New("client_name is required")
	}
	if len(m.RedirectURIs) == 0 {
		return errors.New("at least one redirect_uri is required")
	}
	for _, uri := range m.RedirectURIs {
		if uri == OutOfBandRedirectURI {
			continue
		}
		parsed, err := url.Parse(uri)
		if err != nil || !parsed.IsAbs() || parsed.Fragment != "" {
			return fmt.Errorf("invalid redirect_uri %q", uri)
		}
	}
	for _, gt := range m.GrantTypes {
		if gt != GrantTypeAuthorizationCode && gt != GrantTypeRefreshToken {
			return fmt.Errorf("unsupported grant_type %q", gt)
		}
	}
	for _, rt := range m.ResponseTypes {
		if rt != ResponseTypeCode {
			return fmt.Errorf("unsupported response_type %q", rt)
		}
	}
	switch m.TokenEndpointAuthMethod {
	case AuthMethodNone, AuthMethodClientSecretBasic, AuthMethodClientSecretPost:
	default:
		return fmt.Errorf("unsupported token_endpoint_auth_method %q", m.TokenEndpointAuthMethod)
	}
	return nil
}

// OAuthClient is a registered third-party application.
type OAuthClient struct {
	ID       string    `gorm:"primaryKey" json:"client_id"`
	Secret   string    `json:"-"` // bcrypt hash, empty for public clients
	UserID   uint      `gorm:"index;not null" json:"user_id"`
	IssuedAt time.Time `json:"client_id_issued_at"`

	Metadata ClientMetadata `gorm:"embedded" json:"metadata"`

	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

// HasRedirectURI reports whether uri is one of the registered redirect URIs.
func (c *OAuthClient) HasRedirectURI(uri string) bool {
	return slices.Contains(c.Metadata.RedirectURIs, uri)
}

// DefaultRedirectURI returns the only registered redirect URI, or "" when there are several.
func (c *OAuthClient) DefaultRedirectURI() string {
	if len(c.Metadata.RedirectURIs) == 1 {
		return c.Metadata.RedirectURIs[0]
	}
	return ""
}

func (c *OAuthClient) AllowsGrantType(grantType string) bool {
	return slices.Contains(c.Metadata.GrantTypes, grantType)
}

func (c *OAuthClient) AllowsResponseType(responseType string) bool {
	return slices.Contains(c.Metadata.ResponseTypes, responseType)
}

// The methods below satisfy oauth2.ClientInfo.

func (c *OAuthClient) GetID() string {
	return c.ID
}

func (c *OAuthClient) GetSecret() string {
	return c.Secret
}

func (c *OAuthClient) GetDomain() string {
	return c.Metadata.ClientURI
}

func (c *OAuthClient) IsPublic() bool {
	return c.Metadata.TokenEndpointAuthMethod == AuthMethodNone
}

func (c *OAuthClient) GetUserID() string {
	return strconv.FormatUint(uint64(c.UserID), 10)
}
