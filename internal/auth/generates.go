package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/go-oauth2/oauth2/v4"
)

const (
	// DefaultCodeBytes gives 384 bits of entropy per authorization code.
	DefaultCodeBytes  = 48
	DefaultTokenBytes = 48
)

var (
	_ oauth2.AccessGenerate    = (*OpaqueAccessGenerate)(nil)
	_ oauth2.AuthorizeGenerate = (*OpaqueAuthorizeGenerate)(nil)
)

// OpaqueAccessGenerate generates random, URL-safe access and refresh tokens.
// The values carry no claims; every lookup goes through the token store.
type OpaqueAccessGenerate struct {
	Bytes int
}

func NewOpaqueAccessGenerate() *OpaqueAccessGenerate {
	return &OpaqueAccessGenerate{Bytes: DefaultTokenBytes}
}

// Token is called with the client and user the token is minted for.
func (g *OpaqueAccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	if data == nil || data.Client == nil {
		return "", "", fmt.Errorf("cannot generate token: no client")
	}

	access, err := randomToken(g.Bytes)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		refresh, err = randomToken(g.Bytes)
		if err != nil {
			return "", "", err
		}
	}

	return access, refresh, nil
}

// OpaqueAuthorizeGenerate generates authorization codes.
type OpaqueAuthorizeGenerate struct {
	Bytes int
}

func NewOpaqueAuthorizeGenerate() *OpaqueAuthorizeGenerate {
	return &OpaqueAuthorizeGenerate{Bytes: DefaultCodeBytes}
}

func (g *OpaqueAuthorizeGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic) (string, error) {
	return randomToken(g.Bytes)
}

// randomToken returns n bytes from crypto/rand, base64url encoded without padding.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateClientSecret returns a new client secret in plain text.
func GenerateClientSecret() (string, error) {
	return randomToken(36)
}
