package entitlement

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the shortest HMAC secret accepted for signing entitlements.
const MinKeyLength = 32

var ErrNoSigningKey = errors.New("no entitlement signing key configured")

type signingKey struct {
	id     string
	secret []byte
}

// Keyring is an ordered list of HMAC secrets. The first key signs; every key
// verifies, so a new key can be prepended before the old one is retired.
type Keyring struct {
	keys []signingKey
}

// NewKeyring builds a keyring from secrets in priority order.
func NewKeyring(secrets ...string) (*Keyring, error) {
	k := &Keyring{}
	for i, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		if len(secret) < MinKeyLength {
			return nil, fmt.Errorf("signing key %d is shorter than %d characters", i, MinKeyLength)
		}
		k.keys = append(k.keys, signingKey{id: keyID(secret), secret: []byte(secret)})
	}
	if len(k.keys) == 0 {
		return nil, ErrNoSigningKey
	}
	return k, nil
}

// ParseKeyring reads a comma separated list of secrets.
func ParseKeyring(list string) (*Keyring, error) {
	return NewKeyring(strings.Split(list, ",")...)
}

// keyID derives a stable, non-secret identifier for the kid header.
func keyID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}

// Sign signs claims with the primary key using HS256.
func (k *Keyring) Sign(claims jwt.Claims) (string, error) {
	primary := k.keys[0]
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = primary.id
	return token.SignedString(primary.secret)
}

// Keyfunc selects the key named by the kid header and falls back to trying
// every key when the header is absent or unknown.
func (k *Keyring) Keyfunc(token *jwt.Token) (interface{}, error) {
	if kid, ok := token.Header["kid"].(string); ok {
		for _, key := range k.keys {
			if key.id == kid {
				return key.secret, nil
			}
		}
	}

	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(k.keys))}
	for _, key := range k.keys {
		set.Keys = append(set.Keys, key.secret)
	}
	return set, nil
}

// Len returns the number of keys that verify signatures.
func (k *Keyring) Len() int {
	return len(k.keys)
}
