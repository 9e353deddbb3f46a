package auth

import (
	"crypto/subtle"
	"regexp"

	"github.com/go-oauth2/oauth2/v4"
	xoauth2 "golang.org/x/oauth2"
)

// RFC 7636 section 4.1: 43 to 128 characters from the unreserved set.
var pkceValuePattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// ValidateCodeChallenge checks the challenge sent with an authorization request.
// A challenge is mandatory; an empty method means plain.
func ValidateCodeChallenge(challenge, method string) error {
	if challenge == "" {
		return ErrInvalidRequest.WithDescription("missing code_challenge")
	}
	if !pkceValuePattern.MatchString(challenge) {
		return ErrInvalidRequest.WithDescription("invalid code_challenge")
	}
	switch oauth2.CodeChallengeMethod(method) {
	case "", oauth2.CodeChallengePlain, oauth2.CodeChallengeS256:
		return nil
	default:
		return ErrInvalidRequest.WithDescription("unsupported code_challenge_method")
	}
}

// VerifyCodeChallenge reports whether verifier proves possession for the stored challenge.
// It fails closed on a missing challenge, a malformed verifier or an unknown method.
func VerifyCodeChallenge(challenge, method, verifier string) bool {
	if challenge == "" || !pkceValuePattern.MatchString(verifier) {
		return false
	}

	var expected string
	switch oauth2.CodeChallengeMethod(method) {
	case "", oauth2.CodeChallengePlain:
		expected = verifier
	case oauth2.CodeChallengeS256:
		expected = xoauth2.S256ChallengeFromVerifier(verifier)
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}
