// Package webhook verifies signed payment-confirmation deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the timestamp and signatures of a delivery.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is how far the signed timestamp may drift from the server clock.
const DefaultTolerance = 5 * time.Minute

const signatureScheme = "v1"

var (
	ErrInvalidHeader      = errors.New("webhook has invalid signature header")
	ErrNoValidSignature   = errors.New("webhook has no valid signature")
	ErrTimestampTolerance = errors.New("webhook timestamp is outside the tolerance zone")
	ErrMissingSecret      = errors.New("webhook secret is not configured")
)

// Verifier checks deliveries against a shared secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// ComputeSignature returns the hex HMAC-SHA256 of "timestamp.payload".
func ComputeSignature(secret []byte, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignHeader builds a signature header value for payload signed at timestamp.
func SignHeader(secret []byte, timestamp int64, payload []byte) string {
	return fmt.Sprintf("t=%d,%s=%s", timestamp, signatureScheme, ComputeSignature(secret, timestamp, payload))
}

// Verify checks that header carries a v1 signature of payload made with the
// secret, and that its timestamp is within tolerance.
func (v *Verifier) Verify(payload []byte, header string) error {
	if len(v.secret) == 0 {
		return ErrMissingSecret
	}

	timestamp, signatures, err := parseHeader(header)
	if err != nil {
		return err
	}

	expected, err := hex.DecodeString(ComputeSignature(v.secret, timestamp, payload))
	if err != nil {
		return err
	}

	valid := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return ErrNoValidSignature
	}

	signedAt := time.Unix(timestamp, 0)
	drift := v.now().Sub(signedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return ErrTimestampTolerance
	}
	return nil
}

func parseHeader(header string) (int64, [][]byte, error) {
	if header == "" {
		return 0, nil, ErrInvalidHeader
	}

	var (
		timestamp  int64
		signatures [][]byte
		err        error
	)
	for _, pair := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return 0, nil, ErrInvalidHeader
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidHeader
			}
		case signatureScheme:
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 {
		return 0, nil, ErrInvalidHeader
	}
	if len(signatures) == 0 {
		return 0, nil, ErrNoValidSignature
	}
	return timestamp, signatures, nil
}
