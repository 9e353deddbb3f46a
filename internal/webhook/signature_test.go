package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	secret := []byte("whsec_test")
	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	now := time.Unix(1700000000, 0)

	v := NewVerifier(string(secret), 0)
	v.now = func() time.Time { return now }

	testCases := []struct {
		name    string
		header  string
		payload []byte
		wantErr error
	}{
		{
			name:   "valid signature",
			header: SignHeader(secret, now.Unix(), payload),
		},
		{
			name:   "valid among several signatures",
			header: fmt.Sprintf("t=%d,v1=deadbeef,v1=%s,v0=abc", now.Unix(), ComputeSignature(secret, now.Unix(), payload)),
		},
		{
			name:   "within tolerance",
			header: SignHeader(secret, now.Add(-4*time.Minute).Unix(), payload),
		},
		{
			name:    "outside tolerance",
			header:  SignHeader(secret, now.Add(-6*time.Minute).Unix(), payload),
			wantErr: ErrTimestampTolerance,
		},
		{
			name:    "wrong secret",
			header:  SignHeader([]byte("other"), now.Unix(), payload),
			wantErr: ErrNoValidSignature,
		},
		{
			name:    "tampered payload",
			header:  SignHeader(secret, now.Unix(), payload),
			payload: []byte(`{"type":"payment_intent.canceled"}`),
			wantErr: ErrNoValidSignature,
		},
		{
			name:    "no v1 signature",
			header:  fmt.Sprintf("t=%d,v0=abc", now.Unix()),
			wantErr: ErrNoValidSignature,
		},
		{
			name:    "missing timestamp",
			header:  "v1=" + ComputeSignature(secret, now.Unix(), payload),
			wantErr: ErrInvalidHeader,
		},
		{
			name:    "empty header",
			wantErr: ErrInvalidHeader,
		},
		{
			name:    "garbage header",
			header:  "garbage",
			wantErr: ErrInvalidHeader,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			body := payload
			if tt.payload != nil {
				body = tt.payload
			}
			err := v.Verify(body, tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifyWithoutSecret(t *testing.T) {
	v := NewVerifier("", time.Minute)
	assert.ErrorIs(t, v.Verify([]byte("{}"), "t=1,v1=00"), ErrMissingSecret)
}
