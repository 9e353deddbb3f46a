package models

import (
	"time"
)

// OAuthCode is a one-time authorization code bound to a client, user, redirect URI and PKCE challenge.
type OAuthCode struct {
	Code                string    `gorm:"primaryKey" json:"code"`
	ClientID            string    `gorm:"index;not null" json:"client_id"`
	UserID              uint      `gorm:"not null" json:"user_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	CodeChallenge       string    `gorm:"not null" json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	AuthTime            time.Time `gorm:"not null" json:"auth_time"`
	ExpiresAt           time.Time `gorm:"not null;index" json:"expires_at"`
}

func (OAuthCode) TableName() string {
	return "oauth_codes"
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (c *OAuthCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
