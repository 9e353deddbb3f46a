package models

import (
	"time"
)

type OAuthToken struct {
	ID           uint      `gorm:"primaryKey"`
	ClientID     string    `gorm:"index;not null"`
	UserID       uint      `gorm:"index;not null"`
	AccessToken  string    `gorm:"uniqueIndex;not null"`
	RefreshToken *string   `gorm:"uniqueIndex"` // nil when the client may not refresh
	Scope        string
	IssuedAt     time.Time `gorm:"not null"`
	ExpiresIn    int64     `gorm:"not null"` // seconds
	Revoked      bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

func (t *OAuthToken) AccessExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsAccessActive holds while issued_at + expires_in >= now and the token is not revoked.
func (t *OAuthToken) IsAccessActive(now time.Time) bool {
	return !t.Revoked && !now.After(t.AccessExpiresAt())
}

// IsRefreshActive holds while issued_at + 2*expires_in >= now and the token is not revoked.
// A used refresh token is not invalidated; this window is the only bound on reuse.
func (t *OAuthToken) IsRefreshActive(now time.Time) bool {
	if t.Revoked || t.RefreshToken == nil {
		return false
	}
	expiresAt := t.IssuedAt.Add(2 * time.Duration(t.ExpiresIn) * time.Second)
	return !now.After(expiresAt)
}
