package models

import (
	"time"

	"gorm.io/gorm"
)

// Purchase records that a user paid for access to an application.
type Purchase struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	AppID     string     `gorm:"not null;uniqueIndex:idx_purchase_user_app" json:"app_id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_purchase_user_app" json:"user_id"`
	Until     *time.Time `json:"until,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}

// BeforeSave keeps until in UTC so expiry compares correctly on text-backed drivers.
func (p *Purchase) BeforeSave(tx *gorm.DB) error {
	p.Until = utcTime(p.Until)
	return nil
}

func (p *Purchase) IsActive(now time.Time) bool {
	return p.Until == nil || p.Until.After(now)
}

// AnonymousPurchase records a payment made without an account, keyed by a client-held UUID.
type AnonymousPurchase struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	UUID      string     `gorm:"not null;uniqueIndex:idx_anon_purchase_app" json:"uuid"`
	AppID     string     `gorm:"not null;uniqueIndex:idx_anon_purchase_app" json:"app_id"`
	Until     *time.Time `json:"until,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (AnonymousPurchase) TableName() string {
	return "anon_purchases"
}

func (p *AnonymousPurchase) BeforeSave(tx *gorm.DB) error {
	p.Until = utcTime(p.Until)
	return nil
}

func (p *AnonymousPurchase) IsActive(now time.Time) bool {
	return p.Until == nil || p.Until.After(now)
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
