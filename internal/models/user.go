package models

import (
	"time"
)

// User is an end user who can grant access to clients and purchase applications.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"uniqueIndex;size:40;not null" json:"username"`
	StripeCustomerID string    `gorm:"size:40" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
