package models

// Application represents an app that can be purchased
type Application struct {
	AppID             string `gorm:"primaryKey" json:"app_id"`
	Name              string `gorm:"not null" json:"name"`
	StripeKey         string `json:"payment_account"`    // connected account that receives the payment
	RecommendedAmount int    `json:"recommended_amount"` // in cents
}

func (Application) TableName() string {
	return "applications"
}
