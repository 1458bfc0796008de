package plans

import "time"

type Plan struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Name            string  `json:"name"`
	PriceEUR        float64 `json:"price_eur"`
	StripePriceID   string  `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_plans_stripe_price_id" json:"stripe_price_id"`
	StripeProductID string  `gorm:"column:stripe_product_id;index" json:"stripe_product_id"`
	Interval        string  `json:"interval"`
	Tier            string  `gorm:"column:tier;not null;default:'free'" json:"tier"` // "premium" | "pro"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
