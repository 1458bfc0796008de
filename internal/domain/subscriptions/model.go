package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Provider string

const (
	ProviderNone   Provider = ""
	ProviderStripe Provider = "stripe"
	ProviderApple  Provider = "apple"
)

// Subscription is one provider subscription held by a user. A user may hold
// several at once, e.g. while moving between Stripe and the App Store.
type Subscription struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uint      `gorm:"not null;index" json:"user_id"`

	Provider               Provider `gorm:"type:varchar(20);not null;uniqueIndex:ux_subscriptions_provider_ref,priority:1" json:"provider"`
	ProviderSubscriptionID string   `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_provider_ref,priority:2" json:"provider_subscription_id"`

	Status           string     `gorm:"type:varchar(32);not null;index" json:"status"`
	Tier             string     `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	StartedAt        *time.Time `json:"started_at"`

	StripeCustomerID           *string `gorm:"column:stripe_customer_id;index" json:"stripe_customer_id,omitempty"`
	AppleOriginalTransactionID *string `gorm:"column:apple_original_transaction_id;index" json:"apple_original_transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
