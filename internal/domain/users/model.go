package users

import (
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleMember = "member"
)

// UserMetadata and LegacySubscription mirror nested fields written by older
// clients. They are read for tier resolution only and never written here.
type UserMetadata struct {
	Tier string `gorm:"column:tier" json:"tier,omitempty"`
}

type LegacySubscription struct {
	Tier string `gorm:"column:tier" json:"tier,omitempty"`
}

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Name         string  `json:"name"`
	Password     *string `gorm:"" json:"-"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub" json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsAdmin      bool    `gorm:"column:is_admin;not null;default:false" json:"isAdmin"`

	// Authoritative fields, written only by billing webhooks and admin tools.
	EntitlementTier      string  `gorm:"column:entitlement_tier;not null;default:'free'" json:"entitlement_tier"`
	SubscriptionProvider *string `gorm:"column:subscription_provider;type:varchar(20)" json:"subscription_provider"`

	StripeCustomerID           *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id" json:"stripe_customer_id,omitempty"`
	AppleOriginalTransactionID *string `gorm:"column:apple_original_transaction_id;index" json:"apple_original_transaction_id,omitempty"`

	Metadata           UserMetadata       `gorm:"embedded;embeddedPrefix:user_metadata_" json:"user_metadata"`
	LegacySubscription LegacySubscription `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail returns the identity key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
