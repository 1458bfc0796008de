package subscriptions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"pipevault/internal/domain/users"
)

func strPtr(s string) *string { return &s }

func TestResolveProviderFromUser(t *testing.T) {
	require.Equal(t, ProviderNone, ResolveProviderFromUser(nil))
	require.Equal(t, ProviderNone, ResolveProviderFromUser(&users.User{}))
	require.Equal(t, ProviderStripe, ResolveProviderFromUser(&users.User{SubscriptionProvider: strPtr("stripe")}))
	require.Equal(t, ProviderApple, ResolveProviderFromUser(&users.User{SubscriptionProvider: strPtr(" Apple ")}))

	// ids alone never decide the provider
	u := &users.User{StripeCustomerID: strPtr("cus_1"), AppleOriginalTransactionID: strPtr("apl_1")}
	require.Equal(t, ProviderNone, ResolveProviderFromUser(u))
}

func TestResolveSubscriptionProvider(t *testing.T) {
	require.Equal(t, ProviderNone, ResolveSubscriptionProvider(nil))
	require.Equal(t, ProviderApple, ResolveSubscriptionProvider(&Subscription{Provider: "APPLE"}))
	require.Equal(t, ProviderNone, ResolveSubscriptionProvider(&Subscription{Provider: "paypal"}))
}

func TestNormalizeFields_StripeWinsOverApple(t *testing.T) {
	got := NormalizeFields(RawProfile{
		"apple_original_transaction_id": "apl_1",
		"stripe_customer_id":            "cus_1",
	})
	require.Equal(t, ProviderStripe, got.Provider)
	require.True(t, got.Inferred)
	require.Equal(t, "cus_1", got.StripeCustomerID)
	require.Equal(t, "apl_1", got.AppleOriginalTransactionID)
}

func TestNormalizeFields_LegacySpellings(t *testing.T) {
	got := NormalizeFields(RawProfile{"stripeCustomerId": "cus_9"})
	require.Equal(t, ProviderStripe, got.Provider)
	require.Equal(t, "cus_9", got.StripeCustomerID)

	got = NormalizeFields(RawProfile{"appleOriginalTransactionId": "apl_2", "stripe_customer_id": ""})
	require.Equal(t, ProviderApple, got.Provider)

	got = NormalizeFields(RawProfile{"stripe_customer_id": 42})
	require.Equal(t, ProviderNone, got.Provider)
}

func TestNormalizeFields_StoredProviderKept(t *testing.T) {
	got := NormalizeFields(RawProfile{
		"subscription_provider": "apple",
		"stripe_customer_id":    "cus_1",
	})
	require.Equal(t, ProviderApple, got.Provider)
	require.False(t, got.Inferred)

	// an unusable stored value falls back to the ids
	got = NormalizeFields(RawProfile{"subscriptionProvider": "paypal", "stripe_customer_id": "cus_1"})
	require.Equal(t, ProviderStripe, got.Provider)
	require.True(t, got.Inferred)
}

func TestValidateFields(t *testing.T) {
	require.NoError(t, ValidateFields(FieldsWrite{}))
	require.NoError(t, ValidateFields(FieldsWrite{Source: "stripe", StripeCustomerID: "cus_1", Tier: "pro"}))
	require.NoError(t, ValidateFields(FieldsWrite{Source: "apple", AppleOriginalTransactionID: "apl_1"}))

	err := ValidateFields(FieldsWrite{Source: "stripe"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInconsistentFields))
	require.Contains(t, err.Error(), "stripe_customer_id")

	require.ErrorContains(t, ValidateFields(FieldsWrite{Source: "apple", StripeCustomerID: "cus_1"}), "apple_original_transaction_id")
	require.ErrorContains(t, ValidateFields(FieldsWrite{Source: "paypal"}), "unknown source")
	require.ErrorContains(t, ValidateFields(FieldsWrite{Tier: "gold"}), "unknown tier")
}

func TestFromRaw(t *testing.T) {
	s := FromRaw(RawProfile{
		"status":             "trialing",
		"tier":               "PRO",
		"currentPeriodEnd":   "2026-08-01",
		"started_at":         "2025-12-24T10:00:00Z",
		"stripe_customer_id": "cus_1",
	})
	require.Equal(t, ProviderStripe, s.Provider)
	require.Equal(t, "pro", s.Tier)
	require.NotNil(t, s.CurrentPeriodEnd)
	require.Equal(t, 2026, s.CurrentPeriodEnd.Year())
	require.NotNil(t, s.StartedAt)
	require.Nil(t, s.AppleOriginalTransactionID)

	s = FromRaw(RawProfile{"current_period_end": "soon"})
	require.Nil(t, s.CurrentPeriodEnd)
}

func TestFromRaw_SubscriptionRef(t *testing.T) {
	s := FromRaw(RawProfile{"subscriptionId": "sub_9", "stripeCustomerId": "cus_9"})
	require.Equal(t, "sub_9", s.ProviderSubscriptionID)

	s = FromRaw(RawProfile{"original_transaction_id": "2000001"})
	require.Equal(t, ProviderApple, s.Provider)
	require.Equal(t, "2000001", s.ProviderSubscriptionID)
}
