package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

func ts(s string) *time.Time {
	t := subscriptions.ParseTimestamp(s)
	return &t
}

func TestComputePolicy_UsesStoredProviderPreference(t *testing.T) {
	apple := "apple"
	u := &users.User{Email: "a@b.c", EntitlementTier: "premium", SubscriptionProvider: &apple}
	subs := []subscriptions.Subscription{
		{ProviderSubscriptionID: "s1", Provider: subscriptions.ProviderStripe, Status: "active", CurrentPeriodEnd: ts("2027-01-01"), StartedAt: ts("2026-05-01")},
		{ProviderSubscriptionID: "a1", Provider: subscriptions.ProviderApple, Status: "active", CurrentPeriodEnd: ts("2026-09-01"), StartedAt: ts("2025-10-01")},
	}

	p := ComputePolicy(u, subs, nil)
	require.Equal(t, subscriptions.ProviderApple, p.Provider)
	require.Equal(t, "a1", p.Primary.ProviderSubscriptionID)
	require.Equal(t, plans.TierPremium, p.Tier)
	// the apple subscription started before the cutoff
	require.True(t, p.Entitlements.IsPremiumLegacy)
	require.True(t, p.Allows("EXPORT_REPORTS"))
}

func TestComputePolicy_FreeUser(t *testing.T) {
	p := ComputePolicy(&users.User{Email: "x@y.z"}, nil, nil)
	require.Equal(t, plans.TierFree, p.Tier)
	require.Nil(t, p.Primary)
	require.Equal(t, subscriptions.ProviderNone, p.Provider)
	require.False(t, p.Allows("MESSAGING"))
}

func TestPolicyAllows_AdminOverride(t *testing.T) {
	p := ComputePolicy(&users.User{Role: "owner", EntitlementTier: "free"}, nil, nil)
	require.Equal(t, plans.TierFree, p.Tier)
	require.Equal(t, entitlements.AccessAdminOverride, p.ProAccessReason)
	require.True(t, p.Allows("AI_IDENTIFY"))
	require.Equal(t, entitlements.LimitsFor(plans.TierPro), p.Entitlements.Limits)
	require.True(t, p.Entitlements.Limits.Allows(entitlements.ResourcePipes, 5))

	// plain free users keep the free caps
	p = ComputePolicy(&users.User{Role: users.RoleMember, EntitlementTier: "free"}, nil, nil)
	require.False(t, p.Entitlements.Limits.Allows(entitlements.ResourcePipes, 5))
}

func TestComputePolicy_LegacySurvivesProviderMove(t *testing.T) {
	apple := "apple"
	u := &users.User{EntitlementTier: "premium", SubscriptionProvider: &apple}
	subs := []subscriptions.Subscription{
		{ProviderSubscriptionID: "s1", Provider: subscriptions.ProviderStripe, Status: "canceled", Tier: "premium", StartedAt: ts("2025-06-01"), CurrentPeriodEnd: ts("2026-03-01")},
		{ProviderSubscriptionID: "a1", Provider: subscriptions.ProviderApple, Status: "active", Tier: "premium", StartedAt: ts("2026-03-01"), CurrentPeriodEnd: ts("2027-03-01")},
	}

	p := ComputePolicy(u, subs, nil)
	require.Equal(t, "a1", p.Primary.ProviderSubscriptionID)
	require.True(t, p.Entitlements.IsPremiumLegacy)
	require.True(t, p.Allows("BULK_EDIT"))
}

type memUsers struct {
	byEmail map[string]users.User
}

func (m *memUsers) FindByID(ctx context.Context, id uint) (*users.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	u, ok := m.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByGoogleSub(ctx context.Context, sub string) (*users.User, error) {
	return nil, users.ErrNotFound
}

func (m *memUsers) FindByStripeCustomerID(ctx context.Context, id string) (*users.User, error) {
	return nil, users.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, u *users.User) error { return nil }

func (m *memUsers) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return nil
}

func (m *memUsers) List(ctx context.Context) ([]users.User, error) { return nil, nil }

type memSubs struct {
	byUser map[uint][]subscriptions.Subscription
}

func (m *memSubs) ListByUser(ctx context.Context, userID uint) ([]subscriptions.Subscription, error) {
	return m.byUser[userID], nil
}

func (m *memSubs) FindByProviderRef(ctx context.Context, p subscriptions.Provider, ref string) (*subscriptions.Subscription, error) {
	return nil, subscriptions.ErrNotFound
}

func (m *memSubs) Upsert(ctx context.Context, s *subscriptions.Subscription) error { return nil }

type stubSource struct {
	payload *entitlements.Payload
	err     error
}

func (s stubSource) Fetch(ctx context.Context, u *users.User) (*entitlements.Payload, error) {
	return s.payload, s.err
}

func TestServicePolicyFor(t *testing.T) {
	repo := &memUsers{byEmail: map[string]users.User{
		"pat@example.com": {ID: 7, Email: "pat@example.com", EntitlementTier: "free"},
	}}
	subs := &memSubs{byUser: map[uint][]subscriptions.Subscription{}}
	ctx := context.Background()

	svc := NewService(repo, subs, stubSource{payload: &entitlements.Payload{Tier: "pro"}}, zap.NewNop())
	u, p, err := svc.PolicyFor(ctx, "Pat@Example.com")
	require.NoError(t, err)
	require.Equal(t, uint(7), u.ID)
	require.Equal(t, plans.TierPro, p.Tier)

	// a failing live check degrades to the stored tier
	svc = NewService(repo, subs, stubSource{err: errors.New("timeout")}, nil)
	_, p, err = svc.PolicyFor(ctx, "pat@example.com")
	require.NoError(t, err)
	require.Equal(t, plans.TierFree, p.Tier)

	_, _, err = svc.PolicyFor(ctx, "nobody@example.com")
	require.ErrorIs(t, err, users.ErrNotFound)
}
