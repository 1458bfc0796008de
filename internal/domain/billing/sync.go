package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Syncer is the only writer of a user's entitlement_tier and
// subscription_provider. Both are derived from the primary subscription.
type Syncer struct {
	users  users.Repository
	subs   subscriptions.Repository
	logger *zap.Logger
}

func NewSyncer(u users.Repository, s subscriptions.Repository, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{users: u, subs: s, logger: logger}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Record validates and stores a provider subscription for u, then refreshes
// the user's cached billing fields. Validation failures wrap
// subscriptions.ErrInconsistentFields and leave storage untouched.
func (s *Syncer) Record(ctx context.Context, u *users.User, sub subscriptions.Subscription) error {
	if sub.Provider == subscriptions.ProviderNone {
		return fmt.Errorf("%w: subscription has no provider", subscriptions.ErrInconsistentFields)
	}
	if sub.ProviderSubscriptionID == "" {
		return fmt.Errorf("%w: missing provider subscription id", subscriptions.ErrInconsistentFields)
	}
	if err := subscriptions.ValidateFields(subscriptions.FieldsWrite{
		Source:                     string(sub.Provider),
		Tier:                       sub.Tier,
		StripeCustomerID:           deref(sub.StripeCustomerID),
		AppleOriginalTransactionID: deref(sub.AppleOriginalTransactionID),
	}); err != nil {
		return err
	}

	sub.UserID = u.ID
	sub.Tier = string(plans.NormalizeTier(sub.Tier))
	if err := s.subs.Upsert(ctx, &sub); err != nil {
		return err
	}
	return s.Refresh(ctx, u)
}

// Refresh recomputes entitlement_tier and subscription_provider from the
// user's primary subscription. Without one the tier drops to free and the
// provider is kept so the user can still reach their billing settings.
func (s *Syncer) Refresh(ctx context.Context, u *users.User) error {
	subs, err := s.subs.ListByUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	primary := subscriptions.PickPrimary(subs, subscriptions.ResolveProviderFromUser(u))

	updates := map[string]interface{}{}
	write := subscriptions.FieldsWrite{
		Tier:                       string(plans.TierFree),
		StripeCustomerID:           deref(u.StripeCustomerID),
		AppleOriginalTransactionID: deref(u.AppleOriginalTransactionID),
	}

	if primary != nil {
		write.Source = string(primary.Provider)
		write.Tier = string(plans.NormalizeTier(primary.Tier))
		updates["subscription_provider"] = string(primary.Provider)

		if write.StripeCustomerID == "" && primary.StripeCustomerID != nil {
			write.StripeCustomerID = *primary.StripeCustomerID
			updates["stripe_customer_id"] = write.StripeCustomerID
		}
		if write.AppleOriginalTransactionID == "" && primary.AppleOriginalTransactionID != nil {
			write.AppleOriginalTransactionID = *primary.AppleOriginalTransactionID
			updates["apple_original_transaction_id"] = write.AppleOriginalTransactionID
		}
	}
	updates["entitlement_tier"] = write.Tier

	if err := subscriptions.ValidateFields(write); err != nil {
		s.logger.Error("refusing inconsistent billing write",
			zap.Uint("user_id", u.ID), zap.Error(err))
		return err
	}
	if err := s.users.Update(ctx, u.ID, updates); err != nil {
		return fmt.Errorf("update user billing fields: %w", err)
	}

	s.logger.Info("billing fields refreshed",
		zap.Uint("user_id", u.ID),
		zap.String("tier", write.Tier),
		zap.String("provider", write.Source))
	return nil
}
