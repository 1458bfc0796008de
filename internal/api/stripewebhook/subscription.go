package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	sc "github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/infra/stripe"
)

func (h *Handler) handleSubscription(ctx context.Context, log *zap.Logger, raw *sc.Subscription) error {
	snap, err := stripe.SnapshotFromSubscription(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errSkip, err)
	}

	u, err := h.findUser(ctx, snap)
	if errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("%w: no user for subscription %s", errSkip, snap.ID)
	}
	if err != nil {
		return err
	}

	tier, err := h.tierForPrice(ctx, log, snap)
	if err != nil {
		return err
	}

	sub := subscriptions.Subscription{
		Provider:               subscriptions.ProviderStripe,
		ProviderSubscriptionID: snap.ID,
		Status:                 snap.Status,
		Tier:                   string(tier),
	}
	if snap.CustomerID != "" {
		cus := snap.CustomerID
		sub.StripeCustomerID = &cus
	}
	if !snap.CurrentPeriodEnd.IsZero() {
		end := snap.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &end
	}
	if !snap.StartedAt.IsZero() {
		start := snap.StartedAt
		sub.StartedAt = &start
	}

	if err := h.syncer.Record(ctx, u, sub); err != nil {
		return err
	}
	log.Info("stripe subscription applied",
		zap.Uint("user_id", u.ID), zap.String("status", snap.Status), zap.String("tier", string(tier)))
	return nil
}

// findUser tries the user_id metadata, then the customer id, then a
// previously stored copy of the subscription.
func (h *Handler) findUser(ctx context.Context, snap stripe.SubscriptionSnapshot) (*users.User, error) {
	if snap.UserID != 0 {
		u, err := h.users.FindByID(ctx, snap.UserID)
		if !errors.Is(err, users.ErrNotFound) {
			return u, err
		}
	}
	if snap.CustomerID != "" {
		u, err := h.users.FindByStripeCustomerID(ctx, snap.CustomerID)
		if !errors.Is(err, users.ErrNotFound) {
			return u, err
		}
	}
	existing, err := h.subs.FindByProviderRef(ctx, subscriptions.ProviderStripe, snap.ID)
	if errors.Is(err, subscriptions.ErrNotFound) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h.users.FindByID(ctx, existing.UserID)
}

// tierForPrice maps the subscription's price through the plan catalogue. An
// unknown price keeps the tier already stored for the subscription, if any.
func (h *Handler) tierForPrice(ctx context.Context, log *zap.Logger, snap stripe.SubscriptionSnapshot) (plans.Tier, error) {
	if snap.PriceID != "" {
		plan, err := h.plans.FindByStripePriceID(ctx, snap.PriceID)
		if err == nil {
			return plans.PlanTier(plan), nil
		}
		if !errors.Is(err, plans.ErrNotFound) {
			return "", err
		}
		log.Warn("stripe price not in plan catalogue", zap.String("price_id", snap.PriceID))
	}

	existing, err := h.subs.FindByProviderRef(ctx, subscriptions.ProviderStripe, snap.ID)
	if errors.Is(err, subscriptions.ErrNotFound) {
		return plans.TierFree, nil
	}
	if err != nil {
		return "", err
	}
	return plans.NormalizeTier(existing.Tier), nil
}

// handleCheckoutCompleted links the Stripe customer to the account that
// started the checkout. The subscription itself arrives in its own event.
func (h *Handler) handleCheckoutCompleted(ctx context.Context, log *zap.Logger, s *sc.CheckoutSession) error {
	if s.Customer == nil || s.Customer.ID == "" || s.ClientReferenceID == "" {
		return fmt.Errorf("%w: checkout session without customer or reference", errSkip)
	}
	uid, err := strconv.ParseUint(s.ClientReferenceID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad client reference %q", errSkip, s.ClientReferenceID)
	}

	u, err := h.users.FindByID(ctx, uint(uid))
	if errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("%w: no user %d", errSkip, uid)
	}
	if err != nil {
		return err
	}
	if u.StripeCustomerID != nil && *u.StripeCustomerID == s.Customer.ID {
		return nil
	}

	if err := h.users.Update(ctx, u.ID, map[string]interface{}{"stripe_customer_id": s.Customer.ID}); err != nil {
		return err
	}
	log.Info("stripe customer linked", zap.Uint("user_id", u.ID))
	return nil
}
