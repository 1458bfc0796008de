package entitlements

import (
	"context"
	"errors"
	"fmt"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/users"
)

// Source performs a live entitlement check for a user. A nil payload with a
// nil error means the source has nothing to say about this user.
type Source interface {
	Fetch(ctx context.Context, u *users.User) (*Payload, error)
}

// CustomerPrices lists the price ids on a billing customer's entitling subscriptions.
type CustomerPrices interface {
	ActivePriceIDs(ctx context.Context, customerID string) ([]string, error)
}

// BillingSource asks the billing provider which prices the customer is
// currently paying for and maps them to tiers through the plan catalogue.
type BillingSource struct {
	Prices CustomerPrices
	Plans  plans.Repository
}

func NewBillingSource(prices CustomerPrices, catalogue plans.Repository) *BillingSource {
	return &BillingSource{Prices: prices, Plans: catalogue}
}

func (s *BillingSource) Fetch(ctx context.Context, u *users.User) (*Payload, error) {
	if u == nil || u.StripeCustomerID == nil || *u.StripeCustomerID == "" {
		return nil, nil
	}

	priceIDs, err := s.Prices.ActivePriceIDs(ctx, *u.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("list active prices: %w", err)
	}

	best := plans.TierFree
	for _, id := range priceIDs {
		plan, err := s.Plans.FindByStripePriceID(ctx, id)
		if errors.Is(err, plans.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if t := plans.PlanTier(plan); plans.Rank(t) > plans.Rank(best) {
			best = t
		}
	}

	return &Payload{Tier: string(best)}, nil
}
