package access

import (
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Policy is everything the product needs to know about a user's access,
// computed from one snapshot of their records.
type Policy struct {
	Tier            plans.Tier
	Entitlements    entitlements.Entitlements
	Provider        subscriptions.Provider
	Primary         *subscriptions.Subscription
	ProAccessReason entitlements.AccessReason
}

func ComputePolicy(u *users.User, subs []subscriptions.Subscription, payload *entitlements.Payload) Policy {
	provider := subscriptions.ResolveProviderFromUser(u)
	primary := subscriptions.PickPrimary(subs, provider)
	ent := entitlements.ForUser(u, payload, primary, subs...)
	reason := entitlements.ProAccessReason(u)
	if reason == entitlements.AccessAdminOverride {
		// gates and quotas open together; Tier stays the real one
		ent.Limits = entitlements.LimitsFor(plans.TierPro)
	}

	return Policy{
		Tier:            ent.Tier,
		Entitlements:    ent,
		Provider:        provider,
		Primary:         primary,
		ProAccessReason: reason,
	}
}

// Allows gates a feature. The admin override opens every gate.
func (p Policy) Allows(feature string) bool {
	if p.ProAccessReason == entitlements.AccessAdminOverride {
		return true
	}
	return p.Entitlements.CanUse(feature)
}
