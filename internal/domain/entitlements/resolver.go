// Package entitlements turns stored user and subscription state into a tier
// and the set of features and limits that tier grants. Everything here is a
// pure function of its inputs.
package entitlements

import (
	"strings"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/users"
)

// Payload is the result of a live entitlement check. When present it is
// fresher than anything cached on the user record.
type Payload struct {
	Tier            string `json:"tier,omitempty"`
	EntitlementTier string `json:"entitlement_tier,omitempty"`
}

// ResolveTier walks the tier sources from freshest to stalest and returns the
// first paid tier found:
//
//  1. live payload (tier, then entitlement_tier)
//  2. user_metadata.tier
//  3. subscription.tier
//  4. entitlement_tier
//
// Sources are never merged. With no paid hit the user is free.
func ResolveTier(u *users.User, p *Payload) plans.Tier {
	for _, candidate := range tierSources(u, p) {
		if t, ok := plans.ParsePaidTier(candidate); ok {
			return t
		}
	}
	return plans.TierFree
}

func tierSources(u *users.User, p *Payload) []string {
	out := make([]string, 0, 5)
	if p != nil {
		out = append(out, p.Tier, p.EntitlementTier)
	}
	if u != nil {
		out = append(out, u.Metadata.Tier, u.LegacySubscription.Tier, u.EntitlementTier)
	}
	return out
}

// EffectiveEntitlement trusts entitlement_tier and nothing else.
func EffectiveEntitlement(u *users.User) plans.Tier {
	if u == nil {
		return plans.TierFree
	}
	return plans.NormalizeTier(u.EntitlementTier)
}

// AccessReason records why a user has, or lacks, Pro access.
type AccessReason string

const (
	AccessNone          AccessReason = "none"
	AccessTier          AccessReason = "tier"
	AccessAdminOverride AccessReason = "admin_override"
)

// ProAccessReason explains why a user does or does not get Pro access.
// Admins and owners get it regardless of tier.
func ProAccessReason(u *users.User) AccessReason {
	if u == nil {
		return AccessNone
	}
	if u.IsAdmin {
		return AccessAdminOverride
	}
	switch strings.ToLower(strings.TrimSpace(u.Role)) {
	case users.RoleAdmin, users.RoleOwner:
		return AccessAdminOverride
	}
	if EffectiveEntitlement(u) == plans.TierPro {
		return AccessTier
	}
	return AccessNone
}

func HasProAccess(u *users.User) bool {
	return ProAccessReason(u) != AccessNone
}
