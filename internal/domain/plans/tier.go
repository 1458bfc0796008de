package plans

import "strings"

type Tier string

// Tier constants (single source of truth)
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

// ParsePaidTier reports whether s names a paid tier.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParsePaidTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro, true
	case TierPremium:
		return TierPremium, true
	}
	return TierFree, false
}

// NormalizeTier maps any stored value onto a known tier; anything
// unrecognized (including empty) is free.
func NormalizeTier(s string) Tier {
	t, _ := ParsePaidTier(s)
	return t
}

// IsKnownTier accepts the three tier names, including free.
func IsKnownTier(s string) bool {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierFree, TierPremium, TierPro:
		return true
	}
	return false
}

// Rank orders tiers so callers can keep the highest of several.
func Rank(t Tier) int {
	switch t {
	case TierPro:
		return 2
	case TierPremium:
		return 1
	default:
		return 0
	}
}

// PlanTier returns the tier stored on a plan.
// There is no price-based inference: a plan without an explicit
// premium/pro tier grants nothing.
func PlanTier(p *Plan) Tier {
	if p == nil {
		return TierFree
	}
	return NormalizeTier(p.Tier)
}
