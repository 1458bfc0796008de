package entitlements

import (
	"time"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Feature is a gated capability, named in upper snake case.
type Feature string

const (
	FeatureUnlimitedCollection Feature = "UNLIMITED_COLLECTION"
	FeaturePairingBasic        Feature = "PAIRING_BASIC"
	FeatureMessaging           Feature = "MESSAGING"

	FeatureAIUpdates         Feature = "AI_UPDATES"
	FeaturePairingAdvanced   Feature = "PAIRING_ADVANCED"
	FeaturePairingRegen      Feature = "PAIRING_REGEN"
	FeatureAnalyticsStats    Feature = "ANALYTICS_STATS"
	FeatureAnalyticsInsights Feature = "ANALYTICS_INSIGHTS"
	FeatureBulkEdit          Feature = "BULK_EDIT"
	FeatureExportReports     Feature = "EXPORT_REPORTS"
	FeatureAIIdentify        Feature = "AI_IDENTIFY"
)

// KnownFeatures lists every feature in display order.
var KnownFeatures = []Feature{
	FeatureUnlimitedCollection,
	FeaturePairingBasic,
	FeatureMessaging,
	FeatureAIUpdates,
	FeaturePairingAdvanced,
	FeaturePairingRegen,
	FeatureAnalyticsStats,
	FeatureAnalyticsInsights,
	FeatureBulkEdit,
	FeatureExportReports,
	FeatureAIIdentify,
}

// IsKnownFeature reports whether name is one of KnownFeatures.
func IsKnownFeature(name string) bool {
	for _, f := range KnownFeatures {
		if string(f) == name {
			return true
		}
	}
	return false
}

var premiumFeatures = map[Feature]bool{
	FeatureUnlimitedCollection: true,
	FeaturePairingBasic:        true,
	FeatureMessaging:           true,
}

// Pro features kept by premium accounts that subscribed before the tier split.
var legacyPremiumFeatures = map[Feature]bool{
	FeatureAIUpdates:         true,
	FeaturePairingAdvanced:   true,
	FeaturePairingRegen:      true,
	FeatureAnalyticsStats:    true,
	FeatureAnalyticsInsights: true,
	FeatureBulkEdit:          true,
	FeatureExportReports:     true,
	FeatureAIIdentify:        true,
}

// LegacyCutoff is the start of the premium/pro split. Premium subscriptions
// started before it are grandfathered.
var LegacyCutoff = time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

// Input is what Build needs to know about a user's subscription.
type Input struct {
	IsProSubscriber  bool
	IsPaidSubscriber bool
	// Zero when unknown; an unknown start never qualifies as legacy.
	SubscriptionStartedAt time.Time
}

// Entitlements is the tier a user resolved to and what it grants.
type Entitlements struct {
	Tier            plans.Tier
	IsPremiumLegacy bool
	Limits          Limits
}

func Build(in Input) Entitlements {
	tier := plans.TierFree
	switch {
	case in.IsProSubscriber:
		tier = plans.TierPro
	case in.IsPaidSubscriber:
		tier = plans.TierPremium
	}

	legacy := tier == plans.TierPremium &&
		!in.SubscriptionStartedAt.IsZero() &&
		in.SubscriptionStartedAt.Before(LegacyCutoff)

	return Entitlements{
		Tier:            tier,
		IsPremiumLegacy: legacy,
		Limits:          LimitsFor(tier),
	}
}

// CanUse is total: unknown feature names are simply not granted, except on
// pro where everything is.
func (e Entitlements) CanUse(feature string) bool {
	f := Feature(feature)
	switch e.Tier {
	case plans.TierPro:
		return true
	case plans.TierPremium:
		if premiumFeatures[f] {
			return true
		}
		return e.IsPremiumLegacy && legacyPremiumFeatures[f]
	default:
		return false
	}
}

// Features returns the known features this entitlement grants.
func (e Entitlements) Features() []Feature {
	out := make([]Feature, 0, len(KnownFeatures))
	for _, f := range KnownFeatures {
		if e.CanUse(string(f)) {
			out = append(out, f)
		}
	}
	return out
}

// ForUser resolves the tier and builds the entitlements for it. The start
// date used for grandfathering is the earliest of the primary subscription and
// any paid subscription in history, so moving between providers keeps it.
func ForUser(u *users.User, p *Payload, primary *subscriptions.Subscription, history ...subscriptions.Subscription) Entitlements {
	tier := ResolveTier(u, p)

	var started time.Time
	if primary != nil && primary.StartedAt != nil {
		started = *primary.StartedAt
	}
	if first := FirstPaidStart(history); !first.IsZero() && (started.IsZero() || first.Before(started)) {
		started = first
	}

	return Build(Input{
		IsProSubscriber:       tier == plans.TierPro,
		IsPaidSubscriber:      tier != plans.TierFree,
		SubscriptionStartedAt: started,
	})
}

// FirstPaidStart returns the earliest start date among premium or pro
// subscriptions, whatever their status. Zero when none has a start date.
func FirstPaidStart(subs []subscriptions.Subscription) time.Time {
	var first time.Time
	for _, s := range subs {
		if s.StartedAt == nil || s.StartedAt.IsZero() {
			continue
		}
		if _, paid := plans.ParsePaidTier(s.Tier); !paid {
			continue
		}
		if first.IsZero() || s.StartedAt.Before(first) {
			first = *s.StartedAt
		}
	}
	return first
}
