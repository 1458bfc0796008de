package subscriptions

import (
	"sort"

	"pipevault/internal/infra/stripe"
)

// PickPrimary selects the subscription that speaks for the user.
//
// Only active and trialing subscriptions qualify. A subscription from the
// preferred provider wins outright; otherwise the one whose paid period runs
// furthest into the future wins. Missing period ends sort as the epoch.
// The input slice is left untouched and the result is a copy.
func PickPrimary(subs []Subscription, preferred Provider) *Subscription {
	active := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if stripe.IsEntitling(s.Status) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}

	if p := ParseProvider(string(preferred)); p != ProviderNone {
		for i := range active {
			if ResolveSubscriptionProvider(&active[i]) == p {
				picked := active[i]
				return &picked
			}
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return periodEndUnix(active[i]) > periodEndUnix(active[j])
	})
	picked := active[0]
	return &picked
}

func periodEndUnix(s Subscription) int64 {
	if s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.IsZero() {
		return 0
	}
	return s.CurrentPeriodEnd.Unix()
}
