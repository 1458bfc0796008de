package subscriptions

import (
	"strings"

	"pipevault/internal/domain/users"
)

// ParseProvider accepts only the two known provider names.
func ParseProvider(s string) Provider {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderStripe:
		return ProviderStripe
	case ProviderApple:
		return ProviderApple
	}
	return ProviderNone
}

// ResolveProviderFromUser reads the stored subscription_provider field.
// The field is set by the billing webhooks; when it is absent the provider
// is unknown and nothing is inferred from customer ids.
func ResolveProviderFromUser(u *users.User) Provider {
	if u == nil || u.SubscriptionProvider == nil {
		return ProviderNone
	}
	return ParseProvider(*u.SubscriptionProvider)
}

// ResolveSubscriptionProvider applies the same rule to a subscription record.
func ResolveSubscriptionProvider(s *Subscription) Provider {
	if s == nil {
		return ProviderNone
	}
	return ParseProvider(string(s.Provider))
}
