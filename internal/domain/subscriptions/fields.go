package subscriptions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pipevault/internal/domain/plans"
)

// RawProfile is a profile or subscription record as delivered by the backend,
// before any normalization. Older records spell the same field several ways.
type RawProfile map[string]interface{}

// FieldAccessor names one logical field and the keys it may be stored under,
// in lookup order. The first non-empty string value wins.
type FieldAccessor struct {
	Name string
	Keys []string
}

var (
	ProviderField = FieldAccessor{
		Name: "subscription_provider",
		Keys: []string{"subscription_provider", "subscriptionProvider"},
	}
	StripeCustomerField = FieldAccessor{
		Name: "stripe_customer_id",
		Keys: []string{"stripe_customer_id", "stripeCustomerId", "stripeCustomerID"},
	}
	AppleTransactionField = FieldAccessor{
		Name: "apple_original_transaction_id",
		Keys: []string{"apple_original_transaction_id", "appleOriginalTransactionId", "original_transaction_id"},
	}
	SubscriptionRefField = FieldAccessor{
		Name: "provider_subscription_id",
		Keys: []string{"provider_subscription_id", "providerSubscriptionId", "subscription_id", "subscriptionId"},
	}
	CurrentPeriodEndField = FieldAccessor{
		Name: "current_period_end",
		Keys: []string{"current_period_end", "currentPeriodEnd"},
	}
	StartedAtField = FieldAccessor{
		Name: "started_at",
		Keys: []string{"started_at", "startedAt", "start_date"},
	}
)

// Lookup returns the first non-empty string stored under one of the keys.
func (a FieldAccessor) Lookup(raw RawProfile) (string, bool) {
	for _, k := range a.Keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// NormalizedFields is the provider view of a legacy record.
type NormalizedFields struct {
	Provider                   Provider
	StripeCustomerID           string
	AppleOriginalTransactionID string
	// Inferred is set when Provider came from ids rather than the stored field.
	Inferred bool
}

// NormalizeFields derives the provider for records that may predate the
// subscription_provider field. A valid stored provider is kept as is.
// Otherwise a Stripe customer id always beats an Apple transaction id.
func NormalizeFields(raw RawProfile) NormalizedFields {
	out := NormalizedFields{}
	out.StripeCustomerID, _ = StripeCustomerField.Lookup(raw)
	out.AppleOriginalTransactionID, _ = AppleTransactionField.Lookup(raw)

	if v, ok := ProviderField.Lookup(raw); ok {
		if p := ParseProvider(v); p != ProviderNone {
			out.Provider = p
			return out
		}
	}

	switch {
	case out.StripeCustomerID != "":
		out.Provider = ProviderStripe
		out.Inferred = true
	case out.AppleOriginalTransactionID != "":
		out.Provider = ProviderApple
		out.Inferred = true
	}
	return out
}

// FieldsWrite is a proposed update of the billing fields on a user.
type FieldsWrite struct {
	Source                     string
	Tier                       string
	StripeCustomerID           string
	AppleOriginalTransactionID string
}

var ErrInconsistentFields = errors.New("inconsistent subscription fields")

// ValidateFields checks a write before it is persisted. It never panics; the
// returned error carries a message suitable for logs or an admin UI.
func ValidateFields(w FieldsWrite) error {
	if w.Tier != "" && !plans.IsKnownTier(w.Tier) {
		return fmt.Errorf("%w: unknown tier %q", ErrInconsistentFields, w.Tier)
	}

	source := strings.TrimSpace(w.Source)
	if source == "" {
		return nil
	}

	switch ParseProvider(source) {
	case ProviderStripe:
		if strings.TrimSpace(w.StripeCustomerID) == "" {
			return fmt.Errorf("%w: source \"stripe\" requires stripe_customer_id", ErrInconsistentFields)
		}
	case ProviderApple:
		if strings.TrimSpace(w.AppleOriginalTransactionID) == "" {
			return fmt.Errorf("%w: source \"apple\" requires apple_original_transaction_id", ErrInconsistentFields)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInconsistentFields, source)
	}
	return nil
}

// ParseTimestamp reads an RFC 3339 or date-only value. Anything unparsable
// yields the zero time, which the selector treats as the epoch.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FromRaw builds a subscription from a raw backend record.
func FromRaw(raw RawProfile) Subscription {
	n := NormalizeFields(raw)
	s := Subscription{Provider: n.Provider}
	s.ProviderSubscriptionID, _ = SubscriptionRefField.Lookup(raw)
	if s.ProviderSubscriptionID == "" && n.Provider == ProviderApple {
		// an App Store subscription is identified by its original transaction
		s.ProviderSubscriptionID = n.AppleOriginalTransactionID
	}

	if v, ok := raw["status"].(string); ok {
		s.Status = strings.TrimSpace(v)
	}
	if v, ok := raw["tier"].(string); ok {
		s.Tier = string(plans.NormalizeTier(v))
	}
	if v, ok := CurrentPeriodEndField.Lookup(raw); ok {
		if t := ParseTimestamp(v); !t.IsZero() {
			s.CurrentPeriodEnd = &t
		}
	}
	if v, ok := StartedAtField.Lookup(raw); ok {
		if t := ParseTimestamp(v); !t.IsZero() {
			s.StartedAt = &t
		}
	}
	if n.StripeCustomerID != "" {
		id := n.StripeCustomerID
		s.StripeCustomerID = &id
	}
	if n.AppleOriginalTransactionID != "" {
		id := n.AppleOriginalTransactionID
		s.AppleOriginalTransactionID = &id
	}
	return s
}
