package stripe

import "strings"

// NormalizeStatus folds provider status spellings into the small set the
// entitlement rules care about. Unknown values pass through lower-cased.
func NormalizeStatus(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return "none"
	case "active":
		return "active"
	case "trialing", "trial":
		return "trialing"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "cancelled", "incomplete_expired":
		return "canceled"
	default:
		return v
	}
}

// IsEntitling reports whether a subscription in this status currently grants its tier.
func IsEntitling(status string) bool {
	switch NormalizeStatus(status) {
	case "active", "trialing":
		return true
	}
	return false
}
