package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TierResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "tier_resolutions_total", Help: "Resolved tiers by tier and whether a live check contributed."},
		[]string{"tier", "source"},
	)
	LiveCheckFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "entitlement_live_check_failures_total", Help: "Live entitlement checks that failed and fell back to stored state."},
	)
	FeatureChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "feature_checks_total", Help: "Feature gate decisions by feature and outcome."},
		[]string{"feature", "outcome"},
	)
	ManageRoutes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "manage_subscription_routes_total", Help: "Manage-subscription decisions by route."},
		[]string{"route"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "stripe_webhook_events_total", Help: "Stripe webhook events by type and result."},
		[]string{"type", "result"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pipevault", Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TierResolutions)
	reg.MustRegister(LiveCheckFailures)
	reg.MustRegister(FeatureChecks)
	reg.MustRegister(ManageRoutes)
	reg.MustRegister(WebhookEvents)
	reg.MustRegister(RateLimitRejected)
}
