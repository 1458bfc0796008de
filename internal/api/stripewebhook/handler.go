package stripewebhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	sc "github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/infra/stripe"
)

const maxBodyBytes = 65536

type Handler struct {
	secret string
	users  users.Repository
	subs   subscriptions.Repository
	plans  plans.Repository
	syncer *billing.Syncer
	logger *zap.Logger
}

func NewHandler(secret string, u users.Repository, s subscriptions.Repository, p plans.Repository, syncer *billing.Syncer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{secret: secret, users: u, subs: s, plans: p, syncer: syncer, logger: logger}
}

// POST /webhook
//
// Answers 200 for anything Stripe should not retry (unknown events, unknown
// users, inconsistent data) and 500 for storage failures.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := stripe.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("stripe signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	eventType := string(event.Type)
	log := h.logger.With(zap.String("event_id", event.ID), zap.String("event_type", eventType))
	ctx := c.Request.Context()

	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub sc.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			metrics.WebhookEvents.WithLabelValues(eventType, "malformed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
			return
		}
		err = h.handleSubscription(ctx, log, &sub)

	case "checkout.session.completed":
		var session sc.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			metrics.WebhookEvents.WithLabelValues(eventType, "malformed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse session"})
			return
		}
		err = h.handleCheckoutCompleted(ctx, log, &session)

	default:
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	switch {
	case errors.Is(err, subscriptions.ErrInconsistentFields), errors.Is(err, errSkip):
		log.Warn("stripe event not applied", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(eventType, "skipped").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
	case err != nil:
		log.Error("stripe event failed", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(eventType, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
	default:
		metrics.WebhookEvents.WithLabelValues(eventType, "applied").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}

var errSkip = errors.New("event not applicable")
