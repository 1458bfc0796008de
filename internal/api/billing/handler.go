package billing

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/infra/stripe"
)

// NativeBridgeHeader is sent by the iOS shell when the web view can receive
// native messages.
const NativeBridgeHeader = "X-Native-Bridge"

// Gateway is the Stripe surface used by these handlers.
type Gateway interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreateCustomer(ctx context.Context, email string, userID uint, env string) (string, error)
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (string, error)
}

type Config struct {
	AppURL string
	AppEnv string
	// Static portal login link used when no portal session can be created.
	PortalURL   string
	AppStoreURL string
}

type Handler struct {
	policies access.Loader
	users    users.Repository
	plans    plans.Repository
	gateway  Gateway
	cfg      Config
	logger   *zap.Logger
}

// NewHandler wires the billing endpoints. gateway may be nil when Stripe is
// not configured; portal and checkout then answer 503.
func NewHandler(policies access.Loader, u users.Repository, p plans.Repository, gateway Gateway, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:5173"
	}
	return &Handler{policies: policies, users: u, plans: p, gateway: gateway, cfg: cfg, logger: logger}
}

func (h *Handler) accountURL() string {
	return strings.TrimRight(h.cfg.AppURL, "/") + "/account"
}

func (h *Handler) load(c *gin.Context) (*users.User, access.Policy, bool) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return nil, access.Policy{}, false
	}
	u, p, err := h.policies.PolicyFor(c.Request.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, access.Policy{}, false
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return nil, access.Policy{}, false
	}
	return u, p, true
}

func hasNativeBridge(c *gin.Context) bool {
	ok, _ := strconv.ParseBool(c.GetHeader(NativeBridgeHeader))
	return ok
}

// POST /subscription/manage
//
// Answers with the navigation the client should perform.
func (h *Handler) ManageSubscription(c *gin.Context) {
	u, policy, ok := h.load(c)
	if !ok {
		return
	}

	sub := policy.Primary
	if sub == nil && policy.Provider != subscriptions.ProviderNone {
		// lapsed subscribers still manage through their provider
		sub = &subscriptions.Subscription{Provider: policy.Provider}
	}

	urls := billing.StaticURLs{Portal: h.cfg.PortalURL, AppStore: h.cfg.AppStoreURL}
	if subscriptions.ResolveSubscriptionProvider(sub) == subscriptions.ProviderStripe {
		if url, err := h.portalSession(c.Request.Context(), u); err == nil {
			urls.Portal = url
		} else {
			h.logger.Warn("portal session unavailable; using static portal link",
				zap.String("email", u.Email), zap.Error(err))
		}
	}

	nav := &billing.RecordingNavigator{Bridge: hasNativeBridge(c)}
	route := billing.HandleManageSubscription(u, sub, nav, urls, h.logger)
	metrics.ManageRoutes.WithLabelValues(string(route)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"route":  route,
		"action": nav.Action,
	})
}

var errNoCustomer = errors.New("no stripe customer")

func (h *Handler) portalSession(ctx context.Context, u *users.User) (string, error) {
	if h.gateway == nil {
		return "", stripe.ErrNotConfigured
	}
	if u.StripeCustomerID == nil || *u.StripeCustomerID == "" {
		return "", errNoCustomer
	}
	return h.gateway.CreatePortalSession(ctx, *u.StripeCustomerID, h.accountURL())
}

// POST /billing-portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	u, _, ok := h.load(c)
	if !ok {
		return
	}

	url, err := h.portalSession(c.Request.Context(), u)
	switch {
	case errors.Is(err, stripe.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe key not configured"})
	case errors.Is(err, errNoCustomer):
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
	case err != nil:
		h.logger.Error("create portal session failed", zap.String("email", u.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create billing portal session"})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// POST /create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID string `json:"price_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id"})
		return
	}
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe key not configured"})
		return
	}

	u, policy, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	plan, err := h.plans.FindByStripePriceID(ctx, body.PriceID)
	if errors.Is(err, plans.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan/price_id"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	// An App Store subscriber buying on the web would be billed twice.
	if policy.Primary != nil && policy.Primary.Provider == subscriptions.ProviderApple {
		c.JSON(http.StatusConflict, gin.H{"error": "Subscription is managed through the App Store"})
		return
	}

	customerID := ""
	if u.StripeCustomerID != nil {
		customerID = *u.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.gateway.CreateCustomer(ctx, u.Email, u.ID, h.cfg.AppEnv)
		if err != nil {
			h.logger.Error("create stripe customer failed", zap.String("email", u.Email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe customer"})
			return
		}
		if err := h.users.Update(ctx, u.ID, map[string]interface{}{"stripe_customer_id": customerID}); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}
	}

	url, err := h.gateway.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    plan.StripePriceID,
		UserID:     u.ID,
		SuccessURL: h.accountURL(),
		CancelURL:  h.accountURL() + "?canceled=1",
	})
	if err != nil {
		h.logger.Error("create checkout session failed", zap.String("email", u.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
