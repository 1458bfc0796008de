package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipevault/internal/domain/access"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

type AdminUser struct {
	ID                   uint    `json:"id"`
	Email                string  `json:"email"`
	Name                 string  `json:"name"`
	Role                 string  `json:"role"`
	IsAdmin              bool    `json:"isAdmin"`
	EntitlementTier      string  `json:"entitlement_tier"`
	SubscriptionProvider *string `json:"subscription_provider"`
	StripeCustomerID     *string `json:"stripe_customer_id,omitempty"`
}

type AdminStats struct {
	TotalUsers       int            `json:"total_users"`
	UsersPerTier     map[string]int `json:"users_per_tier"`
	UsersPerProvider map[string]int `json:"users_per_provider"`
}

type Handler struct {
	users    users.Repository
	policies access.Loader
	logger   *zap.Logger
}

func NewHandler(u users.Repository, policies access.Loader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: u, policies: policies, logger: logger}
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	all, err := h.users.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(all))
	for _, u := range all {
		out = append(out, AdminUser{
			ID:                   u.ID,
			Email:                u.Email,
			Name:                 u.Name,
			Role:                 u.Role,
			IsAdmin:              u.IsAdmin,
			EntitlementTier:      string(entitlements.EffectiveEntitlement(&u)),
			SubscriptionProvider: u.SubscriptionProvider,
			StripeCustomerID:     u.StripeCustomerID,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GET /admin/stats
//
// Counts use the stored entitlement_tier, not live checks.
func (h *Handler) Stats(c *gin.Context) {
	all, err := h.users.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	stats := AdminStats{
		TotalUsers:       len(all),
		UsersPerTier:     map[string]int{},
		UsersPerProvider: map[string]int{},
	}
	for i := range all {
		stats.UsersPerTier[string(entitlements.EffectiveEntitlement(&all[i]))]++
		provider := string(subscriptions.ResolveProviderFromUser(&all[i]))
		if provider == "" {
			provider = "none"
		}
		stats.UsersPerProvider[provider]++
	}
	c.JSON(http.StatusOK, stats)
}

// GET /admin/users/:email/access
func (h *Handler) GetUserAccess(c *gin.Context) {
	email := c.Param("email")
	u, p, err := h.policies.PolicyFor(c.Request.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	h.logger.Info("admin viewed user access",
		zap.String("admin", c.GetString("email")), zap.String("email", u.Email))

	c.JSON(http.StatusOK, gin.H{
		"email":                 u.Email,
		"tier":                  p.Tier,
		"effective_entitlement": entitlements.EffectiveEntitlement(u),
		"pro_access_reason":     p.ProAccessReason,
		"is_premium_legacy":     p.Entitlements.IsPremiumLegacy,
		"features":              p.Entitlements.Features(),
		"limits":                p.Entitlements.Limits,
		"provider":              p.Provider,
		"primary_subscription":  p.Primary,
	})
}
