package entitlements

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/users"
)

type Handler struct {
	policies access.Loader
}

func NewHandler(policies access.Loader) *Handler {
	return &Handler{policies: policies}
}

func (h *Handler) load(c *gin.Context) (*users.User, access.Policy, bool) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, access.Policy{}, false
	}
	u, p, err := h.policies.PolicyFor(c.Request.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, access.Policy{}, false
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entitlements"})
		return nil, access.Policy{}, false
	}
	return u, p, true
}

type featureState struct {
	Feature string `json:"feature"`
	Allowed bool   `json:"allowed"`
}

// GET /entitlements
func (h *Handler) List(c *gin.Context) {
	_, p, ok := h.load(c)
	if !ok {
		return
	}

	states := make([]featureState, 0, len(entitlements.KnownFeatures))
	for _, f := range entitlements.KnownFeatures {
		states = append(states, featureState{Feature: string(f), Allowed: p.Allows(string(f))})
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":              p.Tier,
		"is_premium_legacy": p.Entitlements.IsPremiumLegacy,
		"pro_access_reason": p.ProAccessReason,
		"features":          states,
		"limits":            p.Entitlements.Limits,
	})
}

// GET /entitlements/features/:feature
func (h *Handler) CheckFeature(c *gin.Context) {
	feature := strings.ToUpper(strings.TrimSpace(c.Param("feature")))
	_, p, ok := h.load(c)
	if !ok {
		return
	}

	allowed := p.Allows(feature)
	outcome := "denied"
	if allowed {
		outcome = "granted"
	}
	label := feature
	if !entitlements.IsKnownFeature(feature) {
		label = "unknown"
	}
	metrics.FeatureChecks.WithLabelValues(label, outcome).Inc()

	c.JSON(http.StatusOK, gin.H{"feature": feature, "allowed": allowed, "tier": p.Tier})
}

// POST /entitlements/limits/check
func (h *Handler) CheckLimit(c *gin.Context) {
	var input struct {
		Resource string `json:"resource" binding:"required"`
		Current  *int   `json:"current" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *input.Current < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current must not be negative"})
		return
	}

	res := entitlements.Resource(strings.ToLower(strings.TrimSpace(input.Resource)))
	_, p, ok := h.load(c)
	if !ok {
		return
	}

	limit, known := p.Entitlements.Limits.For(res)
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown resource"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resource": res,
		"limit":    limit,
		"current":  *input.Current,
		"allowed":  p.Entitlements.Limits.Allows(res, *input.Current),
	})
}
