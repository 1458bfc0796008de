package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/users"
)

// PolicyKey is the context key under which RequireFeature stores the
// computed access.Policy.
const PolicyKey = "policy"

// RequireFeature admits users whose policy grants feature. Must run after
// AuthMiddleware.
func RequireFeature(loader access.Loader, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		_, policy, err := loader.PolicyFor(c.Request.Context(), email)
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entitlements"})
			return
		}

		if !policy.Allows(feature) {
			metrics.FeatureChecks.WithLabelValues(feature, "denied").Inc()
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "Upgrade required",
				"feature": feature,
				"tier":    policy.Tier,
			})
			return
		}

		metrics.FeatureChecks.WithLabelValues(feature, "granted").Inc()
		c.Set(PolicyKey, policy)
		c.Next()
	}
}
