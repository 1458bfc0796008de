package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "pipevault/internal/api/admin"
	analyticsapi "pipevault/internal/api/analytics"
	authapi "pipevault/internal/api/auth"
	"pipevault/internal/api/billing"
	entitlementsapi "pipevault/internal/api/entitlements"
	"pipevault/internal/api/plans"
	preferencesapi "pipevault/internal/api/preferences"
	stripewebhooks "pipevault/internal/api/stripewebhook"
	"pipevault/internal/api/users"
	"pipevault/internal/app/http/middleware"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/entitlements"
)

// Deps holds everything the router needs. Google is nil when Google sign-in
// is not configured.
type Deps struct {
	JWTSecret   string
	Policies    access.Loader
	RateLimiter *middleware.RateLimiter
	Metrics     http.Handler

	Auth         *authapi.Handler
	Google       *authapi.Google
	Users        *users.Handler
	Entitlements *entitlementsapi.Handler
	Billing      *billing.Handler
	Plans        *plans.Handler
	Preferences  *preferencesapi.Handler
	Analytics    *analyticsapi.Handler
	Admin        *adminapi.Handler
	Importer     *adminapi.Importer
	Webhook      *stripewebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.POST("/webhook", d.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/plans", d.Plans.ListPlans)

	public := r.Group("/")
	public.Use(d.RateLimiter.Middleware(), middleware.SanitizeInput())
	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)
	if d.Google != nil {
		public.GET("/auth/google", d.Google.Start)
		public.GET("/auth/google/callback", d.Google.Callback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret), d.RateLimiter.Middleware())
	auth.GET("/me", d.Users.GetCurrentUser)

	auth.GET("/entitlements", d.Entitlements.List)
	auth.GET("/entitlements/features/:feature", d.Entitlements.CheckFeature)
	auth.POST("/entitlements/limits/check", d.Entitlements.CheckLimit)

	auth.POST("/subscription/manage", d.Billing.ManageSubscription)
	auth.POST("/billing-portal", d.Billing.CreateBillingPortal)
	auth.POST("/create-checkout-session", d.Billing.CreateCheckoutSession)

	auth.GET("/preferences", d.Preferences.Get)
	auth.PUT("/preferences", middleware.SanitizeInput(), d.Preferences.Update)

	auth.GET("/analytics/summary",
		middleware.RequireFeature(d.Policies, string(entitlements.FeatureAnalyticsStats)),
		d.Analytics.GetSummary)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole("admin", "owner"))
	admin.GET("/users", d.Admin.ListAllUsers)
	admin.GET("/stats", d.Admin.Stats)
	admin.GET("/users/:email/access", d.Admin.GetUserAccess)
	admin.POST("/sync-plans", d.Plans.SyncPlansFromStripe)
	admin.POST("/subscriptions/import", middleware.SanitizeInput(), d.Importer.ImportSubscriptions)
}
