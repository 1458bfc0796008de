package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pipevault/config"
	"pipevault/database"
	adminapi "pipevault/internal/api/admin"
	analyticsapi "pipevault/internal/api/analytics"
	authapi "pipevault/internal/api/auth"
	billingapi "pipevault/internal/api/billing"
	entitlementsapi "pipevault/internal/api/entitlements"
	plansapi "pipevault/internal/api/plans"
	preferencesapi "pipevault/internal/api/preferences"
	stripewebhooks "pipevault/internal/api/stripewebhook"
	usersapi "pipevault/internal/api/users"
	routes "pipevault/internal/app/http"
	"pipevault/internal/app/http/middleware"
	"pipevault/internal/app/logging"
	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/preferences"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/infra/stripe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("connected and migrated")

	userRepo := users.NewGormRepository(db)
	subRepo := subscriptions.NewGormRepository(db)
	planRepo := plans.NewGormRepository(db)

	// Stripe is optional in development. Interfaces stay nil (not typed nil)
	// when it is missing.
	var (
		source  entitlements.Source
		gateway billingapi.Gateway
		prices  plansapi.PriceSource
	)
	if sc, err := stripe.NewClient(cfg.StripeSecretKey); err == nil {
		source = entitlements.NewBillingSource(sc, planRepo)
		gateway = sc
		prices = sc
	} else {
		logger.Warn("stripe disabled", zap.Error(err))
	}

	var prefStore preferences.Store = preferences.NewGormStore(db)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis url", zap.Error(err))
		}
		prefStore = preferences.NewRedisStore(redis.NewClient(opt), "")
	}

	policies := access.NewService(userRepo, subRepo, source, logger)
	syncer := billing.NewSyncer(userRepo, subRepo, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	authHandler := authapi.NewHandler(userRepo, cfg.JWTSecret, logger)
	var google *authapi.Google
	if cfg.GoogleEnabled() {
		google = authapi.NewGoogle(authHandler, authapi.GoogleConfig{
			ClientID:         cfg.GoogleClientID,
			ClientSecret:     cfg.GoogleClientSecret,
			RedirectURL:      cfg.GoogleRedirectURL,
			FrontendRedirect: cfg.GoogleFrontendRedirect,
		})
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", billingapi.NativeBridgeHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:    cfg.JWTSecret,
		Policies:     policies,
		RateLimiter:  middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Auth:         authHandler,
		Google:       google,
		Users:        usersapi.NewHandler(policies),
		Entitlements: entitlementsapi.NewHandler(policies),
		Billing: billingapi.NewHandler(policies, userRepo, planRepo, gateway, billingapi.Config{
			AppURL:      cfg.AppURL,
			AppEnv:      cfg.AppEnv,
			PortalURL:   cfg.BillingPortalURL,
			AppStoreURL: cfg.AppStoreURL,
		}, logger),
		Plans:       plansapi.NewHandler(planRepo, prices, cfg.StripeProductID, logger),
		Preferences: preferencesapi.NewHandler(prefStore, logger),
		Analytics:   analyticsapi.NewHandler(userRepo, subRepo),
		Admin:       adminapi.NewHandler(userRepo, policies, logger),
		Importer:    adminapi.NewImporter(userRepo, syncer, logger),
		Webhook:     stripewebhooks.NewHandler(cfg.StripeWebhookSecret, userRepo, subRepo, planRepo, syncer, logger),
	})

	logger.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
