package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string
	AppEnv     string
	AppURL     string
	DBURL      string
	JWTSecret  string
	CORSOrigin string
	RedisURL   string
	LogLevel   string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string
	BillingPortalURL    string
	AppStoreURL         string

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string

	RateLimitRPS   float64
	RateLimitBurst int
}

// GoogleEnabled reports whether all three Google OAuth settings are present.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var required = []string{"DB_URL", "JWT_SECRET"}

// Load reads .env (if present) and the process environment. Environment
// variables win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STRIPE_BILLING_PORTAL_URL", "https://billing.stripe.com/p/login")
	v.SetDefault("APP_STORE_URL", "https://apps.apple.com/account/subscriptions")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	var missing []string
	for _, k := range required {
		if strings.TrimSpace(v.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Port:       v.GetString("PORT"),
		AppEnv:     v.GetString("APP_ENV"),
		AppURL:     strings.TrimRight(v.GetString("APP_URL"), "/"),
		DBURL:      v.GetString("DB_URL"),
		JWTSecret:  v.GetString("JWT_SECRET"),
		CORSOrigin: v.GetString("CORS_ORIGIN"),
		RedisURL:   v.GetString("REDIS_URL"),
		LogLevel:   v.GetString("LOG_LEVEL"),

		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeProductID:     v.GetString("STRIPE_PRODUCT_ID"),
		BillingPortalURL:    v.GetString("STRIPE_BILLING_PORTAL_URL"),
		AppStoreURL:         v.GetString("APP_STORE_URL"),

		GoogleClientID:         v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:     v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:      v.GetString("GOOGLE_REDIRECT_URL"),
		GoogleFrontendRedirect: v.GetString("GOOGLE_FRONTEND_REDIRECT"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
	}

	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return cfg, nil
}
