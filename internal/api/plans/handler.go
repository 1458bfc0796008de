package plans

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipevault/internal/domain/plans"
	"pipevault/internal/infra/stripe"
)

type PriceSource interface {
	ListRecurringPrices(ctx context.Context, productID string) ([]stripe.Price, error)
}

type Handler struct {
	plans     plans.Repository
	prices    PriceSource
	productID string
	logger    *zap.Logger
}

// NewHandler wires the plan endpoints. prices may be nil when Stripe is not
// configured; sync then answers 503.
func NewHandler(repo plans.Repository, prices PriceSource, productID string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{plans: repo, prices: prices, productID: productID, logger: logger}
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	out, err := h.plans.List(c.Request.Context(), h.productID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	if out == nil {
		out = []plans.Plan{}
	}
	c.JSON(http.StatusOK, out)
}

// POST /admin/sync-plans
//
// Imports EUR recurring prices. Prices whose tier metadata is not a paid
// tier are stored without overriding an existing tier.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	if h.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe key not configured"})
		return
	}

	ctx := c.Request.Context()
	prices, err := h.prices.ListRecurringPrices(ctx, h.productID)
	if err != nil {
		h.logger.Error("fetch stripe prices failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	var created, updated, skipped int
	for _, p := range prices {
		if p.Currency != "eur" || p.Hidden() {
			skipped++
			continue
		}

		tier := ""
		if t, ok := plans.ParsePaidTier(p.Tier()); ok {
			tier = string(t)
		} else if p.Tier() != "" {
			h.logger.Warn("price carries unknown tier metadata",
				zap.String("price_id", p.ID), zap.String("tier", p.Tier()))
		}

		name := p.ProductName
		if v := p.Metadata["plan"]; v != "" {
			name = v
		}

		plan := plans.Plan{
			Name:            name,
			PriceEUR:        float64(p.UnitAmount) / 100.0,
			StripePriceID:   p.ID,
			StripeProductID: p.ProductID,
			Interval:        p.Interval,
			Tier:            tier,
		}
		isNew, err := h.plans.Upsert(ctx, &plan)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store plan"})
			return
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	h.logger.Info("plans synced", zap.Int("created", created), zap.Int("updated", updated), zap.Int("skipped", skipped))
	c.JSON(http.StatusOK, gin.H{
		"synced":  created + updated,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
