package plans

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("plan not found")

type Repository interface {
	FindByStripePriceID(ctx context.Context, priceID string) (*Plan, error)
	List(ctx context.Context, productID string) ([]Plan, error)
	Upsert(ctx context.Context, p *Plan) (created bool, err error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindByStripePriceID(ctx context.Context, priceID string) (*Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find plan by price %s: %w", priceID, err)
	}
	return &p, nil
}

// List returns plans ordered by price. An empty productID lists every plan.
func (r *GormRepository) List(ctx context.Context, productID string) ([]Plan, error) {
	q := r.db.WithContext(ctx).Model(&Plan{})
	if productID != "" {
		q = q.Where("stripe_product_id = ?", productID)
	}

	var out []Plan
	if err := q.Order("price_eur ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

// Upsert keys on the Stripe price id. An empty incoming tier keeps the stored one.
func (r *GormRepository) Upsert(ctx context.Context, p *Plan) (bool, error) {
	existing, err := r.FindByStripePriceID(ctx, p.StripePriceID)
	if errors.Is(err, ErrNotFound) {
		if p.Tier == "" {
			p.Tier = string(TierFree)
		}
		if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
			return false, fmt.Errorf("create plan: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	existing.Name = p.Name
	existing.PriceEUR = p.PriceEUR
	existing.Interval = p.Interval
	existing.StripeProductID = p.StripeProductID
	if p.Tier != "" {
		existing.Tier = p.Tier
	}
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return false, fmt.Errorf("update plan: %w", err)
	}
	*p = *existing
	return false, nil
}
