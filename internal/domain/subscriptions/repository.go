package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("subscription not found")

type Repository interface {
	ListByUser(ctx context.Context, userID uint) ([]Subscription, error)
	FindByProviderRef(ctx context.Context, provider Provider, ref string) (*Subscription, error)
	Upsert(ctx context.Context, s *Subscription) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ListByUser(ctx context.Context, userID uint) ([]Subscription, error) {
	var out []Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions for user %d: %w", userID, err)
	}
	return out, nil
}

func (r *GormRepository) FindByProviderRef(ctx context.Context, provider Provider, ref string) (*Subscription, error) {
	var s Subscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", provider, ref).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription %s/%s: %w", provider, ref, err)
	}
	return &s, nil
}

// Upsert keys on (provider, provider_subscription_id).
func (r *GormRepository) Upsert(ctx context.Context, s *Subscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "tier", "current_period_end", "started_at",
			"stripe_customer_id", "apple_original_transaction_id", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("upsert subscription %s/%s: %w", s.Provider, s.ProviderSubscriptionID, err)
	}
	return nil
}
