package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context) ([]User, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) first(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) FindByID(ctx context.Context, id uint) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *GormRepository) FindByGoogleSub(ctx context.Context, sub string) (*User, error) {
	return r.first(ctx, "google_sub = ?", sub)
}

func (r *GormRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	return r.first(ctx, "stripe_customer_id = ?", customerID)
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update persists only the given columns.
func (r *GormRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context) ([]User, error) {
	var out []User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}
