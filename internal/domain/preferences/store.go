package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pipevault/internal/domain/users"
)

// Store persists per-user preferences keyed by email. Load returns Defaults()
// for users who never saved anything.
type Store interface {
	Load(ctx context.Context, email string) (Preferences, error)
	Save(ctx context.Context, email string, p Preferences) (Preferences, error)
}

// RedisStore keeps preferences as JSON under "<prefix><email>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "prefs:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + users.NormalizeEmail(email)
}

func (s *RedisStore) Load(ctx context.Context, email string) (Preferences, error) {
	b, err := s.client.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("load preferences: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal(b, &p); err != nil {
		return Defaults(), fmt.Errorf("decode preferences: %w", err)
	}
	return p.Normalize(), nil
}

func (s *RedisStore) Save(ctx context.Context, email string, p Preferences) (Preferences, error) {
	p = p.Normalize()
	b, err := json.Marshal(p)
	if err != nil {
		return p, err
	}
	if err := s.client.Set(ctx, s.key(email), b, 0).Err(); err != nil {
		return p, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, email string) (Preferences, error) {
	var r Record
	err := s.db.WithContext(ctx).Where("email = ?", users.NormalizeEmail(email)).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("load preferences: %w", err)
	}
	return Preferences{
		Locale:         r.Locale,
		Currency:       r.Currency,
		Theme:          r.Theme,
		CollectionView: r.CollectionView,
	}.Normalize(), nil
}

func (s *GormStore) Save(ctx context.Context, email string, p Preferences) (Preferences, error) {
	p = p.Normalize()
	r := Record{
		Email:          users.NormalizeEmail(email),
		Locale:         p.Locale,
		Currency:       p.Currency,
		Theme:          p.Theme,
		CollectionView: p.CollectionView,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"locale", "currency", "theme", "collection_view", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return p, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}
