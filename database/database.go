package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/preferences"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate enables pgcrypto (subscription ids use gen_random_uuid) and
// migrates every model.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&users.User{},
		&subscriptions.Subscription{},
		&plans.Plan{},
		&preferences.Record{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
