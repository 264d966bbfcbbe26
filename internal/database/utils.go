package database

import (
	"context"

	"gorm.io/gorm"
)

// CreateEntities inserts a batch of records of type T.
func CreateEntities[T any](ctx context.Context, db *gorm.DB, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&entities).Error
}

// FindWhere returns all records of type T matching the condition, ordered by order.
func FindWhere[T any](ctx context.Context, db *gorm.DB, order string, query string, args ...interface{}) ([]T, error) {
	var out []T
	tx := db.WithContext(ctx).Where(query, args...)
	if order != "" {
		tx = tx.Order(order)
	}
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountWhere counts records of type T matching the condition.
func CountWhere[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (int64, error) {
	var zero T
	var count int64
	if err := db.WithContext(ctx).Model(&zero).Where(query, args...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// WithTx runs fn within a transaction.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// GetEntityByName returns a single record of type T by its name column.
func GetEntityByName[T any](ctx context.Context, db *gorm.DB, name string) (*T, error) {
	var out T
	if err := db.WithContext(ctx).Where("name = ?", name).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
