package internal

import (
	"context"

	"gorm.io/gorm"
)

// DAO provides generic database operations for resources
type DAO[T any] struct {
	db *gorm.DB
}

// NewDAO creates a new DAO instance
func NewDAO[T any](db *gorm.DB) *DAO[T] {
	return &DAO[T]{db: db}
}

// WithTx returns a DAO bound to the given transaction.
func (d *DAO[T]) WithTx(tx *gorm.DB) *DAO[T] {
	return &DAO[T]{db: tx}
}

// Create creates a new resource
func (d *DAO[T]) Create(ctx context.Context, resource *T) error {
	return d.db.WithContext(ctx).Create(resource).Error
}

// Get retrieves a resource by ID
func (d *DAO[T]) Get(ctx context.Context, id uint) (*T, error) {
	var resource T
	err := d.db.WithContext(ctx).First(&resource, id).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

// List retrieves all resources ordered by primary key.
func (d *DAO[T]) List(ctx context.Context) ([]T, error) {
	var resources []T
	if err := d.db.WithContext(ctx).Order("id").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

// Save writes every column of resource, including zero values.
func (d *DAO[T]) Save(ctx context.Context, resource *T) error {
	return d.db.WithContext(ctx).Save(resource).Error
}

// Delete deletes a resource by ID
func (d *DAO[T]) Delete(ctx context.Context, id uint) error {
	var resource T
	result := d.db.WithContext(ctx).Delete(&resource, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists reports whether a row other than excludeID has column equal to value.
func (d *DAO[T]) Exists(ctx context.Context, column string, value any, excludeID uint) (bool, error) {
	var obj T
	query := d.db.WithContext(ctx).Model(&obj).Where(map[string]any{column: value})
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AutoMigrate performs database migration for the resource
func (d *DAO[T]) AutoMigrate() error {
	var obj T
	return d.db.AutoMigrate(&obj)
}

// Transaction executes a function within a database transaction
func (d *DAO[T]) Transaction(ctx context.Context, fc func(tx *DAO[T]) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fc(d.WithTx(tx))
	})
}
