package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dog-marker/internal/model"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	categories := make([]model.Category, 0)
	if err := r.db.WithContext(ctx).Order("key").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByKeys fails with ErrCategoryNotFound if any key is unknown.
func (r *CategoryRepository) FindByKeys(ctx context.Context, keys []string) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(keys))
	if len(keys) == 0 {
		return categories, nil
	}

	if err := r.db.WithContext(ctx).Where("key IN ?", keys).Order("key").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	found := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		found[category.Key] = struct{}{}
	}
	for _, key := range keys {
		if _, ok := found[key]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrCategoryNotFound, key)
		}
	}

	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category model.Category) error {
	if err := r.db.WithContext(ctx).Create(&category).Error; err != nil {
		return fmt.Errorf("create category %s: %w", category.Key, err)
	}
	return nil
}
