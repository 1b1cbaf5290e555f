package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dog-marker/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) FindByID(ctx context.Context, id int64) (model.EntryImage, error) {
	var image model.EntryImage
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.EntryImage{}, model.ErrImageNotFound
	}
	if err != nil {
		return model.EntryImage{}, fmt.Errorf("find image %d: %w", id, err)
	}
	return image, nil
}

// ListByEntry returns the entry's images, most recent first.
func (r *ImageRepository) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]model.EntryImage, error) {
	images := make([]model.EntryImage, 0)
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("id DESC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("list images of %s: %w", entryID, err)
	}
	return images, nil
}

func (r *ImageRepository) Append(ctx context.Context, image *model.EntryImage) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("append image to %s: %w", image.EntryID, err)
	}
	return nil
}

// Delete reports whether a row was removed.
func (r *ImageRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.EntryImage{})
	if result.Error != nil {
		return false, fmt.Errorf("delete image %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *ImageRepository) AllIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	if err := r.db.WithContext(ctx).Model(&model.EntryImage{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	return ids, nil
}
