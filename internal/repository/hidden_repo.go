package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dog-marker/internal/model"
)

type HiddenEntryRepository struct {
	db *gorm.DB
}

func NewHiddenEntryRepository(db *gorm.DB) *HiddenEntryRepository {
	return &HiddenEntryRepository{db: db}
}

func (r *HiddenEntryRepository) Exists(ctx context.Context, entryID uuid.UUID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.HiddenEntry{}).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check hidden entry: %w", err)
	}
	return count > 0, nil
}

// Create inserts the pair and reports whether it was new.
func (r *HiddenEntryRepository) Create(ctx context.Context, hidden model.HiddenEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&hidden)
	if result.Error != nil {
		return false, fmt.Errorf("create hidden entry: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteIfUnmarked removes the pair only while its entry is not marked for
// deletion and reports whether a row went away. Once marked, the owner's hide
// must stay so the purge can finish.
func (r *HiddenEntryRepository) DeleteIfUnmarked(ctx context.Context, entryID uuid.UUID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		Where(`EXISTS (SELECT 1 FROM entries e
			WHERE e.id = hidden_entries.entry_id AND e.mark_to_delete IS NULL)`).
		Delete(&model.HiddenEntry{})
	if result.Error != nil {
		return false, fmt.Errorf("delete hidden entry: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
