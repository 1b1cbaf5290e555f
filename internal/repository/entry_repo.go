package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dog-marker/internal/model"
)

type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("entry_images.id DESC") }).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.key") })
}

// FindLive returns an entry that is not marked for deletion.
func (r *EntryRepository) FindLive(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	return r.find(ctx, id, ExcludeMarked)
}

// FindAny also returns entries already marked for deletion.
func (r *EntryRepository) FindAny(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	return r.find(ctx, id)
}

// LockLive is FindLive holding a row lock until the transaction ends.
// Must run inside Store.Transaction.
func (r *EntryRepository) LockLive(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	return r.find(ctx, id, forUpdate, ExcludeMarked)
}

// LockAny is FindAny holding a row lock until the transaction ends.
func (r *EntryRepository) LockAny(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	return r.find(ctx, id, forUpdate)
}

// sqlite ignores the locking clause; its writers are serialized anyway.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *EntryRepository) find(ctx context.Context, id uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) (model.Entry, error) {
	var entry model.Entry
	err := r.db.WithContext(ctx).
		Scopes(withAssociations).
		Scopes(scopes...).
		Where("entries.id = ?", id).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Entry{}, model.ErrEntryNotFound
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("find entry %s: %w", id, err)
	}
	return entry, nil
}

func (r *EntryRepository) List(ctx context.Context, query VisibilityQuery) ([]model.Entry, error) {
	entries := make([]model.Entry, 0)
	err := r.db.WithContext(ctx).
		Model(&model.Entry{}).
		Scopes(query.Stages()...).
		Scopes(withAssociations).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Create inserts the entry row with its category associations. Images are
// appended separately.
func (r *EntryRepository) Create(ctx context.Context, entry *model.Entry) error {
	if err := r.db.WithContext(ctx).Omit("Images", "HiddenEntries").Create(entry).Error; err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) UpdateFields(ctx context.Context, entry *model.Entry) error {
	err := r.db.WithContext(ctx).
		Model(entry).
		Select("Title", "Description", "WarningLevel", "Longitude", "Latitude", "UpdateDate").
		Updates(entry).Error
	if err != nil {
		return fmt.Errorf("update entry %s: %w", entry.ID, err)
	}
	return nil
}

func (r *EntryRepository) ReplaceCategories(ctx context.Context, entry *model.Entry, categories []model.Category) error {
	if err := r.db.WithContext(ctx).Model(entry).Association("Categories").Replace(categories); err != nil {
		return fmt.Errorf("replace categories of %s: %w", entry.ID, err)
	}
	entry.Categories = categories
	return nil
}

func (r *EntryRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.Entry{}).
		Where("id = ?", id).
		Update("update_date", at).Error
	if err != nil {
		return fmt.Errorf("touch entry %s: %w", id, err)
	}
	return nil
}

// MarkForDeletion sets mark_to_delete unless already set. It reports whether
// this call performed the transition.
func (r *EntryRepository) MarkForDeletion(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Entry{}).
		Where("id = ? AND mark_to_delete IS NULL", id).
		Update("mark_to_delete", at)
	if result.Error != nil {
		return false, fmt.Errorf("mark entry %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Delete removes the row together with its hides and category links.
func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("entry_id = ?", id).Delete(&model.HiddenEntry{}).Error; err != nil {
		return fmt.Errorf("delete hides of %s: %w", id, err)
	}
	if err := db.Model(&model.Entry{ID: id}).Association("Categories").Clear(); err != nil {
		return fmt.Errorf("clear categories of %s: %w", id, err)
	}

	result := db.Where("id = ?", id).Delete(&model.Entry{})
	if result.Error != nil {
		return fmt.Errorf("delete entry %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrEntryNotFound
	}
	return nil
}

// TrashedForPurge lists owner-trashed entries that still need a purge step:
// unmarked ones, and marked ones whose images are all resolved.
func (r *EntryRepository) TrashedForPurge(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).
		Model(&model.Entry{}).
		Where(trashedByOwner).
		Where("(entries.mark_to_delete IS NULL OR NOT " + hasImages + ")").
		Order("entries.id").
		Pluck("entries.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("scan trashed entries: %w", err)
	}
	return ids, nil
}

// MarkedBefore lists entries marked for deletion at or before the horizon.
func (r *EntryRepository) MarkedBefore(ctx context.Context, horizon time.Time) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).
		Model(&model.Entry{}).
		Where("entries.mark_to_delete IS NOT NULL AND entries.mark_to_delete <= ?", horizon.UTC()).
		Order("entries.id").
		Pluck("entries.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("scan expired entries: %w", err)
	}
	return ids, nil
}
