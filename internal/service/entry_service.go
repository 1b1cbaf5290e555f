package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dog-marker/internal/event"
	"dog-marker/internal/geo"
	"dog-marker/internal/model"
	"dog-marker/internal/repository"
	"dog-marker/internal/util"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

type ListOptions struct {
	ViewerID   *uuid.UUID
	Near       *geo.Coordinate
	MinWarning *model.WarningLevel
	Since      *time.Time
	Skip       int
	Limit      int
}

func (o ListOptions) window() (int, int) {
	skip := max(o.Skip, 0)
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return skip, min(limit, MaxListLimit)
}

type EntryService struct {
	store     *repository.Store
	lifecycle *LifecycleService
	bus       event.Bus
}

func NewEntryService(store *repository.Store, lifecycle *LifecycleService, bus event.Bus) *EntryService {
	return &EntryService{store: store, lifecycle: lifecycle, bus: bus}
}

// ListVisible returns what the viewer may see on the map.
func (s *EntryService) ListVisible(ctx context.Context, opts ListOptions) ([]model.EntryView, model.Meta, error) {
	skip, limit := opts.window()
	entries, err := s.store.Entries.List(ctx, repository.VisibilityQuery{
		ViewerID:   opts.ViewerID,
		Near:       opts.Near,
		MinWarning: opts.MinWarning,
		Since:      opts.Since,
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		return nil, model.Meta{}, err
	}
	return views(entries, opts.ViewerID), model.Meta{Skip: skip, Limit: limit, Count: len(entries)}, nil
}

// ListOwned returns the owner's live entries. Trashed ones are included only
// on request.
func (s *EntryService) ListOwned(ctx context.Context, owner uuid.UUID, includeTrash bool, opts ListOptions) ([]model.EntryView, model.Meta, error) {
	skip, limit := opts.window()
	query := repository.VisibilityQuery{
		OwnerID:    &owner,
		Near:       opts.Near,
		MinWarning: opts.MinWarning,
		Since:      opts.Since,
		Skip:       skip,
		Limit:      limit,
	}
	if includeTrash {
		query.IgnoreTrashOf = []uuid.UUID{owner}
	}

	entries, err := s.store.Entries.List(ctx, query)
	if err != nil {
		return nil, model.Meta{}, err
	}
	return views(entries, &owner), model.Meta{Skip: skip, Limit: limit, Count: len(entries)}, nil
}

// ListTrash returns the owner's trashed entries that can still be restored.
func (s *EntryService) ListTrash(ctx context.Context, owner uuid.UUID, opts ListOptions) ([]model.EntryView, model.Meta, error) {
	skip, limit := opts.window()
	entries, err := s.store.Entries.List(ctx, repository.VisibilityQuery{
		TrashOf: &owner,
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		return nil, model.Meta{}, err
	}
	return views(entries, &owner), model.Meta{Skip: skip, Limit: limit, Count: len(entries)}, nil
}

func (s *EntryService) Get(ctx context.Context, entryID uuid.UUID, viewer *uuid.UUID) (model.EntryView, error) {
	entry, err := s.store.Entries.FindLive(ctx, entryID)
	if err != nil {
		return model.EntryView{}, err
	}
	return model.NewEntryView(entry, viewer), nil
}

func (s *EntryService) Create(ctx context.Context, owner uuid.UUID, req model.CreateEntryRequest) (model.EntryView, error) {
	title, err := validateEntryFields(req.Title, req.Longitude, req.Latitude, req.WarningLevel)
	if err != nil {
		return model.EntryView{}, err
	}

	now := s.lifecycle.Now()
	entry := model.Entry{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       title,
		Description: util.CleanOptional(req.Description, util.MaxDescriptionRunes),
		Longitude:   req.Longitude,
		Latitude:    req.Latitude,
		CreateDate:  now,
		UpdateDate:  now,
	}
	if req.ID != nil {
		entry.ID = *req.ID
	}
	if req.WarningLevel != nil {
		entry.WarningLevel = *req.WarningLevel
	}
	if req.CreateDate != nil {
		entry.CreateDate = req.CreateDate.UTC()
		if entry.CreateDate.After(entry.UpdateDate) {
			entry.UpdateDate = entry.CreateDate
		}
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		categories, err := tx.Categories.FindByKeys(ctx, req.Categories)
		if err != nil {
			return invalidCategory(err)
		}
		entry.Categories = categories

		if err := tx.Entries.Create(ctx, &entry); err != nil {
			return err
		}
		if req.ImagePath != nil {
			if err := tx.Images.Append(ctx, &model.EntryImage{
				EntryID:        entry.ID,
				ImagePath:      req.ImagePath,
				ImageDeleteURL: req.ImageDeleteURL,
				CreateDate:     now,
			}); err != nil {
				return err
			}
		}

		entry, err = tx.Entries.FindLive(ctx, entry.ID)
		return err
	})
	if err != nil {
		return model.EntryView{}, err
	}

	s.publish(event.TypeEntryCreated, entry, owner)
	return model.NewEntryView(entry, &owner), nil
}

// Update rewrites the entry's fields. A changed image is appended as a new row.
func (s *EntryService) Update(ctx context.Context, entryID uuid.UUID, actor uuid.UUID, req model.UpdateEntryRequest) (model.EntryView, error) {
	title, err := validateEntryFields(req.Title, req.Longitude, req.Latitude, req.WarningLevel)
	if err != nil {
		return model.EntryView{}, err
	}

	var entry model.Entry
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		entry, err = tx.Entries.FindLive(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.UserID != actor {
			return model.ErrNotAuthorized
		}

		now := s.lifecycle.Now()
		entry.Title = title
		entry.Description = util.CleanOptional(req.Description, util.MaxDescriptionRunes)
		entry.Longitude = req.Longitude
		entry.Latitude = req.Latitude
		if req.WarningLevel != nil {
			entry.WarningLevel = *req.WarningLevel
		}
		if now.After(entry.UpdateDate) {
			entry.UpdateDate = now
		}
		if err := tx.Entries.UpdateFields(ctx, &entry); err != nil {
			return err
		}

		if req.Categories != nil {
			categories, err := tx.Categories.FindByKeys(ctx, req.Categories)
			if err != nil {
				return invalidCategory(err)
			}
			if err := tx.Entries.ReplaceCategories(ctx, &entry, categories); err != nil {
				return err
			}
		}

		if imageChanged(entry.LatestImage(), req.ImagePath, req.ImageDeleteURL) {
			if err := tx.Images.Append(ctx, &model.EntryImage{
				EntryID:        entry.ID,
				ImagePath:      req.ImagePath,
				ImageDeleteURL: req.ImageDeleteURL,
				CreateDate:     now,
			}); err != nil {
				return err
			}
		}

		entry, err = tx.Entries.FindLive(ctx, entryID)
		return err
	})
	if err != nil {
		return model.EntryView{}, err
	}

	s.publish(event.TypeEntryUpdated, entry, actor)
	return model.NewEntryView(entry, &actor), nil
}

// Delete hides the entry for actor. For the owner this moves it to the trash.
func (s *EntryService) Delete(ctx context.Context, entryID uuid.UUID, actor uuid.UUID) error {
	return s.lifecycle.Hide(ctx, entryID, actor)
}

// Restore reverses Delete: the owner gets the entry back from the trash, any
// other viewer sees it again.
func (s *EntryService) Restore(ctx context.Context, entryID uuid.UUID, actor uuid.UUID) error {
	entry, err := s.store.Entries.FindLive(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID == actor {
		return s.lifecycle.UndoTrash(ctx, entryID, actor)
	}
	return s.lifecycle.Unhide(ctx, entryID, actor)
}

func (s *EntryService) publish(kind event.Type, entry model.Entry, actor uuid.UUID) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(kind, event.EntryPayload{EntryID: entry.ID, OwnerID: entry.UserID}, &actor))
}

func validateEntryFields(title string, longitude float64, latitude float64, level *model.WarningLevel) (string, error) {
	title = util.CleanText(title, util.MaxTitleRunes, false)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if err := (geo.Coordinate{Longitude: longitude, Latitude: latitude}).Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if level != nil && !level.Valid() {
		return "", fmt.Errorf("%w: warning level %d out of range", model.ErrInvalidInput, int(*level))
	}
	return title, nil
}

// An unknown category in a request body is a client error, not a missing resource.
func invalidCategory(err error) error {
	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}

func imageChanged(latest *model.EntryImage, path *string, deleteURL *string) bool {
	if latest == nil {
		return path != nil
	}
	return !equalPtr(latest.ImagePath, path) || !equalPtr(latest.ImageDeleteURL, deleteURL)
}

func equalPtr(a *string, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func views(entries []model.Entry, viewer *uuid.UUID) []model.EntryView {
	out := make([]model.EntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, model.NewEntryView(entry, viewer))
	}
	return out
}
