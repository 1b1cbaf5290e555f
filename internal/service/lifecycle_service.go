package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dog-marker/internal/event"
	"dog-marker/internal/model"
	"dog-marker/internal/repository"
)

// PurgeOutcome reports what BeginPurge did. At most one of the fields is set:
// the entry still owns images that must be resolved first, or the row is gone,
// or the owner restored it before the task ran and nothing happened.
type PurgeOutcome struct {
	ImageIDs []int64
	Purged   bool
	Skipped  bool
}

// LifecycleService owns every state transition of an entry:
// Active -> Trash -> PendingPurge -> Purged, plus per-viewer hides.
type LifecycleService struct {
	store  *repository.Store
	bus    event.Bus
	logger *slog.Logger
	now    func() time.Time
}

func NewLifecycleService(store *repository.Store, bus event.Bus, logger *slog.Logger) *LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// Hide records that actor no longer wants to see the entry. When actor owns
// the entry this is the trash transition.
func (s *LifecycleService) Hide(ctx context.Context, entryID uuid.UUID, actor uuid.UUID) error {
	var (
		entry   model.Entry
		created bool
	)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		entry, err = tx.Entries.FindLive(ctx, entryID)
		if err != nil {
			return err
		}

		now := s.now()
		created, err = tx.Hidden.Create(ctx, model.HiddenEntry{
			EntryID:    entryID,
			UserID:     actor,
			CreateDate: now,
			UpdateDate: now,
		})
		if err != nil {
			return err
		}

		if created && entry.UserID == actor {
			return tx.Entries.Touch(ctx, entryID, now)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		kind := event.TypeEntryHidden
		if entry.UserID == actor {
			kind = event.TypeEntryTrashed
		}
		s.publish(kind, event.EntryPayload{EntryID: entryID, OwnerID: entry.UserID}, &actor)
	}
	return nil
}

// Unhide removes actor's hide. A missing hide is not an error. For the owner
// this reverses trash, which is only possible until the entry is marked.
func (s *LifecycleService) Unhide(ctx context.Context, entryID uuid.UUID, actor uuid.UUID) error {
	var (
		entry   model.Entry
		removed bool
	)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		entry, err = tx.Entries.LockLive(ctx, entryID)
		if err != nil {
			return err
		}

		removed, err = tx.Hidden.DeleteIfUnmarked(ctx, entryID, actor)
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		kind := event.TypeEntryUnhidden
		if entry.UserID == actor {
			kind = event.TypeEntryRestored
		}
		s.publish(kind, event.EntryPayload{EntryID: entryID, OwnerID: entry.UserID}, &actor)
	}
	return nil
}

// UndoTrash is the owner-only form of Unhide.
func (s *LifecycleService) UndoTrash(ctx context.Context, entryID uuid.UUID, actor uuid.UUID) error {
	entry, err := s.store.Entries.FindLive(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != actor {
		return model.ErrNotAuthorized
	}
	return s.Unhide(ctx, entryID, actor)
}

// MarkForPurge stamps mark_to_delete once. It reports whether this call made
// the transition.
func (s *LifecycleService) MarkForPurge(ctx context.Context, entryID uuid.UUID) (bool, error) {
	entry, err := s.store.Entries.FindAny(ctx, entryID)
	if err != nil {
		return false, err
	}

	changed, err := s.store.Entries.MarkForDeletion(ctx, entryID, s.now())
	if err != nil {
		return false, err
	}
	if changed {
		s.publish(event.TypeEntryMarked, event.EntryPayload{EntryID: entryID, OwnerID: entry.UserID}, nil)
	}
	return changed, nil
}

// ResolveImages lists the images still attached to the entry, most recent first.
func (s *LifecycleService) ResolveImages(ctx context.Context, entryID uuid.UUID) ([]model.EntryImage, error) {
	if _, err := s.store.Entries.FindAny(ctx, entryID); err != nil {
		return nil, err
	}
	return s.store.Images.ListByEntry(ctx, entryID)
}

// Purge removes the entry with its hides and category links. It refuses while
// images are still attached.
func (s *LifecycleService) Purge(ctx context.Context, entryID uuid.UUID) error {
	var ownerID uuid.UUID

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		entry, err := tx.Entries.FindAny(ctx, entryID)
		if err != nil {
			return err
		}
		ownerID = entry.UserID

		images, err := tx.Images.ListByEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			return fmt.Errorf("purge %s: %w", entryID, model.ErrEntryHasImages)
		}

		return tx.Entries.Delete(ctx, entryID)
	})
	if err != nil {
		return err
	}

	s.publish(event.TypeEntryPurged, event.EntryPayload{EntryID: entryID, OwnerID: ownerID}, nil)
	return nil
}

// BeginPurge marks the entry and then either returns its images for
// reconciliation or, when none remain, purges it. One transaction. An
// unmarked entry is only marked while its owner still has it in trash.
func (s *LifecycleService) BeginPurge(ctx context.Context, entryID uuid.UUID) (PurgeOutcome, error) {
	var (
		outcome PurgeOutcome
		ownerID uuid.UUID
		marked  bool
	)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		entry, err := tx.Entries.LockAny(ctx, entryID)
		if err != nil {
			return err
		}
		ownerID = entry.UserID

		if !entry.Marked() {
			trashed, err := tx.Hidden.Exists(ctx, entryID, entry.UserID)
			if err != nil {
				return err
			}
			if !trashed {
				outcome.Skipped = true
				return nil
			}
		}

		marked, err = tx.Entries.MarkForDeletion(ctx, entryID, s.now())
		if err != nil {
			return err
		}

		images, err := tx.Images.ListByEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			outcome.ImageIDs = make([]int64, 0, len(images))
			for _, image := range images {
				outcome.ImageIDs = append(outcome.ImageIDs, image.ID)
			}
			return nil
		}

		if err := tx.Entries.Delete(ctx, entryID); err != nil {
			return err
		}
		outcome.Purged = true
		return nil
	})
	if err != nil {
		return PurgeOutcome{}, err
	}

	payload := event.EntryPayload{EntryID: entryID, OwnerID: ownerID}
	if marked {
		s.publish(event.TypeEntryMarked, payload, nil)
	}
	if outcome.Purged {
		s.publish(event.TypeEntryPurged, payload, nil)
	}
	return outcome, nil
}

// ImageState is an image together with what the reconciler needs to know
// about its entry.
type ImageState struct {
	Image model.EntryImage
	// Marked is true when the entry is marked for deletion or already gone.
	Marked bool
	// Latest is true when the image is the entry's current one, images[0].
	Latest bool
}

// ImageTarget loads an image and the state of its entry.
func (s *LifecycleService) ImageTarget(ctx context.Context, imageID int64) (ImageState, error) {
	image, err := s.store.Images.FindByID(ctx, imageID)
	if err != nil {
		return ImageState{}, err
	}

	entry, err := s.store.Entries.FindAny(ctx, image.EntryID)
	if errors.Is(err, model.ErrNotFound) {
		return ImageState{Image: image, Marked: true}, nil
	}
	if err != nil {
		return ImageState{}, err
	}

	latest := entry.LatestImage()
	return ImageState{
		Image:  image,
		Marked: entry.Marked(),
		Latest: latest != nil && latest.ID == image.ID,
	}, nil
}

// DeleteImage drops a resolved image row. Deleting a missing image is a no-op.
func (s *LifecycleService) DeleteImage(ctx context.Context, image model.EntryImage) error {
	removed, err := s.store.Images.Delete(ctx, image.ID)
	if err != nil {
		return err
	}
	if removed {
		s.publish(event.TypeImageDeleted, event.ImagePayload{ImageID: image.ID, EntryID: image.EntryID}, nil)
	}
	return nil
}

// TrashedForPurge lists owner-trashed entries that a BeginPurge can advance.
func (s *LifecycleService) TrashedForPurge(ctx context.Context) ([]uuid.UUID, error) {
	return s.store.Entries.TrashedForPurge(ctx)
}

// ExpiredMarked lists entries marked at or before the horizon.
func (s *LifecycleService) ExpiredMarked(ctx context.Context, horizon time.Time) ([]uuid.UUID, error) {
	return s.store.Entries.MarkedBefore(ctx, horizon)
}

func (s *LifecycleService) AllImageIDs(ctx context.Context) ([]int64, error) {
	return s.store.Images.AllIDs(ctx)
}

func (s *LifecycleService) Now() time.Time {
	return s.now()
}

func (s *LifecycleService) publish(kind event.Type, payload any, actor *uuid.UUID) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(kind, payload, actor))
}
