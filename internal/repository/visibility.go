package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dog-marker/internal/geo"
	"dog-marker/internal/model"
)

const (
	hiddenByUser = `EXISTS (SELECT 1 FROM hidden_entries h
		WHERE h.entry_id = entries.id AND h.user_id = ?)`
	trashedByOwner = `EXISTS (SELECT 1 FROM hidden_entries h
		WHERE h.entry_id = entries.id AND h.user_id = entries.user_id)`
	hasImages = `EXISTS (SELECT 1 FROM entry_images i WHERE i.entry_id = entries.id)`
)

// VisibilityQuery describes what a caller wants to see. Zero value lists every
// live, untrashed entry.
type VisibilityQuery struct {
	// ViewerID hides the viewer's personal hides. Ignored when OwnerID is set.
	ViewerID *uuid.UUID
	// OwnerID restricts the result to one owner's rows.
	OwnerID *uuid.UUID
	// TrashOf switches to the trash view: only rows the given user self-trashed.
	TrashOf *uuid.UUID
	// IgnoreTrashOf lists owners whose self-trashed rows stay visible.
	IgnoreTrashOf []uuid.UUID

	Near       *geo.Coordinate
	MinWarning *model.WarningLevel
	Since      *time.Time

	Skip  int
	Limit int
}

// Stages returns the filter as gorm scopes in their fixed application order.
// Each stage is a no-op when its inputs are absent.
func (q VisibilityQuery) Stages() []func(*gorm.DB) *gorm.DB {
	return []func(*gorm.DB) *gorm.DB{
		ExcludeMarked,
		q.OwnerOrViewer,
		q.SelfTrash,
		q.RecencyAndLevel,
		q.DistanceOrder,
		q.Window,
	}
}

// ExcludeMarked is the hard floor: entries marked for deletion are never listed.
func ExcludeMarked(db *gorm.DB) *gorm.DB {
	return db.Where("entries.mark_to_delete IS NULL")
}

func (q VisibilityQuery) OwnerOrViewer(db *gorm.DB) *gorm.DB {
	switch {
	case q.OwnerID != nil:
		return db.Where("entries.user_id = ?", *q.OwnerID)
	case q.ViewerID != nil:
		return db.Where("NOT "+hiddenByUser, *q.ViewerID)
	}
	return db
}

func (q VisibilityQuery) SelfTrash(db *gorm.DB) *gorm.DB {
	if q.TrashOf != nil {
		return db.Where("entries.user_id = ?", *q.TrashOf).Where(trashedByOwner)
	}
	if len(q.IgnoreTrashOf) > 0 {
		return db.Where("(entries.user_id IN ? OR NOT "+trashedByOwner+")", q.IgnoreTrashOf)
	}
	return db.Where("NOT " + trashedByOwner)
}

func (q VisibilityQuery) RecencyAndLevel(db *gorm.DB) *gorm.DB {
	if q.Since != nil {
		db = db.Where("entries.update_date >= ?", q.Since.UTC())
	}
	if q.MinWarning != nil {
		db = db.Where("entries.warning_level >= ?", int(*q.MinWarning))
	}
	return db
}

// DistanceOrder sorts nearest first. Without a coordinate the newest update
// comes first; the id tie-breaker keeps pages stable.
func (q VisibilityQuery) DistanceOrder(db *gorm.DB) *gorm.DB {
	if q.Near == nil {
		return db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "entries.update_date DESC, entries.id ASC",
			WithoutParentheses: true,
		}})
	}
	return db.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                "haversine_km(entries.longitude, entries.latitude, ?, ?) ASC, entries.id ASC",
		Vars:               []any{q.Near.Longitude, q.Near.Latitude},
		WithoutParentheses: true,
	}})
}

func (q VisibilityQuery) Window(db *gorm.DB) *gorm.DB {
	if q.Skip > 0 {
		db = db.Offset(q.Skip)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}
