package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories bound to one connection or transaction.
type Store struct {
	db         *gorm.DB
	Entries    *EntryRepository
	Hidden     *HiddenEntryRepository
	Images     *ImageRepository
	Categories *CategoryRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Entries:    NewEntryRepository(db),
		Hidden:     NewHiddenEntryRepository(db),
		Images:     NewImageRepository(db),
		Categories: NewCategoryRepository(db),
	}
}

// Transaction runs fn against a Store bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
