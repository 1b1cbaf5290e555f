package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm/clause"

	"dog-marker/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// EnsureSchema brings the schema up to date. Postgres runs the embedded goose
// migrations; sqlite is migrated from the models.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Gorm == nil {
		return fmt.Errorf("database is not initialized")
	}

	if db.Dialect == DialectSQLite {
		if err := AutoMigrate(db); err != nil {
			return err
		}
		if err := db.Gorm.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(defaultCategories()).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		slog.Info("database schema ensured", "dialect", db.Dialect)
		return nil
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, result := range results {
		slog.Info("migration applied", "version", result.Source.Version, "duration", result.Duration)
	}

	slog.Info("database schema ensured", "dialect", db.Dialect)
	return nil
}

func AutoMigrate(db *DB) error {
	if err := db.Gorm.AutoMigrate(
		&model.Category{},
		&model.Entry{},
		&model.EntryImage{},
		&model.HiddenEntry{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// defaultCategories matches 00002_seed_categories.sql.
func defaultCategories() []model.Category {
	describe := func(s string) *string { return &s }
	return []model.Category{
		{Key: "poison", Title: "Poison bait", Description: describe("Suspected poisoned bait or food")},
		{Key: "glass", Title: "Broken glass", Description: describe("Shards or broken bottles")},
		{Key: "nails", Title: "Nails", Description: describe("Nails, needles or other sharp metal")},
		{Key: "other", Title: "Other"},
	}
}
