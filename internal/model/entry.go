package model

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a geolocated marker. MarkToDelete is set once and never cleared.
type Entry struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID    `gorm:"type:uuid;index;not null"`
	Title        string       `gorm:"not null"`
	Description  *string      `gorm:"type:text"`
	WarningLevel WarningLevel `gorm:"not null;default:0"`
	Longitude    float64      `gorm:"not null;index:ix_entries_coordinates,priority:1"`
	Latitude     float64      `gorm:"not null;index:ix_entries_coordinates,priority:2"`
	MarkToDelete *time.Time   `gorm:"column:mark_to_delete;index"`
	CreateDate   time.Time    `gorm:"not null"`
	UpdateDate   time.Time    `gorm:"not null"`

	Categories    []Category    `gorm:"many2many:entries_categories_associations;joinForeignKey:ItemID;joinReferences:CategoryKey"`
	Images        []EntryImage  `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
	HiddenEntries []HiddenEntry `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
}

func (Entry) TableName() string { return "entries" }

func (e Entry) Marked() bool { return e.MarkToDelete != nil }

// LatestImage returns images[0]; images are loaded most recent first.
func (e Entry) LatestImage() *EntryImage {
	if len(e.Images) == 0 {
		return nil
	}
	return &e.Images[0]
}

// EntryImage is append-only: a changed image is a new row.
type EntryImage struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	EntryID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ImagePath      *string   `gorm:"column:image_path"`
	ImageDeleteURL *string   `gorm:"column:image_delete_url"`
	CreateDate     time.Time `gorm:"not null"`
}

func (EntryImage) TableName() string { return "entry_images" }

// HiddenEntry with UserID equal to the entry owner is the trash signal.
type HiddenEntry struct {
	EntryID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreateDate time.Time `gorm:"not null"`
	UpdateDate time.Time `gorm:"not null"`
}

func (HiddenEntry) TableName() string { return "hidden_entries" }

type Category struct {
	Key         string  `gorm:"primaryKey" json:"key"`
	Title       string  `gorm:"not null" json:"title"`
	Description *string `gorm:"type:text" json:"description"`
}

func (Category) TableName() string { return "categories" }
