package model

import (
	"time"

	"github.com/google/uuid"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// EntryView is the caller-facing projection of an Entry.
type EntryView struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Description  *string      `json:"description"`
	ImagePath    *string      `json:"image_path"`
	Longitude    float64      `json:"longitude"`
	Latitude     float64      `json:"latitude"`
	WarningLevel WarningLevel `json:"warning_level"`
	Categories   []string     `json:"categories"`
	CreateDate   time.Time    `json:"create_date"`
	UpdateDate   time.Time    `json:"update_date"`
	IsOwner      bool         `json:"is_owner"`
}

func NewEntryView(entry Entry, viewer *uuid.UUID) EntryView {
	view := EntryView{
		ID:           entry.ID,
		Title:        entry.Title,
		Description:  entry.Description,
		Longitude:    entry.Longitude,
		Latitude:     entry.Latitude,
		WarningLevel: entry.WarningLevel,
		Categories:   make([]string, 0, len(entry.Categories)),
		CreateDate:   entry.CreateDate,
		UpdateDate:   entry.UpdateDate,
		IsOwner:      viewer != nil && *viewer == entry.UserID,
	}

	if latest := entry.LatestImage(); latest != nil {
		view.ImagePath = latest.ImagePath
	}
	for _, category := range entry.Categories {
		view.Categories = append(view.Categories, category.Key)
	}

	return view
}
