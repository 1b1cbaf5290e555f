package model

import (
	"time"

	"github.com/google/uuid"
)

type CreateEntryRequest struct {
	ID             *uuid.UUID    `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	ImagePath      *string       `json:"image_path"`
	ImageDeleteURL *string       `json:"image_delete_url"`
	Longitude      float64       `json:"longitude"`
	Latitude       float64       `json:"latitude"`
	WarningLevel   *WarningLevel `json:"warning_level"`
	Categories     []string      `json:"categories"`
	CreateDate     *time.Time    `json:"create_date"`
}

type UpdateEntryRequest struct {
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	ImagePath      *string       `json:"image_path"`
	ImageDeleteURL *string       `json:"image_delete_url"`
	Longitude      float64       `json:"longitude"`
	Latitude       float64       `json:"latitude"`
	WarningLevel   *WarningLevel `json:"warning_level"`
	Categories     []string      `json:"categories"`
}
