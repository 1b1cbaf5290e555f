package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every missing or already purged record.
	ErrNotFound         = errors.New("not found")
	ErrEntryNotFound    = fmt.Errorf("entry %w", ErrNotFound)
	ErrImageNotFound    = fmt.Errorf("image %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)

	// ErrNotAuthorized is returned when a non-owner attempts an owner-only transition.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrExternalUnavailable marks image host failures. Never fatal; retried by the next sweep.
	ErrExternalUnavailable = errors.New("external host unavailable")

	ErrEntryHasImages = errors.New("entry still owns images")
	ErrInvalidInput   = errors.New("invalid input")
)
