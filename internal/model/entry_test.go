package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarningLevel(t *testing.T) {
	t.Parallel()

	t.Run("ordering", func(t *testing.T) {
		assert.Less(t, WarningInformation, WarningWarning)
		assert.Less(t, WarningWarning, WarningDanger)
	})

	t.Run("parse is case insensitive", func(t *testing.T) {
		level, err := ParseWarningLevel(" Danger ")
		require.NoError(t, err)
		assert.Equal(t, WarningDanger, level)
	})

	t.Run("unknown level is invalid input", func(t *testing.T) {
		_, err := ParseWarningLevel("catastrophic")
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("json uses names", func(t *testing.T) {
		raw, err := json.Marshal(struct {
			Level WarningLevel `json:"level"`
		}{Level: WarningWarning})
		require.NoError(t, err)
		assert.JSONEq(t, `{"level":"warning"}`, string(raw))

		var decoded struct {
			Level WarningLevel `json:"level"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"level":"danger"}`), &decoded))
		assert.Equal(t, WarningDanger, decoded.Level)
	})
}

func TestNotFoundKinds(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrEntryNotFound, ErrImageNotFound, ErrCategoryNotFound} {
		assert.True(t, errors.Is(err, ErrNotFound), err.Error())
	}
	assert.False(t, errors.Is(ErrNotAuthorized, ErrNotFound))
}

func TestNewEntryView(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	stranger := uuid.New()
	older := "https://img.example/old.png"
	newer := "https://img.example/new.png"
	now := time.Now().UTC()

	entry := Entry{
		ID:         uuid.New(),
		UserID:     owner,
		Title:      "Broken glass",
		Longitude:  13.73,
		Latitude:   51.05,
		CreateDate: now,
		UpdateDate: now,
		Categories: []Category{{Key: "glass", Title: "Glass"}},
		Images: []EntryImage{
			{ID: 2, ImagePath: &newer},
			{ID: 1, ImagePath: &older},
		},
	}

	view := NewEntryView(entry, &owner)
	assert.True(t, view.IsOwner)
	require.NotNil(t, view.ImagePath)
	assert.Equal(t, newer, *view.ImagePath)
	assert.Equal(t, []string{"glass"}, view.Categories)

	assert.False(t, NewEntryView(entry, &stranger).IsOwner)
	assert.False(t, NewEntryView(entry, nil).IsOwner)
	assert.Nil(t, NewEntryView(Entry{}, nil).ImagePath)
}
