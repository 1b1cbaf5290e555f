package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dog-marker/internal/geo"
	"dog-marker/internal/model"
)

func seedCategories(t *testing.T, h *harness, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, h.store.Categories.Create(context.Background(), model.Category{Key: key, Title: key}))
	}
}

func strPtr(v string) *string { return &v }

func TestEntryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores entry with categories and image", func(t *testing.T) {
		h := newHarness(t)
		seedCategories(t, h, "glass", "poison")
		owner := uuid.New()
		level := model.WarningDanger

		view, err := h.entries.Create(ctx, owner, model.CreateEntryRequest{
			Title:          "  poison bait  ",
			ImagePath:      strPtr("https://img.example/bait.jpg"),
			ImageDeleteURL: strPtr("https://img.example/bait/delete"),
			Longitude:      13.73,
			Latitude:       51.05,
			WarningLevel:   &level,
			Categories:     []string{"poison"},
		})
		require.NoError(t, err)

		assert.Equal(t, "poison bait", view.Title)
		assert.True(t, view.IsOwner)
		assert.Equal(t, model.WarningDanger, view.WarningLevel)
		assert.Equal(t, []string{"poison"}, view.Categories)
		require.NotNil(t, view.ImagePath)
		assert.Equal(t, "https://img.example/bait.jpg", *view.ImagePath)

		other := uuid.New()
		fetched, err := h.entries.Get(ctx, view.ID, &other)
		require.NoError(t, err)
		assert.False(t, fetched.IsOwner)
	})

	t.Run("keeps client supplied id and create date", func(t *testing.T) {
		h := newHarness(t)
		id := uuid.New()
		created := h.clock.Now().Add(-time.Hour)

		view, err := h.entries.Create(ctx, uuid.New(), model.CreateEntryRequest{
			ID: &id, Title: "nails", Longitude: 1, Latitude: 2, CreateDate: &created,
		})
		require.NoError(t, err)
		assert.Equal(t, id, view.ID)
		assert.True(t, view.CreateDate.Equal(created))
		assert.False(t, view.UpdateDate.Before(view.CreateDate))
		assert.Nil(t, view.ImagePath)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		h := newHarness(t)
		owner := uuid.New()
		bad := model.WarningLevel(7)

		cases := map[string]model.CreateEntryRequest{
			"blank title":      {Title: "  ", Longitude: 1, Latitude: 1},
			"longitude":        {Title: "x", Longitude: 181, Latitude: 1},
			"latitude":         {Title: "x", Longitude: 1, Latitude: -91},
			"warning level":    {Title: "x", WarningLevel: &bad},
			"unknown category": {Title: "x", Categories: []string{"lava"}},
		}
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := h.entries.Create(ctx, owner, req)
				require.ErrorIs(t, err, model.ErrInvalidInput)
			})
		}
	})
}

func TestEntryService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("owner update appends changed image", func(t *testing.T) {
		h := newHarness(t)
		seedCategories(t, h, "glass", "nails")
		owner := uuid.New()
		created, err := h.entries.Create(ctx, owner, model.CreateEntryRequest{
			Title: "glass", Longitude: 13.7, Latitude: 51.0,
			ImagePath: strPtr("https://img.example/1.jpg"), Categories: []string{"glass"},
		})
		require.NoError(t, err)

		h.clock.Advance(time.Minute)
		updated, err := h.entries.Update(ctx, created.ID, owner, model.UpdateEntryRequest{
			Title: "glass and nails", Longitude: 13.8, Latitude: 51.1,
			ImagePath: strPtr("https://img.example/2.jpg"), Categories: []string{"glass", "nails"},
		})
		require.NoError(t, err)

		assert.Equal(t, "glass and nails", updated.Title)
		assert.Equal(t, []string{"glass", "nails"}, updated.Categories)
		assert.Equal(t, "https://img.example/2.jpg", *updated.ImagePath)
		assert.True(t, updated.UpdateDate.Equal(h.clock.Now()))

		images, err := h.lifecycle.ResolveImages(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, images, 2)

		_, err = h.entries.Update(ctx, created.ID, owner, model.UpdateEntryRequest{
			Title: "same image", Longitude: 13.8, Latitude: 51.1, ImagePath: strPtr("https://img.example/2.jpg"),
		})
		require.NoError(t, err)
		images, err = h.lifecycle.ResolveImages(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, images, 2)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		h := newHarness(t)
		e := h.entry(uuid.New())

		_, err := h.entries.Update(ctx, e.ID, uuid.New(), model.UpdateEntryRequest{Title: "mine now", Longitude: 1, Latitude: 1})
		require.ErrorIs(t, err, model.ErrNotAuthorized)
	})

	t.Run("missing entry", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.entries.Update(ctx, uuid.New(), uuid.New(), model.UpdateEntryRequest{Title: "x"})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestEntryService_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, viewer := uuid.New(), uuid.New()
	e := h.entry(owner)

	require.NoError(t, h.entries.Delete(ctx, e.ID, viewer))
	assert.NotContains(t, h.visibleTo(viewer), e.ID)
	require.NoError(t, h.entries.Restore(ctx, e.ID, viewer))
	assert.Contains(t, h.visibleTo(viewer), e.ID)

	require.NoError(t, h.entries.Delete(ctx, e.ID, owner))
	withTrash, _, err := h.entries.ListOwned(ctx, owner, true, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, withTrash, 1)
	withoutTrash, _, err := h.entries.ListOwned(ctx, owner, false, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, withoutTrash)

	require.NoError(t, h.entries.Restore(ctx, e.ID, owner))
	assert.Contains(t, h.visibleTo(viewer), e.ID)
}

func TestEntryService_ListVisible(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := uuid.New()

	for range 3 {
		h.entry(owner)
	}

	list, meta, err := h.entries.ListVisible(ctx, ListOptions{Skip: 1, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, model.Meta{Skip: 1, Limit: MaxListLimit, Count: 2}, meta)

	near := &geo.Coordinate{Longitude: 13.73, Latitude: 51.05}
	list, meta, err = h.entries.ListVisible(ctx, ListOptions{Near: near, Skip: -5})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 0, meta.Skip)
	assert.Equal(t, DefaultListLimit, meta.Limit)
}
