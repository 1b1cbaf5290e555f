package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dog-marker/internal/database/dbtest"
	"dog-marker/internal/geo"
	"dog-marker/internal/model"
)

type fixture struct {
	t     *testing.T
	store *Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, store: NewStore(dbtest.New(t)), now: time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)}
}

func (f *fixture) entry(owner uuid.UUID, title string, mutate ...func(*model.Entry)) model.Entry {
	f.t.Helper()

	entry := model.Entry{
		ID:         uuid.New(),
		UserID:     owner,
		Title:      title,
		Longitude:  13.73,
		Latitude:   51.05,
		CreateDate: f.now,
		UpdateDate: f.now,
	}
	for _, m := range mutate {
		m(&entry)
	}
	require.NoError(f.t, f.store.Entries.Create(context.Background(), &entry))
	return entry
}

func (f *fixture) hide(entryID uuid.UUID, userID uuid.UUID) {
	f.t.Helper()
	_, err := f.store.Hidden.Create(context.Background(), model.HiddenEntry{
		EntryID: entryID, UserID: userID, CreateDate: f.now, UpdateDate: f.now,
	})
	require.NoError(f.t, err)
}

func (f *fixture) list(q VisibilityQuery) []string {
	f.t.Helper()
	entries, err := f.store.Entries.List(context.Background(), q)
	require.NoError(f.t, err)

	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		titles = append(titles, e.Title)
	}
	return titles
}

func ptr[T any](v T) *T { return &v }

func TestExcludeMarkedForEveryCaller(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	f.entry(owner, "live")
	f.entry(owner, "marked", func(e *model.Entry) { e.MarkToDelete = ptr(f.now) })
	trashedAndMarked := f.entry(owner, "trashed-marked", func(e *model.Entry) { e.MarkToDelete = ptr(f.now) })
	f.hide(trashedAndMarked.ID, owner)

	for name, q := range map[string]VisibilityQuery{
		"anonymous":   {},
		"viewer":      {ViewerID: ptr(uuid.New())},
		"owner":       {OwnerID: &owner},
		"trash view":  {TrashOf: &owner},
		"ignore list": {IgnoreTrashOf: []uuid.UUID{owner}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotContains(t, f.list(q), "marked")
			assert.NotContains(t, f.list(q), "trashed-marked")
		})
	}
}

func TestPersonalHideIsPrivate(t *testing.T) {
	f := newFixture(t)
	viewerA, ownerB, viewerC := uuid.New(), uuid.New(), uuid.New()

	e := f.entry(ownerB, "E")
	f.hide(e.ID, viewerA)

	assert.NotContains(t, f.list(VisibilityQuery{ViewerID: &viewerA}), "E")
	assert.Contains(t, f.list(VisibilityQuery{ViewerID: &viewerC}), "E")
	assert.Contains(t, f.list(VisibilityQuery{OwnerID: &ownerB}), "E")
	assert.Contains(t, f.list(VisibilityQuery{}), "E")
}

func TestSelfTrash(t *testing.T) {
	f := newFixture(t)
	owner, other := uuid.New(), uuid.New()

	f.entry(owner, "kept")
	trashed := f.entry(owner, "trashed")
	f.hide(trashed.ID, owner)
	f.entry(other, "foreign")

	t.Run("hidden from everyone by default", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"kept", "foreign"}, f.list(VisibilityQuery{}))
		assert.ElementsMatch(t, []string{"kept", "foreign"}, f.list(VisibilityQuery{ViewerID: &other}))
		assert.ElementsMatch(t, []string{"kept"}, f.list(VisibilityQuery{OwnerID: &owner}))
	})

	t.Run("trash view shows only own trash", func(t *testing.T) {
		assert.Equal(t, []string{"trashed"}, f.list(VisibilityQuery{TrashOf: &owner}))
		assert.Empty(t, f.list(VisibilityQuery{TrashOf: &other}))
	})

	t.Run("ignore list keeps owner trash visible", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"kept", "trashed"}, f.list(VisibilityQuery{OwnerID: &owner, IgnoreTrashOf: []uuid.UUID{owner}}))
		assert.ElementsMatch(t, []string{"kept", "foreign"}, f.list(VisibilityQuery{IgnoreTrashOf: []uuid.UUID{other}}))
	})
}

func TestRecencyAndWarningFloor(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	f.entry(owner, "old-info", func(e *model.Entry) {
		e.CreateDate = f.now.Add(-48 * time.Hour)
		e.UpdateDate = f.now.Add(-48 * time.Hour)
	})
	f.entry(owner, "new-warning", func(e *model.Entry) { e.WarningLevel = model.WarningWarning })
	f.entry(owner, "new-danger", func(e *model.Entry) { e.WarningLevel = model.WarningDanger })

	since := f.now.Add(-time.Hour)
	assert.ElementsMatch(t, []string{"new-warning", "new-danger"}, f.list(VisibilityQuery{Since: &since}))
	assert.ElementsMatch(t, []string{"new-danger"}, f.list(VisibilityQuery{MinWarning: ptr(model.WarningDanger)}))
	assert.ElementsMatch(t, []string{"old-info", "new-warning", "new-danger"}, f.list(VisibilityQuery{MinWarning: ptr(model.WarningInformation)}))
}

func TestDistanceOrderingAndWindow(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	at := func(lon, lat float64) func(*model.Entry) {
		return func(e *model.Entry) { e.Longitude, e.Latitude = lon, lat }
	}

	f.entry(owner, "berlin", at(13.40, 52.52))
	f.entry(owner, "dresden", at(13.73, 51.05))
	f.entry(owner, "leipzig", at(12.37, 51.34))
	f.entry(owner, "munich", at(11.58, 48.14))

	near := &geo.Coordinate{Longitude: 13.74, Latitude: 51.05}
	assert.Equal(t, []string{"dresden", "leipzig", "berlin", "munich"}, f.list(VisibilityQuery{Near: near}))
	assert.Equal(t, []string{"leipzig", "berlin"}, f.list(VisibilityQuery{Near: near, Skip: 1, Limit: 2}))
	assert.Empty(t, f.list(VisibilityQuery{Near: near, Skip: 10, Limit: 5}))
}

func TestStagesKeepFixedOrder(t *testing.T) {
	stages := VisibilityQuery{}.Stages()
	require.Len(t, stages, 6)
}
