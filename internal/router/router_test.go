package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dog-marker/internal/config"
	"dog-marker/internal/database/dbtest"
	"dog-marker/internal/event"
	"dog-marker/internal/handler"
	"dog-marker/internal/middleware"
	"dog-marker/internal/model"
	"dog-marker/internal/repository"
	"dog-marker/internal/service"
)

type healthyDB struct{}

func (healthyDB) Health(context.Context) error { return nil }

type apiTest struct {
	t      *testing.T
	server *httptest.Server
	auth   *service.AuthService
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(dbtest.New(t))
	require.NoError(t, store.Categories.Create(context.Background(), model.Category{Key: "glass", Title: "Broken glass"}))

	bus := event.NewBus(logger)
	lifecycle := service.NewLifecycleService(store, bus, logger)
	auth := service.NewAuthService("test-secret")

	cfg := &config.Config{RequestTimeout: 5 * time.Second, CORSOrigins: []string{"*"}}
	h := New(cfg, logger, middleware.NewAuthMiddleware(auth), Handlers{
		Entry:    handler.NewEntryHandler(service.NewEntryService(store, lifecycle, bus)),
		Category: handler.NewCategoryHandler(service.NewCategoryService(store)),
		Health:   handler.NewHealthHandler(healthyDB{}),
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return &apiTest{t: t, server: server, auth: auth}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func (a *apiTest) do(method string, path string, user *uuid.UUID, body any) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	if user != nil {
		token, err := a.auth.IssueToken(*user, time.Minute)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var out envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (a *apiTest) create(owner uuid.UUID, title string) model.EntryView {
	a.t.Helper()

	status, body := a.do(http.MethodPost, "/api/v1/users/"+owner.String()+"/entries", &owner, map[string]any{
		"title":         title,
		"longitude":     13.73,
		"latitude":      51.05,
		"warning_level": "warning",
		"categories":    []string{"glass"},
	})
	require.Equal(a.t, http.StatusCreated, status, body.Error)

	var view model.EntryView
	require.NoError(a.t, json.Unmarshal(body.Data, &view))
	return view
}

func decodeViews(t *testing.T, body envelope) []model.EntryView {
	t.Helper()
	var views []model.EntryView
	require.NoError(t, json.Unmarshal(body.Data, &views))
	return views
}

func TestHealth(t *testing.T) {
	api := newAPITest(t)

	status, body := api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	api := newAPITest(t)
	owner := uuid.New()
	viewer := uuid.New()

	created := api.create(owner, "glass on the path")
	assert.True(t, created.IsOwner)
	assert.Equal(t, []string{"glass"}, created.Categories)

	status, body := api.do(http.MethodGet, "/api/v1/entries", &viewer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decodeViews(t, body), 1)
	assert.Equal(t, 1, body.Meta.Count)

	entryPath := "/api/v1/users/" + viewer.String() + "/entries/" + created.ID.String()
	status, _ = api.do(http.MethodDelete, entryPath, &viewer, nil)
	require.Equal(t, http.StatusNoContent, status)

	_, body = api.do(http.MethodGet, "/api/v1/entries", &viewer, nil)
	assert.Empty(t, decodeViews(t, body), "hidden for the viewer")

	_, body = api.do(http.MethodGet, "/api/v1/entries", nil, nil)
	assert.Len(t, decodeViews(t, body), 1, "still public")

	status, _ = api.do(http.MethodPost, entryPath+"/restore", &viewer, nil)
	require.Equal(t, http.StatusOK, status)

	_, body = api.do(http.MethodGet, "/api/v1/entries", &viewer, nil)
	assert.Len(t, decodeViews(t, body), 1)

	ownerPath := "/api/v1/users/" + owner.String()
	status, _ = api.do(http.MethodDelete, ownerPath+"/entries/"+created.ID.String(), &owner, nil)
	require.Equal(t, http.StatusNoContent, status)

	_, body = api.do(http.MethodGet, ownerPath+"/trash", &owner, nil)
	trash := decodeViews(t, body)
	require.Len(t, trash, 1)
	assert.Equal(t, created.ID, trash[0].ID)

	_, body = api.do(http.MethodGet, ownerPath+"/entries", &owner, nil)
	assert.Empty(t, decodeViews(t, body))

	_, body = api.do(http.MethodGet, ownerPath+"/entries?include_trash=true", &owner, nil)
	assert.Len(t, decodeViews(t, body), 1)
}

func TestUpdateOverHTTP(t *testing.T) {
	api := newAPITest(t)
	owner := uuid.New()
	created := api.create(owner, "nails")

	path := "/api/v1/users/" + owner.String() + "/entries/" + created.ID.String()
	status, body := api.do(http.MethodPut, path, &owner, map[string]any{
		"title":         "nails near the bench",
		"longitude":     13.74,
		"latitude":      51.06,
		"warning_level": "danger",
		"image_path":    "https://img.example/nails.jpg",
	})
	require.Equal(t, http.StatusOK, status, body.Error)

	var view model.EntryView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, "nails near the bench", view.Title)
	assert.Equal(t, model.WarningDanger, view.WarningLevel)
	require.NotNil(t, view.ImagePath)

	other := uuid.New()
	status, _ = api.do(http.MethodPut, "/api/v1/users/"+other.String()+"/entries/"+created.ID.String(), &other, map[string]any{
		"title": "mine now", "longitude": 1, "latitude": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthorizationOverHTTP(t *testing.T) {
	api := newAPITest(t)
	alice := uuid.New()
	mallory := uuid.New()

	status, _ := api.do(http.MethodGet, "/api/v1/users/"+alice.String()+"/entries", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/v1/users/"+alice.String()+"/trash", &mallory, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/v1/entries?user_id="+alice.String(), &mallory, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListValidationOverHTTP(t *testing.T) {
	api := newAPITest(t)

	cases := map[string]string{
		"negative skip":     "?skip=-1",
		"zero limit":        "?limit=0",
		"limit too large":   "?limit=101",
		"longitude alone":   "?longitude=13.7",
		"latitude alone":    "?latitude=51.0",
		"out of range":      "?longitude=200&latitude=10",
		"unknown warning":   "?warning_level=severe",
		"bad date":          "?date_from=yesterday",
		"malformed user id": "?user_id=alice",
	}

	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := api.do(http.MethodGet, "/api/v1/entries"+query, nil, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, "BAD_REQUEST", body.Error.Code)
		})
	}
}

func TestGetOverHTTP(t *testing.T) {
	api := newAPITest(t)
	owner := uuid.New()
	created := api.create(owner, "poison")

	status, body := api.do(http.MethodGet, "/api/v1/entries/"+created.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	var view model.EntryView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.False(t, view.IsOwner)

	status, body = api.do(http.MethodGet, "/api/v1/entries/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	status, _ = api.do(http.MethodGet, "/api/v1/entries/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodGet, "/api/v1/categories", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var categories []model.Category
	require.NoError(t, json.Unmarshal(body.Data, &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "glass", categories[0].Key)
}
