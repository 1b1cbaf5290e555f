package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dog-marker/internal/geo"
	"dog-marker/internal/middleware"
	"dog-marker/internal/model"
	"dog-marker/internal/service"
	"dog-marker/pkg/apierror"
)

type EntryHandler struct {
	service *service.EntryService
}

func NewEntryHandler(service *service.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// List serves the public map. The viewer is the token subject, or the
// user_id query parameter for anonymous clients.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	viewer, err := viewerFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.ViewerID = viewer

	entries, meta, err := h.service.ListVisible(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, err := pathUUID(r, "entry_id")
	if err != nil {
		writeError(w, err)
		return
	}

	viewer, err := viewerFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.service.Get(r.Context(), entryID, viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func (h *EntryHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	owner, opts, ok := h.ownerListing(w, r)
	if !ok {
		return
	}

	includeTrash := false
	if raw := strings.TrimSpace(r.URL.Query().Get("include_trash")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apierror.BadRequest("include_trash must be a boolean", raw))
			return
		}
		includeTrash = parsed
	}

	entries, meta, err := h.service.ListOwned(r.Context(), owner, includeTrash, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}

func (h *EntryHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	owner, opts, ok := h.ownerListing(w, r)
	if !ok {
		return
	}

	entries, meta, err := h.service.ListTrash(r.Context(), owner, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	owner, err := pathUUID(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", err.Error()))
		return
	}

	entry, err := h.service.Create(r.Context(), owner, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, entry, nil)
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	actor, entryID, ok := actorAndEntry(w, r)
	if !ok {
		return
	}

	var payload model.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", err.Error()))
		return
	}

	entry, err := h.service.Update(r.Context(), entryID, actor, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

// Delete hides the entry for the caller. For the owner this moves it to trash.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, entryID, ok := actorAndEntry(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), entryID, actor); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, entryID, ok := actorAndEntry(w, r)
	if !ok {
		return
	}

	if err := h.service.Restore(r.Context(), entryID, actor); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.service.Get(r.Context(), entryID, &actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func (h *EntryHandler) ownerListing(w http.ResponseWriter, r *http.Request) (uuid.UUID, service.ListOptions, bool) {
	owner, err := pathUUID(r, "user_id")
	if err != nil {
		writeError(w, err)
		return uuid.Nil, service.ListOptions{}, false
	}

	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return uuid.Nil, service.ListOptions{}, false
	}
	opts.ViewerID = &owner

	return owner, opts, true
}

func actorAndEntry(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	actor, err := pathUUID(r, "user_id")
	if err != nil {
		writeError(w, err)
		return uuid.Nil, uuid.Nil, false
	}

	entryID, err := pathUUID(r, "entry_id")
	if err != nil {
		writeError(w, err)
		return uuid.Nil, uuid.Nil, false
	}

	return actor, entryID, true
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.BadRequest(param+" must be a UUID", raw)
	}
	return id, nil
}

// viewerFromRequest prefers the authenticated caller. A user_id query
// parameter that names someone else is rejected.
func viewerFromRequest(r *http.Request) (*uuid.UUID, error) {
	caller := middleware.UserIDFromContext(r.Context())

	raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if raw == "" {
		return caller, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierror.BadRequest("user_id must be a UUID", raw)
	}
	if caller != nil && *caller != id {
		return nil, apierror.Unauthorized("user_id does not match token")
	}

	return &id, nil
}

func parseListOptions(r *http.Request) (service.ListOptions, error) {
	query := r.URL.Query()
	opts := service.ListOptions{Limit: service.DefaultListLimit}

	if raw := strings.TrimSpace(query.Get("skip")); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return opts, apierror.BadRequest("skip must be a non-negative integer", raw)
		}
		opts.Skip = skip
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > service.MaxListLimit {
			return opts, apierror.BadRequest("limit must be between 1 and 100", raw)
		}
		opts.Limit = limit
	}

	lonRaw := strings.TrimSpace(query.Get("longitude"))
	latRaw := strings.TrimSpace(query.Get("latitude"))
	if (lonRaw == "") != (latRaw == "") {
		return opts, apierror.BadRequest("longitude and latitude must be given together", "")
	}
	if lonRaw != "" {
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		if lonErr != nil || latErr != nil {
			return opts, apierror.BadRequest("longitude and latitude must be numbers", "")
		}
		near := geo.Coordinate{Longitude: lon, Latitude: lat}
		if err := near.Validate(); err != nil {
			return opts, apierror.BadRequest("invalid coordinate", err.Error())
		}
		opts.Near = &near
	}

	if raw := strings.TrimSpace(query.Get("warning_level")); raw != "" {
		level, err := model.ParseWarningLevel(raw)
		if err != nil {
			return opts, apierror.BadRequest("warning_level must be information, warning or danger", raw)
		}
		opts.MinWarning = &level
	}

	if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, apierror.BadRequest("date_from must be an RFC3339 timestamp", raw)
		}
		opts.Since = &since
	}

	return opts, nil
}
