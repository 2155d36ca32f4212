// Copyright (c) 2026 Tikra. All rights reserved.

package entry

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/tikra-app/tikra/internal/platform/request"
	"github.com/tikra-app/tikra/internal/platform/respond"
	"github.com/tikra-app/tikra/internal/platform/validate"
	"github.com/tikra-app/tikra/pkg/pagination"
	"github.com/tikra-app/tikra/pkg/query"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Get("/stats", handler.stats)
	router.Get("/search", handler.search)
	router.Put("/bulk", handler.bulkUpdate)
	router.Delete("/bulk", handler.bulkDelete)
	router.Get("/{id}", handler.get)
	router.Put("/{id}", handler.update)
	router.Delete("/{id}", handler.delete)
}

type createRequest struct {
	ProjectID   string   `json:"projectId"`
	Description string   `json:"description"`
	StartTime   rfcTime  `json:"startTime"`
	EndTime     *rfcTime `json:"endTime"`
	Duration    *int64   `json:"duration"`
	Tags        []string `json:"tags"`
}

type updateRequest struct {
	ProjectID    *string  `json:"projectId"`
	Description  *string  `json:"description"`
	StartTime    *rfcTime `json:"startTime"`
	EndTime      *rfcTime `json:"endTime"`
	Tags         []string `json:"tags"`
	LastModified *rfcTime `json:"lastModified"`
}

type bulkUpdateRequest struct {
	EntryIDs []string  `json:"entryIds"`
	Updates  BulkPatch `json:"updates"`
}

type bulkDeleteRequest struct {
	EntryIDs []string `json:"entryIds"`
}

// rfcTime is a time.Time that only accepts RFC 3339 on the wire, so malformed
// instants surface as VALIDATION_ERROR instead of a generic decode failure.
type rfcTime struct {
	time.Time
}

func (t *rfcTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// list returns a filtered page of the caller's entries.
// ?since=<RFC3339> switches to an unpaged delta pull for sync clients.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if raw := request.URL.Query().Get("since"); raw != "" {
		cursor, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.Error(writer, request, validate.RequiredError("since", "Must be an RFC 3339 timestamp"))
			return
		}
		entries, err := handler.service.ListSince(request.Context(), userID, cursor)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.OK(writer, map[string]any{"entries": entries, "total": len(entries)})
		return
	}

	filter, err := filterFromQuery(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	entries, total, err := handler.service.List(request.Context(), userID, filter, page.Limit, page.Offset)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, listResponse{Entries: entries, Meta: pagination.NewMeta(page.Limit, page.Offset, total)})
}

// listResponse flattens the pagination metadata next to the entries:
// {entries, total, limit, offset, hasMore}.
type listResponse struct {
	Entries []*TimeEntry `json:"entries"`
	pagination.Meta
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entry, err := handler.service.Get(request.Context(), userID, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"entry": entry})
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	create := CreateInput{
		ProjectID:   input.ProjectID,
		Description: input.Description,
		StartTime:   input.StartTime.Time,
		Duration:    input.Duration,
		Tags:        input.Tags,
	}
	if input.EndTime != nil {
		create.EndTime = &input.EndTime.Time
	}

	entry, err := handler.service.Create(request.Context(), userID, create)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"entry": entry})
}

// update applies a patch; ?force=true overrides the stale-snapshot check.
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSONStrict(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	patch := UpdateInput{
		ProjectID:   input.ProjectID,
		Description: input.Description,
		Tags:        input.Tags,
		Force:       request.URL.Query().Get("force") == "true",
	}
	if input.StartTime != nil {
		patch.StartTime = &input.StartTime.Time
	}
	if input.EndTime != nil {
		patch.EndTime = &input.EndTime.Time
	}
	if input.LastModified != nil {
		patch.LastModified = &input.LastModified.Time
	}

	entry, err := handler.service.Update(request.Context(), userID, requestutil.ID(request, "id"), patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"entry": entry})
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) bulkUpdate(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input bulkUpdateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	entries, err := handler.service.BulkUpdate(request.Context(), userID, input.EntryIDs, input.Updates)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"entries": entries, "updated": len(entries)})
}

func (handler *Handler) bulkDelete(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input bulkDeleteRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.service.BulkDelete(request.Context(), userID, input.EntryIDs); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"success": true, "deleted": len(input.EntryIDs)})
}

func (handler *Handler) stats(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter, err := filterFromQuery(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats, err := handler.service.Stats(request.Context(), userID, filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"stats": stats})
}

// search is a description full-text convenience over the list filter.
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := strings.TrimSpace(request.URL.Query().Get("q"))
	if query == "" {
		respond.Error(writer, request, validate.RequiredError("q", "This field is required"))
		return
	}

	filter, err := filterFromQuery(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	filter.Search = query

	page := pagination.FromRequest(request)
	entries, total, err := handler.service.List(request.Context(), userID, filter, page.Limit, page.Offset)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, listResponse{Entries: entries, Meta: pagination.NewMeta(page.Limit, page.Offset, total)})
}

// filterFromQuery parses the shared list/stats filter parameters:
// project_id, start_date, end_date, is_running, tags (comma-separated), search.
func filterFromQuery(request *http.Request) (Filter, error) {
	filter := Filter{
		ProjectID: request.URL.Query().Get("project_id"),
		IsRunning: requestutil.QueryBool(request, "is_running"),
		Search:    strings.TrimSpace(request.URL.Query().Get("search")),
	}

	if raw := request.URL.Query().Get("start_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, validate.RequiredError("start_date", "Must be an RFC 3339 timestamp")
		}
		filter.StartDate = &parsed
	}
	if raw := request.URL.Query().Get("end_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, validate.RequiredError("end_date", "Must be an RFC 3339 timestamp")
		}
		filter.EndDate = &parsed
	}
	filter.Tags = query.StringSlice(request.URL.Query().Get("tags"))

	return filter, nil
}
