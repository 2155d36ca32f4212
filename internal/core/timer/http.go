// Copyright (c) 2026 Tikra. All rights reserved.

package timer

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/tikra-app/tikra/internal/platform/request"
	"github.com/tikra-app/tikra/internal/platform/respond"
	"github.com/tikra-app/tikra/internal/platform/validate"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/start", handler.start)
	router.Post("/stop", handler.stop)
	router.Post("/pause", handler.pause)
	router.Get("/active", handler.active)
	router.Get("/state", handler.state)
	router.Post("/resolve-conflict", handler.resolveConflict)
	router.Post("/force-stop-all", handler.forceStopAll)
}

// RegisterAdminRoutes mounts the consistency probe under the admin surface,
// keyed by the target user's ID instead of the caller's.
func (handler *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/users/{id}/timers/validate", handler.validateUser)
}

type startRequest struct {
	ProjectID   string `json:"projectId"`
	Description string `json:"description"`
}

type stopRequest struct {
	EndTime string `json:"endTime"`
}

type resolveConflictRequest struct {
	Action string `json:"action"`
}

func (handler *Handler) start(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input startRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	record, err := handler.service.Start(request.Context(), userID, input.ProjectID, input.Description)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"timeEntry": record})
}

func (handler *Handler) stop(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input stopRequest
	// An empty body means "stop at now".
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, validate.ErrInvalidJSON)
			return
		}
	}

	var endTime *time.Time
	if input.EndTime != "" {
		parsed, err := time.Parse(time.RFC3339, input.EndTime)
		if err != nil {
			respond.Error(writer, request, validate.RequiredError(FieldEndTime, "Must be an RFC 3339 timestamp"))
			return
		}
		endTime = &parsed
	}

	record, err := handler.service.Stop(request.Context(), userID, endTime)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"timeEntry": record})
}

func (handler *Handler) pause(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Pause(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"timeEntry": record})
}

func (handler *Handler) active(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Active(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"activeTimer":    record,
		"hasActiveTimer": record != nil,
	})
}

func (handler *Handler) state(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.service.State(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

func (handler *Handler) resolveConflict(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input resolveConflictRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	stopped, err := handler.service.ResolveConflict(request.Context(), userID, input.Action)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	response := map[string]any{"success": true}
	if stopped != nil {
		response["stoppedEntry"] = stopped
	}
	respond.OK(writer, response)
}

func (handler *Handler) forceStopAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stopped, err := handler.service.ForceStopAll(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"stopped": stopped, "count": len(stopped)})
}

// validateUser runs the consistency probe against an arbitrary user. The
// admin-only guard lives in the route table.
func (handler *Handler) validateUser(writer http.ResponseWriter, request *http.Request) {
	report, err := handler.service.Validate(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, report)
}
