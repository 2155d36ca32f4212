// Copyright (c) 2026 Tikra. All rights reserved.

package timer

import (
	"context"
	"strings"
	"time"

	"github.com/tikra-app/tikra/internal/core/entry"
	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/userlock"
	"github.com/tikra-app/tikra/internal/platform/validate"
	"github.com/tikra-app/tikra/internal/realtime"
	"github.com/tikra-app/tikra/pkg/uuid"
)

// # Contracts & Types

// Publisher fans events out to the acting user's live subscriptions.
type Publisher interface {
	Publish(userID string, events ...realtime.Event)
}

// ProjectChecker verifies that a project exists and belongs to the user.
type ProjectChecker interface {
	Exists(context context.Context, userID, projectID string) (bool, error)
}

// Service implements the timer state machine. All mutations serialize on the
// per-user keyed mutex so event order matches commit order.
type Service struct {
	store     Store
	projects  ProjectChecker
	publisher Publisher
	locks     *userlock.Keyed

	// now is the single clock source; swapped out in tests.
	now func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(store Store, projects ProjectChecker, publisher Publisher, locks *userlock.Keyed) *Service {
	return &Service{
		store:     store,
		projects:  projects,
		publisher: publisher,
		locks:     locks,
		now:       time.Now,
	}
}

// # State Transitions

/*
Start begins tracking time against a project.

Description: If a timer is already running the conflict is surfaced with the
conflicting entry attached — it is never auto-stopped; the client resolves it
explicitly via ResolveConflict.

Parameters:
  - context: context.Context
  - userID: string
  - projectID: string
  - description: string (optional)

Returns:
  - *entry.TimeEntry: The new running entry
  - error: VALIDATION_ERROR, PROJECT_NOT_FOUND, TIMER_CONFLICT, or storage errors
*/
func (service *Service) Start(context context.Context, userID, projectID, description string) (*entry.TimeEntry, error) {

	validator := &validate.Validator{}
	validator.Required(FieldProjectID, projectID).
		MaxLen(FieldDescription, description, constants.MaxDescriptionLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	unlock := service.locks.Lock(userID)
	defer unlock()

	exists, err := service.projects.Exists(context, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
	}

	running, err := service.store.Running(context, userID)
	if err != nil {
		return nil, err
	}
	if running != nil {
		return nil, apperr.Conflict(apperr.CodeTimerConflict, "A timer is already running").
			WithDetails(map[string]any{"conflictingEntry": running})
	}

	record := &entry.TimeEntry{
		ID:          uuid.New(),
		UserID:      userID,
		ProjectID:   projectID,
		Description: strings.TrimSpace(description),
		StartTime:   service.now(),
		IsRunning:   true,
		Tags:        []string{},
	}

	if err := service.store.Insert(context, record); err != nil {
		return nil, err
	}

	service.publisher.Publish(userID, realtime.Event{Type: realtime.EventTimerStarted, Payload: record})

	return record, nil
}

/*
Stop closes the running timer.

Description: The end instant defaults to now; a supplied end at or before the
start instant is rejected with INVALID_END_TIME — a closed entry always spans
a positive duration. Duration is always recomputed server-side from the
instants.

Parameters:
  - context: context.Context
  - userID: string
  - endTime: *time.Time (optional; nil means now)

Returns:
  - *entry.TimeEntry: The closed entry
  - error: NO_ACTIVE_TIMER, INVALID_END_TIME, or storage errors
*/
func (service *Service) Stop(context context.Context, userID string, endTime *time.Time) (*entry.TimeEntry, error) {
	return service.close(context, userID, endTime, realtime.EventTimerStopped)
}

// Pause is a stop alias: the entry is closed at now and a later start opens a
// fresh entry. The only difference is the event name pushed to subscribers.
func (service *Service) Pause(context context.Context, userID string) (*entry.TimeEntry, error) {
	return service.close(context, userID, nil, realtime.EventTimerPaused)
}

// close is the shared stop/pause transition.
func (service *Service) close(context context.Context, userID string, endTime *time.Time, eventType string) (*entry.TimeEntry, error) {
	unlock := service.locks.Lock(userID)
	defer unlock()

	running, err := service.store.Running(context, userID)
	if err != nil {
		return nil, err
	}
	if running == nil {
		return nil, apperr.NotFound(apperr.CodeNoActiveTimer, "No active timer")
	}

	end := service.now()
	if endTime != nil {
		end = *endTime
	}
	if !end.After(running.StartTime) {
		return nil, apperr.BadRequest(apperr.CodeInvalidEndTime, "End time must be after the start time")
	}

	closed, err := service.store.Close(context, userID, running.ID, end)
	if err != nil {
		return nil, err
	}

	service.publisher.Publish(userID,
		realtime.Event{Type: eventType, Payload: closed},
		realtime.Event{Type: realtime.EventEntryUpdated, Payload: closed},
	)

	return closed, nil
}

// # Reads

// Active returns the running entry, or nil when idle. Not serialized.
func (service *Service) Active(context context.Context, userID string) (*entry.TimeEntry, error) {
	return service.store.Running(context, userID)
}

// State returns the authoritative snapshot with server-computed elapsed seconds.
func (service *Service) State(context context.Context, userID string) (*State, error) {
	running, err := service.store.Running(context, userID)
	if err != nil {
		return nil, err
	}

	state := &State{}
	if running != nil {
		state.IsRunning = true
		state.CurrentEntry = running
		state.ElapsedSeconds = int64(service.now().Sub(running.StartTime) / time.Second)
	}

	return state, nil
}

// # Recovery Operations

/*
ResolveConflict settles a start that was rejected with TIMER_CONFLICT.

Description: "stop_existing" stops the running timer at now; "cancel_new" is
a no-op success — the client's pending start is simply discarded.

Returns:
  - *entry.TimeEntry: The stopped entry for "stop_existing", nil otherwise
  - error: VALIDATION_ERROR, NO_ACTIVE_TIMER, or storage errors
*/
func (service *Service) ResolveConflict(context context.Context, userID, action string) (*entry.TimeEntry, error) {

	validator := &validate.Validator{}
	validator.OneOf(FieldAction, action, ActionStopExisting, ActionCancelNew)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if action == ActionCancelNew {
		return nil, nil
	}

	return service.Stop(context, userID, nil)
}

/*
ForceStopAll closes every running entry of the user.

Description: Defensive sweep for states the invariant forbids (more than one
running entry). One timer:stopped event is emitted per closed entry.

Returns:
  - []*entry.TimeEntry: The closed entries; empty when the user was idle
  - error: Storage errors
*/
func (service *Service) ForceStopAll(context context.Context, userID string) ([]*entry.TimeEntry, error) {
	unlock := service.locks.Lock(userID)
	defer unlock()

	stopped, err := service.store.CloseAll(context, userID, service.now())
	if err != nil {
		return nil, err
	}

	events := make([]realtime.Event, 0, len(stopped)*2)
	for _, record := range stopped {
		events = append(events,
			realtime.Event{Type: realtime.EventTimerStopped, Payload: record},
			realtime.Event{Type: realtime.EventEntryUpdated, Payload: record},
		)
	}
	service.publisher.Publish(userID, events...)

	return stopped, nil
}

// Validate probes the user's entries for state-machine violations. A healthy
// user yields {ok:true, issues:[]}.
func (service *Service) Validate(context context.Context, userID string) (*Report, error) {
	issues, err := service.store.Inconsistencies(context, userID)
	if err != nil {
		return nil, err
	}

	return &Report{OK: len(issues) == 0, Issues: issues}, nil
}
