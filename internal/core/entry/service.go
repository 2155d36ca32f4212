// Copyright (c) 2026 Tikra. All rights reserved.

package entry

import (
	"context"
	"strings"
	"time"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/validate"
	"github.com/tikra-app/tikra/internal/realtime"
	"github.com/tikra-app/tikra/pkg/query"
	"github.com/tikra-app/tikra/pkg/slice"
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

// Service implements the time-entry use cases.
type Service struct {
	repo      Repository
	projects  ProjectChecker
	publisher Publisher
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(repo Repository, projects ProjectChecker, publisher Publisher) *Service {
	return &Service{repo: repo, projects: projects, publisher: publisher}
}

// # Reads

func (service *Service) Get(context context.Context, userID, entryID string) (*TimeEntry, error) {
	return service.repo.FindByID(context, userID, entryID)
}

func (service *Service) List(context context.Context, userID string, filter Filter, limit, offset int) ([]*TimeEntry, int, error) {
	return service.repo.ListForUser(context, userID, filter, limit, offset)
}

// ListSince is the delta pull for offline clients: everything the user
// changed after the cursor, ascending, so the last record is the next cursor.
func (service *Service) ListSince(context context.Context, userID string, cursor time.Time) ([]*TimeEntry, error) {
	return service.repo.ListSince(context, userID, cursor)
}

func (service *Service) Stats(context context.Context, userID string, filter Filter) (*Stats, error) {
	return service.repo.StatsForUser(context, userID, filter)
}

// # Creation

// CreateInput holds the client-supplied fields for an explicit (closed) entry.
type CreateInput struct {
	ProjectID   string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	// Duration is only consulted when EndTime is absent; the persisted
	// duration is always recomputed from the instants.
	Duration *int64
	Tags     []string
}

/*
Create inserts a closed time entry.

Description: Explicit creation may not silently coexist with a running
timer — the repository verifies this atomically and fails with
TIMER_RUNNING. The end instant comes from EndTime, or StartTime+Duration
when only a duration is supplied.

Parameters:
  - context: context.Context
  - userID: string
  - input: CreateInput

Returns:
  - *TimeEntry: Persisted entity with server-set fields
  - error: VALIDATION_ERROR, PROJECT_NOT_FOUND, TIMER_RUNNING, or storage errors
*/
func (service *Service) Create(context context.Context, userID string, input CreateInput) (*TimeEntry, error) {

	validator := &validate.Validator{}
	validator.Required(FieldProjectID, input.ProjectID).
		MaxLen(FieldDescription, input.Description, constants.MaxDescriptionLen).
		Custom(FieldStartTime, input.StartTime.IsZero(), "This field is required").
		Custom(FieldEndTime, input.EndTime == nil && input.Duration == nil, "Either endTime or duration is required")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	end := time.Time{}
	if input.EndTime != nil {
		end = *input.EndTime
	} else {
		end = input.StartTime.Add(time.Duration(*input.Duration) * time.Second)
	}

	if !end.After(input.StartTime) {
		return nil, validate.RequiredError(FieldEndTime, "Must be after startTime")
	}

	exists, err := service.projects.Exists(context, userID, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
	}

	entry := &TimeEntry{
		ID:          uuid.New(),
		UserID:      userID,
		ProjectID:   input.ProjectID,
		Description: strings.TrimSpace(input.Description),
		StartTime:   input.StartTime,
		Tags:        normalizeTags(input.Tags),
	}
	entry.Close(end)

	if err := service.repo.CreateClosed(context, entry); err != nil {
		return nil, err
	}

	service.publisher.Publish(userID, realtime.Event{Type: realtime.EventEntryCreated, Payload: entry})

	return entry, nil
}

// # Sync Updates

// UpdateInput is a field-whitelisted patch. Nil fields are left untouched.
type UpdateInput struct {
	ProjectID   *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Tags        []string
	// LastModified is the client's snapshot of updatedAt. When the server
	// record is newer the update is rejected with the server record attached,
	// unless Force is set. Absent means last-writer-wins.
	LastModified *time.Time
	Force        bool
}

/*
Update applies a patch to an entry, enforcing the conflict protocol.

Description: When the client supplies lastModified and the stored updatedAt
is newer, the entry was changed by another device since the client's
snapshot. The update is rejected with ENTITY_STALE carrying the current
server record; the client may accept it or resubmit with force.

Parameters:
  - context: context.Context
  - userID: string
  - entryID: string
  - input: UpdateInput

Returns:
  - *TimeEntry: The updated entity
  - error: ENTRY_NOT_FOUND, ENTITY_STALE, VALIDATION_ERROR, or storage errors
*/
func (service *Service) Update(context context.Context, userID, entryID string, input UpdateInput) (*TimeEntry, error) {

	entry, err := service.repo.FindByID(context, userID, entryID)
	if err != nil {
		return nil, err
	}

	if input.LastModified != nil && !input.Force && entry.UpdatedAt.After(*input.LastModified) {
		return nil, apperr.Conflict(apperr.CodeEntityStale, "Entry was modified by another device").
			WithDetails(map[string]any{"serverRecord": entry})
	}

	if input.ProjectID != nil {
		exists, err := service.projects.Exists(context, userID, *input.ProjectID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
		}
		entry.ProjectID = *input.ProjectID
	}
	if input.Description != nil {
		entry.Description = strings.TrimSpace(*input.Description)
	}
	if input.StartTime != nil {
		entry.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		entry.EndTime = input.EndTime
	}
	if input.Tags != nil {
		entry.Tags = normalizeTags(input.Tags)
	}

	validator := &validate.Validator{}
	validator.MaxLen(FieldDescription, entry.Description, constants.MaxDescriptionLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Re-derive the temporal fields whenever the instants moved.
	if entry.EndTime != nil {
		if !entry.EndTime.After(entry.StartTime) {
			return nil, validate.RequiredError(FieldEndTime, "Must be after startTime")
		}
		entry.Close(*entry.EndTime)
	}

	if err := service.repo.Update(context, entry); err != nil {
		return nil, err
	}

	service.publisher.Publish(userID, realtime.Event{Type: realtime.EventEntryUpdated, Payload: entry})

	return entry, nil
}

/*
Delete removes an entry owned by the user.

Returns:
  - error: ENTRY_NOT_FOUND or storage errors
*/
func (service *Service) Delete(context context.Context, userID, entryID string) error {
	if err := service.repo.Delete(context, userID, entryID); err != nil {
		return err
	}

	service.publisher.Publish(userID, realtime.Event{
		Type:    realtime.EventEntryDeleted,
		Payload: map[string]string{"id": entryID},
	})

	return nil
}

// # Bulk Operations

/*
BulkUpdate applies one patch to a set of entries atomically.

Description: All-or-nothing — a single unknown or foreign ID rolls the
whole batch back with ENTRIES_NOT_FOUND.

Returns:
  - []*TimeEntry: The updated entities
  - error: VALIDATION_ERROR, ENTRIES_NOT_FOUND, or storage errors
*/
func (service *Service) BulkUpdate(context context.Context, userID string, entryIDs []string, patch BulkPatch) ([]*TimeEntry, error) {
	entryIDs = dedupeIDs(entryIDs)

	validator := &validate.Validator{}
	validator.Custom(FieldEntryIDs, len(entryIDs) == 0, "At least one entry ID is required").
		Custom(FieldEntryIDs, len(entryIDs) > constants.MaxListLimit, "Too many entries in one batch").
		Custom(FieldUpdates, patch.IsEmpty(), "At least one field to update is required")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if patch.ProjectID != nil {
		exists, err := service.projects.Exists(context, userID, *patch.ProjectID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
		}
	}

	updated, err := service.repo.BulkUpdate(context, userID, entryIDs, patch)
	if err != nil {
		return nil, err
	}

	service.publisher.Publish(userID, slice.Map(updated, func(entry *TimeEntry) realtime.Event {
		return realtime.Event{Type: realtime.EventEntryUpdated, Payload: entry}
	})...)

	return updated, nil
}

/*
BulkDelete removes a set of entries atomically with the same all-or-nothing
ownership rule as BulkUpdate.
*/
func (service *Service) BulkDelete(context context.Context, userID string, entryIDs []string) error {
	entryIDs = dedupeIDs(entryIDs)

	validator := &validate.Validator{}
	validator.Custom(FieldEntryIDs, len(entryIDs) == 0, "At least one entry ID is required").
		Custom(FieldEntryIDs, len(entryIDs) > constants.MaxListLimit, "Too many entries in one batch")
	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.repo.BulkDelete(context, userID, entryIDs); err != nil {
		return err
	}

	service.publisher.Publish(userID, slice.Map(entryIDs, func(entryID string) realtime.Event {
		return realtime.Event{
			Type:    realtime.EventEntryDeleted,
			Payload: map[string]string{"id": entryID},
		}
	})...)

	return nil
}

// dedupeIDs drops repeated IDs, preserving first-seen order. A batch listing
// the same entry twice counts it once for ownership checks and events.
func dedupeIDs(entryIDs []string) []string {
	seen := make(map[string]struct{}, len(entryIDs))
	unique := make([]string, 0, len(entryIDs))
	for _, entryID := range entryIDs {
		if _, duplicate := seen[entryID]; duplicate {
			continue
		}
		seen[entryID] = struct{}{}
		unique = append(unique, entryID)
	}
	return unique
}

// normalizeTags trims entries and drops empties while preserving order. The
// result is never nil so tags marshal as [] rather than null.
func normalizeTags(tags []string) []string {
	cleaned := query.Clean(tags)
	if cleaned == nil {
		return []string{}
	}
	return cleaned
}
