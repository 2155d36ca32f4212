// Copyright (c) 2026 Tikra. All rights reserved.

package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikra-app/tikra/internal/core/entry"
	"github.com/tikra-app/tikra/internal/core/timer"
	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/userlock"
	"github.com/tikra-app/tikra/internal/realtime"
)

// # Fakes

// fakeStore is an in-memory timer.Store with the same invariant enforcement
// as the Postgres implementation.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*entry.TimeEntry
	issues  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*entry.TimeEntry)}
}

func (store *fakeStore) Running(_ context.Context, userID string) (*entry.TimeEntry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, item := range store.entries {
		if item.UserID == userID && item.IsRunning {
			clone := *item
			return &clone, nil
		}
	}
	return nil, nil
}

func (store *fakeStore) Insert(_ context.Context, record *entry.TimeEntry) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, item := range store.entries {
		if item.UserID == record.UserID && item.IsRunning {
			return apperr.Conflict(apperr.CodeTimerConflict, "A timer is already running")
		}
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	clone := *record
	store.entries[record.ID] = &clone
	return nil
}

func (store *fakeStore) Close(_ context.Context, userID, entryID string, end time.Time) (*entry.TimeEntry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	item, found := store.entries[entryID]
	if !found || item.UserID != userID || !item.IsRunning {
		return nil, apperr.NotFound(apperr.CodeNoActiveTimer, "No active timer")
	}

	item.Close(end)
	item.UpdatedAt = time.Now()
	clone := *item
	return &clone, nil
}

func (store *fakeStore) CloseAll(_ context.Context, userID string, end time.Time) ([]*entry.TimeEntry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	closed := []*entry.TimeEntry{}
	for _, item := range store.entries {
		if item.UserID == userID && item.IsRunning {
			item.Close(end)
			item.UpdatedAt = time.Now()
			clone := *item
			closed = append(closed, &clone)
		}
	}
	return closed, nil
}

func (store *fakeStore) Inconsistencies(_ context.Context, _ string) ([]string, error) {
	return store.issues, nil
}

// seedRunning plants a running entry directly, bypassing the service.
func (store *fakeStore) seedRunning(id, userID, projectID string, start time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[id] = &entry.TimeEntry{
		ID:        id,
		UserID:    userID,
		ProjectID: projectID,
		StartTime: start,
		IsRunning: true,
		Tags:      []string{},
	}
}

// fakeProjects answers Exists from a fixed allow-set.
type fakeProjects struct {
	known map[string]bool
}

func (projects *fakeProjects) Exists(_ context.Context, _, projectID string) (bool, error) {
	return projects.known[projectID], nil
}

// fakePublisher records every published event in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (publisher *fakePublisher) Publish(_ string, events ...realtime.Event) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, events...)
}

func (publisher *fakePublisher) types() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	types := make([]string, 0, len(publisher.events))
	for _, event := range publisher.events {
		types = append(types, event.Type)
	}
	return types
}

// # Harness

func newTimerService(t *testing.T, projectIDs ...string) (*timer.Service, *fakeStore, *fakePublisher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	known := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		known[id] = true
	}

	store := newFakeStore()
	publisher := &fakePublisher{}
	service := timer.NewService(store, &fakeProjects{known: known}, publisher, userlock.NewKeyed(ctx))

	return service, store, publisher
}

// # State Transitions

/*
TestTimer_StartStop covers the happy path: start opens a running entry, stop
closes it with a server-computed duration.
*/
func TestTimer_StartStop(t *testing.T) {
	service, _, publisher := newTimerService(t, "proj-1")
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", "proj-1", "  deep work  ")
	require.NoError(t, err)
	assert.True(t, started.IsRunning)
	assert.Nil(t, started.EndTime)
	assert.Equal(t, "deep work", started.Description)

	end := started.StartTime.Add(1 * time.Hour)
	stopped, err := service.Stop(ctx, "user-1", &end)
	require.NoError(t, err)

	assert.False(t, stopped.IsRunning)
	require.NotNil(t, stopped.EndTime)
	assert.Equal(t, int64(3600), stopped.Duration)

	assert.Equal(t, []string{
		realtime.EventTimerStarted,
		realtime.EventTimerStopped,
		realtime.EventEntryUpdated,
	}, publisher.types())
}

/*
TestTimer_Start_Validation rejects a start without a project.
*/
func TestTimer_Start_Validation(t *testing.T) {
	service, _, _ := newTimerService(t)

	_, err := service.Start(context.Background(), "user-1", "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
}

/*
TestTimer_Start_ProjectMissing rejects a start against a foreign or unknown
project.
*/
func TestTimer_Start_ProjectMissing(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")

	_, err := service.Start(context.Background(), "user-1", "proj-2", "")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeProjectNotFound))
}

/*
TestTimer_Start_Conflict verifies a second start is rejected with the running
entry attached, and that the running entry is never auto-stopped.
*/
func TestTimer_Start_Conflict(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1", "proj-2")
	ctx := context.Background()

	first, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	_, err = service.Start(ctx, "user-1", "proj-2", "")
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeTimerConflict, ae.Code)

	details, ok := ae.Details.(map[string]any)
	require.True(t, ok)
	conflicting, ok := details["conflictingEntry"].(*entry.TimeEntry)
	require.True(t, ok)
	assert.Equal(t, first.ID, conflicting.ID)

	// The first timer keeps running.
	active, err := service.Active(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
}

/*
TestTimer_Stop_NoActive verifies stop is not idempotent: a second stop fails
cleanly with NO_ACTIVE_TIMER.
*/
func TestTimer_Stop_NoActive(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")
	ctx := context.Background()

	_, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	_, err = service.Stop(ctx, "user-1", nil)
	require.NoError(t, err)

	_, err = service.Stop(ctx, "user-1", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNoActiveTimer))
}

/*
TestTimer_Stop_EndBeforeStart rejects a supplied end instant that predates
the start instant.
*/
func TestTimer_Stop_EndBeforeStart(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	end := started.StartTime.Add(-1 * time.Minute)
	_, err = service.Stop(ctx, "user-1", &end)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidEndTime))

	// The timer survives the failed stop.
	active, err := service.Active(ctx, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

/*
TestTimer_Stop_EqualEndTime rejects an end instant equal to the start instant:
a closed entry always spans a positive duration.
*/
func TestTimer_Stop_EqualEndTime(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	end := started.StartTime
	_, err = service.Stop(ctx, "user-1", &end)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidEndTime))

	// No zero-duration entry was persisted; the timer keeps running.
	active, err := service.Active(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.IsRunning)
}

/*
TestTimer_Pause verifies pause closes the entry like stop but announces
itself with the paused event.
*/
func TestTimer_Pause(t *testing.T) {
	service, _, publisher := newTimerService(t, "proj-1")
	ctx := context.Background()

	_, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	paused, err := service.Pause(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, paused.IsRunning)

	assert.Equal(t, []string{
		realtime.EventTimerStarted,
		realtime.EventTimerPaused,
		realtime.EventEntryUpdated,
	}, publisher.types())
}

// # Reads

/*
TestTimer_State covers both sides of the snapshot: idle and running with
server-computed elapsed seconds.
*/
func TestTimer_State(t *testing.T) {
	service, store, _ := newTimerService(t, "proj-1")
	ctx := context.Background()

	state, err := service.State(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, state.IsRunning)
	assert.Nil(t, state.CurrentEntry)
	assert.Zero(t, state.ElapsedSeconds)

	store.seedRunning("run-1", "user-1", "proj-1", time.Now().Add(-90*time.Second))

	state, err = service.State(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, state.IsRunning)
	require.NotNil(t, state.CurrentEntry)
	assert.GreaterOrEqual(t, state.ElapsedSeconds, int64(90))
	assert.Less(t, state.ElapsedSeconds, int64(95))
}

// # Recovery Operations

/*
TestTimer_ResolveConflict exercises both resolution actions and the action
whitelist.
*/
func TestTimer_ResolveConflict(t *testing.T) {
	tests := []struct {
		name        string
		action      string
		wantStopped bool
		wantCode    string
	}{
		{"stop_existing", timer.ActionStopExisting, true, ""},
		{"cancel_new", timer.ActionCancelNew, false, ""},
		{"unknown_action", "drop_tables", false, apperr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := newTimerService(t, "proj-1")
			ctx := context.Background()

			started, err := service.Start(ctx, "user-1", "proj-1", "")
			require.NoError(t, err)

			stopped, err := service.ResolveConflict(ctx, "user-1", tt.action)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)

			active, err := service.Active(ctx, "user-1")
			require.NoError(t, err)

			if tt.wantStopped {
				require.NotNil(t, stopped)
				assert.Equal(t, started.ID, stopped.ID)
				assert.Nil(t, active)
			} else {
				// cancel_new discards the pending start; the timer survives.
				assert.Nil(t, stopped)
				require.NotNil(t, active)
				assert.Equal(t, started.ID, active.ID)
			}
		})
	}
}

/*
TestTimer_ForceStopAll sweeps a corrupted state with two running entries and
emits one stopped/updated pair per entry.
*/
func TestTimer_ForceStopAll(t *testing.T) {
	service, store, publisher := newTimerService(t, "proj-1")
	ctx := context.Background()

	// Two running entries violate the invariant; plant them directly.
	store.seedRunning("run-1", "user-1", "proj-1", time.Now().Add(-2*time.Hour))
	store.seedRunning("run-2", "user-1", "proj-1", time.Now().Add(-1*time.Hour))

	stopped, err := service.ForceStopAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, stopped, 2)
	assert.Len(t, publisher.types(), 4)

	active, err := service.Active(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

/*
TestTimer_ForceStopAll_Idle is a no-op for an idle user.
*/
func TestTimer_ForceStopAll_Idle(t *testing.T) {
	service, _, publisher := newTimerService(t)

	stopped, err := service.ForceStopAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, stopped)
	assert.Empty(t, publisher.types())
}

/*
TestTimer_Validate reports the store's inconsistency findings verbatim.
*/
func TestTimer_Validate(t *testing.T) {
	service, store, _ := newTimerService(t)
	ctx := context.Background()

	report, err := service.Validate(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, report.Issues)

	store.issues = []string{"multiple running entries"}

	report, err = service.Validate(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []string{"multiple running entries"}, report.Issues)
}
