// Copyright (c) 2026 Tikra. All rights reserved.

package timer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikra-app/tikra/internal/core/timer"
	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/realtime"
)

func errorCode(t *testing.T, reply *realtime.Event) string {
	t.Helper()

	require.NotNil(t, reply)
	require.Equal(t, realtime.EventTimerError, reply.Type)
	payload, ok := reply.Payload.(realtime.ErrorPayload)
	require.True(t, ok)
	return payload.Code
}

/*
TestCommands_StartStop verifies successful channel mutations reply with
nothing — subscribers learn the outcome from the published events.
*/
func TestCommands_StartStop(t *testing.T) {
	service, _, publisher := newTimerService(t, "proj-1")
	commands := timer.NewCommands(service)
	ctx := context.Background()

	payload, err := json.Marshal(realtime.StartCommandPayload{ProjectID: "proj-1"})
	require.NoError(t, err)

	reply := commands.HandleCommand(ctx, "user-1", realtime.Command{
		Type:    realtime.CommandTimerStart,
		Payload: payload,
	})
	assert.Nil(t, reply)

	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{Type: realtime.CommandTimerStop})
	assert.Nil(t, reply)

	assert.Equal(t, []string{
		realtime.EventTimerStarted,
		realtime.EventTimerStopped,
		realtime.EventEntryUpdated,
	}, publisher.types())
}

/*
TestCommands_Stop_EndTime verifies the RFC 3339 end-time parameter on the
stop command, including rejection of malformed instants.
*/
func TestCommands_Stop_EndTime(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")
	commands := timer.NewCommands(service)
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", "proj-1", "")
	require.NoError(t, err)

	reply := commands.HandleCommand(ctx, "user-1", realtime.Command{
		Type:    realtime.CommandTimerStop,
		Payload: json.RawMessage(`{"endTime":"yesterday"}`),
	})
	assert.Equal(t, apperr.CodeInvalidEndTime, errorCode(t, reply))

	end := started.StartTime.Add(time.Hour).UTC().Format(time.RFC3339)
	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{
		Type:    realtime.CommandTimerStop,
		Payload: json.RawMessage(`{"endTime":"` + end + `"}`),
	})
	assert.Nil(t, reply)
}

/*
TestCommands_ErrorMapping verifies service failures surface as timer:error
frames carrying the stable taxonomy code.
*/
func TestCommands_ErrorMapping(t *testing.T) {
	service, _, _ := newTimerService(t, "proj-1")
	commands := timer.NewCommands(service)
	ctx := context.Background()

	// Stop with nothing running.
	reply := commands.HandleCommand(ctx, "user-1", realtime.Command{Type: realtime.CommandTimerStop})
	assert.Equal(t, apperr.CodeNoActiveTimer, errorCode(t, reply))

	// Start against an unknown project.
	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{
		Type:    realtime.CommandTimerStart,
		Payload: json.RawMessage(`{"projectId":"proj-9"}`),
	})
	assert.Equal(t, apperr.CodeProjectNotFound, errorCode(t, reply))

	// Malformed frame and unknown command type.
	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{
		Type:    realtime.CommandTimerStart,
		Payload: json.RawMessage(`"garbage`),
	})
	assert.Equal(t, apperr.CodeValidation, errorCode(t, reply))

	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{Type: "timer:explode"})
	assert.Equal(t, apperr.CodeValidation, errorCode(t, reply))
}

/*
TestCommands_Sync verifies the sync command replies with the authoritative
state snapshot on the issuing channel only.
*/
func TestCommands_Sync(t *testing.T) {
	service, store, _ := newTimerService(t, "proj-1")
	commands := timer.NewCommands(service)
	ctx := context.Background()

	reply := commands.HandleCommand(ctx, "user-1", realtime.Command{Type: realtime.CommandTimerSync})
	require.NotNil(t, reply)
	assert.Equal(t, realtime.EventTimerState, reply.Type)

	state, ok := reply.Payload.(*timer.State)
	require.True(t, ok)
	assert.False(t, state.IsRunning)

	// With a running entry the snapshot carries elapsed seconds, and the
	// elapsed ticker source reports running.
	store.seedRunning("run-1", "user-1", "proj-1", time.Now().Add(-30*time.Second))

	reply = commands.HandleCommand(ctx, "user-1", realtime.Command{Type: realtime.CommandTimerSync})
	state, ok = reply.Payload.(*timer.State)
	require.True(t, ok)
	assert.True(t, state.IsRunning)
	assert.GreaterOrEqual(t, state.ElapsedSeconds, int64(30))

	payload, running, err := commands.TimerUpdate(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, running)
	assert.NotNil(t, payload)
}
