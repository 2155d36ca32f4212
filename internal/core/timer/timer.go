// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package timer implements the per-user timer state machine.

A user is Running when exactly one time entry has isrunning=true and no end
instant, and Idle otherwise. Pausing closes the running entry; there is no
distinct paused state server-side.

# Serialization

Every mutation (start, stop, pause, resolve-conflict, force-stop-all) runs
inside the user's keyed mutex, and the store locks the running row FOR UPDATE
inside its transaction. Holding the mutex across the transaction and the
event broadcast keeps fan-out order identical to commit order. Reads are not
serialized.
*/
package timer

import (
	"github.com/tikra-app/tikra/internal/core/entry"
)

// Conflict-resolution actions accepted by ResolveConflict.
const (
	ActionStopExisting = "stop_existing"
	ActionCancelNew    = "cancel_new"
)

// State is the authoritative timer snapshot pushed to clients. Elapsed
// seconds are always computed server-side from the running entry's start.
type State struct {
	IsRunning      bool             `json:"isRunning"`
	CurrentEntry   *entry.TimeEntry `json:"currentEntry,omitempty"`
	ElapsedSeconds int64            `json:"elapsedSeconds"`
}

// Report is the result of the consistency probe.
type Report struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues"`
}

// Field names used in validation errors.
const (
	FieldProjectID   = "projectId"
	FieldDescription = "description"
	FieldEndTime     = "endTime"
	FieldAction      = "action"
)
