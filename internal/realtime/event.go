// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package realtime implements the fan-out hub behind the live timer channel.

It owns the per-user subscription table, the bounded per-subscription event
queues, the WebSocket transport, and the HTTP polling fallback. The hub is
transport-agnostic: domain services publish events without knowing whether a
subscriber is on a socket or draining a poll queue.

# Delivery Semantics

Best-effort, per-user, in-order per subscription. Missed events are never
replayed — reconnecting clients issue a timer:sync command and pull entity
deltas with ?since=<cursor>.
*/
package realtime

import "encoding/json"

// # Wire Contract

// Event type names pushed to subscribers. These strings are shared with
// embedded clients and must never change.
const (
	EventTimerStarted = "timer:started"
	EventTimerStopped = "timer:stopped"
	EventTimerPaused  = "timer:paused"
	EventTimerUpdate  = "timer:update"
	EventTimerState   = "timer:state"
	EventTimerError   = "timer:error"

	EventEntryCreated = "timeEntry:created"
	EventEntryUpdated = "timeEntry:updated"
	EventEntryDeleted = "timeEntry:deleted"
)

// Command type names accepted from subscribers.
const (
	CommandTimerStart       = "timer:start"
	CommandTimerStop        = "timer:stop"
	CommandTimerPause       = "timer:pause"
	CommandTimerSync        = "timer:sync"
	CommandIframeVisibility = "iframe:visibility"
)

// Event is one outbound frame: {type, payload}.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Command is one inbound frame from a subscriber.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartCommandPayload is the body of a timer:start command.
type StartCommandPayload struct {
	ProjectID   string `json:"projectId"`
	Description string `json:"description,omitempty"`
}

// StopCommandPayload is the body of a timer:stop command.
type StopCommandPayload struct {
	EndTime string `json:"endTime,omitempty"`
}

// VisibilityPayload is the body of an iframe:visibility hint.
type VisibilityPayload struct {
	Visible bool `json:"visible"`
}

// ErrorPayload is the body of a timer:error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
