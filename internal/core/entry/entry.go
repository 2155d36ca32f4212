// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package entry implements the time-entry store and sync engine.

It covers CRUD with ownership enforcement, filtered listing, search, stats,
bulk operations, and the server side of the offline sync protocol: delta
pulls by updated-at cursor and last-writer-wins updates with a conflict
signal when the client's snapshot is stale.

# Invariants

  - A closed entry always satisfies end > start and duration = ⌊end-start⌋.
  - Creation never coexists with a running timer for the same user.
  - Every mutation checks that the entry belongs to the acting user.
*/
package entry

import "time"

// TimeEntry is a single tracked block of work.
type TimeEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ProjectID   string    `json:"projectId"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	// EndTime is nil exactly while the entry is running.
	EndTime *time.Time `json:"endTime,omitempty"`
	// Duration is whole seconds, authoritative end-start. Zero while running.
	Duration  int64     `json:"duration"`
	IsRunning bool      `json:"isRunning"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt doubles as the sync cursor for delta pulls.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Close stamps the end instant and recomputes the duration. Callers must
// have validated end against the start instant first.
func (entry *TimeEntry) Close(end time.Time) {
	entry.EndTime = &end
	entry.Duration = int64(end.Sub(entry.StartTime) / time.Second)
	entry.IsRunning = false
}

// Filter narrows list and stats queries. Zero values mean "no constraint".
type Filter struct {
	ProjectID string
	StartDate *time.Time
	EndDate   *time.Time
	IsRunning *bool
	// Tags matches entries carrying ANY of the given tags.
	Tags []string
	// Search is a case-insensitive contains over the description.
	Search string
}

// Stats summarizes a filtered set of closed entries.
type Stats struct {
	TotalEntries     int   `json:"totalEntries"`
	TotalDuration    int64 `json:"totalDuration"`
	AverageDuration  int64 `json:"averageDuration"`
	LongestDuration  int64 `json:"longestDuration"`
	ShortestDuration int64 `json:"shortestDuration"`
}

// Field names used in validation errors.
const (
	FieldProjectID   = "projectId"
	FieldDescription = "description"
	FieldStartTime   = "startTime"
	FieldEndTime     = "endTime"
	FieldEntryIDs    = "entryIds"
	FieldUpdates     = "updates"
)
