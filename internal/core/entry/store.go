// Copyright (c) 2026 Tikra. All rights reserved.

package entry

import (
	"context"
	"time"
)

// Repository defines the data access contract for time entries.
type Repository interface {

	/*
		FindByID returns the entry only when it belongs to the user.

		Returns:
		  - *TimeEntry: Hydrated entity
		  - error: apperr ENTRY_NOT_FOUND or database errors
	*/
	FindByID(context context.Context, userID, entryID string) (*TimeEntry, error)

	/*
		ListForUser returns a filtered page ordered by start time descending
		with ID as tie-breaker, plus the unpaged total.
	*/
	ListForUser(context context.Context, userID string, filter Filter, limit, offset int) ([]*TimeEntry, int, error)

	/*
		ListSince returns every entry with updatedat strictly after the
		cursor, ordered ascending with ID tie-breaker, so offline clients can
		resume from the last record they saw.
	*/
	ListSince(context context.Context, userID string, cursor time.Time) ([]*TimeEntry, error)

	/*
		RunningForUser returns the user's running entry, or nil when idle.
	*/
	RunningForUser(context context.Context, userID string) (*TimeEntry, error)

	/*
		CreateClosed atomically verifies the user has no running timer and
		inserts the closed entry; returns apperr TIMER_RUNNING otherwise.
	*/
	CreateClosed(context context.Context, entry *TimeEntry) error

	/*
		Update persists the full entity state, refreshing the sync cursor.
	*/
	Update(context context.Context, entry *TimeEntry) error

	/*
		Delete removes the entry when it belongs to the user.
	*/
	Delete(context context.Context, userID, entryID string) error

	/*
		BulkUpdate applies a patch to every listed entry in one transaction.

		Description: When any ID does not resolve to an entry owned by the
		user, the whole batch rolls back with apperr ENTRIES_NOT_FOUND.

		Returns:
		  - []*TimeEntry: The updated entities
		  - error: ENTRIES_NOT_FOUND or database errors
	*/
	BulkUpdate(context context.Context, userID string, entryIDs []string, patch BulkPatch) ([]*TimeEntry, error)

	/*
		BulkDelete removes every listed entry in one transaction with the
		same all-or-nothing ownership rule as BulkUpdate.
	*/
	BulkDelete(context context.Context, userID string, entryIDs []string) error

	/*
		StatsForUser aggregates closed entries matching the filter.
	*/
	StatsForUser(context context.Context, userID string, filter Filter) (*Stats, error)
}

// BulkPatch is the field-whitelisted payload for bulk updates.
type BulkPatch struct {
	ProjectID   *string  `json:"projectId"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// IsEmpty reports whether the patch would change nothing.
func (patch BulkPatch) IsEmpty() bool {
	return patch.ProjectID == nil && patch.Description == nil && patch.Tags == nil
}
