// Copyright (c) 2026 Tikra. All rights reserved.

package timer

import (
	"context"
	"time"

	"github.com/tikra-app/tikra/internal/core/entry"
)

// Store defines the data access contract for timer state transitions. All
// methods operate on the same time-entry table as the entry repository but
// with the row-locking the state machine requires.
type Store interface {

	/*
		Running returns the user's running entry, or nil when idle.
	*/
	Running(context context.Context, userID string) (*entry.TimeEntry, error)

	/*
		Insert persists a new running entry. Insertion of a second running
		entry for the same user fails on the partial unique index with
		apperr TIMER_CONFLICT.
	*/
	Insert(context context.Context, entry *entry.TimeEntry) error

	/*
		Close stops the identified running entry inside a transaction,
		re-checking it is still running under a row lock.

		Returns:
		  - *entry.TimeEntry: The closed entity with recomputed duration
		  - error: apperr NO_ACTIVE_TIMER when the entry is gone or already
		    closed, or database errors
	*/
	Close(context context.Context, userID, entryID string, end time.Time) (*entry.TimeEntry, error)

	/*
		CloseAll stops every running entry of the user in one transaction and
		returns the closed entities. An idle user yields an empty slice.
	*/
	CloseAll(context context.Context, userID string, end time.Time) ([]*entry.TimeEntry, error)

	/*
		Inconsistencies scans the user's entries for state-machine violations
		(multiple running entries, running entries carrying an end instant,
		closed entries whose duration disagrees with their instants).
	*/
	Inconsistencies(context context.Context, userID string) ([]string, error)
}
