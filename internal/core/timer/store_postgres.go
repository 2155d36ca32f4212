// Copyright (c) 2026 Tikra. All rights reserved.

package timer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikra-app/tikra/internal/core/entry"
	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/dberr"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const timerColumns = `id, userid, projectid, COALESCE(description, ''), starttime, endtime, duration, isrunning, COALESCE(tags, '{}'), createdat, updatedat`

func scanTimerEntry(row pgx.Row) (*entry.TimeEntry, error) {
	record := &entry.TimeEntry{}
	err := row.Scan(
		&record.ID, &record.UserID, &record.ProjectID, &record.Description,
		&record.StartTime, &record.EndTime, &record.Duration, &record.IsRunning,
		&record.Tags, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (store *PostgresStore) Running(context context.Context, userID string) (*entry.TimeEntry, error) {
	query := `SELECT ` + timerColumns + ` FROM core.time_entry WHERE userid = $1 AND isrunning`

	record, err := scanTimerEntry(store.db.QueryRow(context, query, userID))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "timer_running")
	}

	return record, nil
}

func (store *PostgresStore) Insert(context context.Context, record *entry.TimeEntry) error {
	const query = `
		INSERT INTO core.time_entry (
			id, userid, projectid, description, starttime, endtime, duration, isrunning, tags, createdat, updatedat
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULL, 0, TRUE, $6, $7, $7)`

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := store.db.Exec(context, query,
		record.ID, record.UserID, record.ProjectID, record.Description,
		record.StartTime, record.Tags, now,
	); err != nil {
		// The partial unique index is the last line of defense for the
		// single-running-entry invariant.
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict(apperr.CodeTimerConflict, "A timer is already running")
		}
		return dberr.Wrap(err, "timer_insert")
	}

	return nil
}

func (store *PostgresStore) Close(context context.Context, userID, entryID string, end time.Time) (*entry.TimeEntry, error) {
	var closed *entry.TimeEntry

	err := pgx.BeginFunc(context, store.db, func(tx pgx.Tx) error {

		// Re-check under a row lock: the entry must still be running.
		record, err := scanTimerEntry(tx.QueryRow(context,
			`SELECT `+timerColumns+` FROM core.time_entry
			 WHERE id = $1 AND userid = $2 AND isrunning FOR UPDATE`,
			entryID, userID))
		if err != nil {
			if dberr.IsNoRows(err) {
				return apperr.NotFound(apperr.CodeNoActiveTimer, "No active timer")
			}
			return dberr.Wrap(err, "timer_close_lock")
		}

		record.Close(end)
		record.UpdatedAt = time.Now()

		if _, err := tx.Exec(context,
			`UPDATE core.time_entry
			 SET endtime = $3, duration = $4, isrunning = FALSE, updatedat = $5
			 WHERE id = $1 AND userid = $2`,
			record.ID, userID, record.EndTime, record.Duration, record.UpdatedAt,
		); err != nil {
			return dberr.Wrap(err, "timer_close")
		}

		closed = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

func (store *PostgresStore) CloseAll(context context.Context, userID string, end time.Time) ([]*entry.TimeEntry, error) {
	var closed []*entry.TimeEntry

	err := pgx.BeginFunc(context, store.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(context,
			`SELECT `+timerColumns+` FROM core.time_entry
			 WHERE userid = $1 AND isrunning FOR UPDATE`,
			userID)
		if err != nil {
			return dberr.Wrap(err, "timer_close_all_lock")
		}

		running := []*entry.TimeEntry{}
		for rows.Next() {
			record, err := scanTimerEntry(rows)
			if err != nil {
				rows.Close()
				return dberr.Wrap(err, "timer_close_all_scan")
			}
			running = append(running, record)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return dberr.Wrap(err, "timer_close_all_rows")
		}

		now := time.Now()
		for _, record := range running {
			record.Close(end)
			record.UpdatedAt = now

			if _, err := tx.Exec(context,
				`UPDATE core.time_entry
				 SET endtime = $3, duration = $4, isrunning = FALSE, updatedat = $5
				 WHERE id = $1 AND userid = $2`,
				record.ID, userID, record.EndTime, record.Duration, record.UpdatedAt,
			); err != nil {
				return dberr.Wrap(err, "timer_close_all")
			}
		}

		closed = running
		return nil
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

func (store *PostgresStore) Inconsistencies(context context.Context, userID string) ([]string, error) {
	var runningCount, runningWithEnd, closedWithoutEnd, badDuration int

	// One round trip: each aggregate flags a distinct state-machine violation.
	err := store.db.QueryRow(context, `
		SELECT
			COUNT(*) FILTER (WHERE isrunning),
			COUNT(*) FILTER (WHERE isrunning AND endtime IS NOT NULL),
			COUNT(*) FILTER (WHERE NOT isrunning AND endtime IS NULL),
			COUNT(*) FILTER (WHERE endtime IS NOT NULL AND
				(endtime <= starttime OR duration <> FLOOR(EXTRACT(EPOCH FROM endtime - starttime))))
		FROM core.time_entry WHERE userid = $1`,
		userID).Scan(&runningCount, &runningWithEnd, &closedWithoutEnd, &badDuration)
	if err != nil {
		return nil, dberr.Wrap(err, "timer_inconsistencies")
	}

	issues := []string{}
	if runningCount > 1 {
		issues = append(issues, "multiple running entries")
	}
	if runningWithEnd > 0 {
		issues = append(issues, "running entry has an end time")
	}
	if closedWithoutEnd > 0 {
		issues = append(issues, "closed entry missing an end time")
	}
	if badDuration > 0 {
		issues = append(issues, "closed entry duration disagrees with its instants")
	}

	return issues, nil
}
