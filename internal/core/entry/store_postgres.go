// Copyright (c) 2026 Tikra. All rights reserved.

package entry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/dberr"
)

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const entryColumns = `id, userid, projectid, COALESCE(description, ''), starttime, endtime, duration, isrunning, COALESCE(tags, '{}'), createdat, updatedat`

// scanEntry hydrates one row from any source selecting entryColumns.
func scanEntry(row pgx.Row) (*TimeEntry, error) {
	entry := &TimeEntry{}
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.ProjectID, &entry.Description,
		&entry.StartTime, &entry.EndTime, &entry.Duration, &entry.IsRunning,
		&entry.Tags, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, userID, entryID string) (*TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM core.time_entry WHERE id = $1 AND userid = $2`

	entry, err := scanEntry(repository.db.QueryRow(context, query, entryID, userID))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound(apperr.CodeEntryNotFound, "Time entry not found")
		}
		return nil, dberr.Wrap(err, "entry_find_by_id")
	}

	return entry, nil
}

// buildFilter translates a Filter into WHERE conditions. The first argument
// is always the user ID; the returned clause starts with "WHERE".
func buildFilter(userID string, filter Filter) (string, []any) {
	conditions := []string{"userid = $1"}
	args := []any{userID}

	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProjectID != "" {
		conditions = append(conditions, "projectid = "+arg(filter.ProjectID))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "starttime >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "starttime <= "+arg(*filter.EndDate))
	}
	if filter.IsRunning != nil {
		conditions = append(conditions, "isrunning = "+arg(*filter.IsRunning))
	}
	if len(filter.Tags) > 0 {
		// Any-match: the entry carries at least one of the requested tags.
		conditions = append(conditions, "tags && "+arg(filter.Tags))
	}
	if filter.Search != "" {
		conditions = append(conditions, "description ILIKE "+arg("%"+filter.Search+"%"))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (repository *PostgresRepository) ListForUser(context context.Context, userID string, filter Filter, limit, offset int) ([]*TimeEntry, int, error) {
	whereClause, args := buildFilter(userID, filter)

	// The unpaged total lets clients render page controls in one round trip.
	countQuery := `SELECT COUNT(*) FROM core.time_entry ` + whereClause

	total := 0
	if err := repository.db.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "entry_count")
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM core.time_entry %s ORDER BY starttime DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, listQuery, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "entry_list")
	}
	defer rows.Close()

	entries := make([]*TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "entry_scan")
		}
		entries = append(entries, entry)
	}

	return entries, total, rows.Err()
}

func (repository *PostgresRepository) ListSince(context context.Context, userID string, cursor time.Time) ([]*TimeEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM core.time_entry
		WHERE userid = $1 AND updatedat > $2
		ORDER BY updatedat ASC, id ASC`

	rows, err := repository.db.Query(context, query, userID, cursor)
	if err != nil {
		return nil, dberr.Wrap(err, "entry_list_since")
	}
	defer rows.Close()

	entries := make([]*TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "entry_scan_since")
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (repository *PostgresRepository) RunningForUser(context context.Context, userID string) (*TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM core.time_entry WHERE userid = $1 AND isrunning`

	entry, err := scanEntry(repository.db.QueryRow(context, query, userID))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "entry_running_for_user")
	}

	return entry, nil
}

const insertQuery = `
	INSERT INTO core.time_entry (
		id, userid, projectid, description, starttime, endtime, duration, isrunning, tags, createdat, updatedat
	) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`

func insertArgs(entry *TimeEntry) []any {
	return []any{
		entry.ID, entry.UserID, entry.ProjectID, entry.Description,
		entry.StartTime, entry.EndTime, entry.Duration, entry.IsRunning,
		entry.Tags, entry.CreatedAt, entry.UpdatedAt,
	}
}

func (repository *PostgresRepository) CreateClosed(context context.Context, entry *TimeEntry) error {
	return pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {

		// Row lock on the running entry serializes against concurrent timer
		// mutations for the same user.
		var runningID string
		err := tx.QueryRow(context,
			`SELECT id FROM core.time_entry WHERE userid = $1 AND isrunning FOR UPDATE`,
			entry.UserID).Scan(&runningID)

		if err == nil {
			return apperr.Conflict(apperr.CodeTimerRunning, "Stop the running timer before creating entries")
		}
		if !dberr.IsNoRows(err) {
			return dberr.Wrap(err, "entry_create_running_check")
		}

		now := time.Now()
		entry.CreatedAt = now
		entry.UpdatedAt = now

		if _, err := tx.Exec(context, insertQuery, insertArgs(entry)...); err != nil {
			return dberr.Wrap(err, "entry_create_closed")
		}

		return nil
	})
}

func (repository *PostgresRepository) Update(context context.Context, entry *TimeEntry) error {
	const query = `
		UPDATE core.time_entry
		SET projectid = $3, description = NULLIF($4, ''), starttime = $5, endtime = $6,
		    duration = $7, isrunning = $8, tags = $9, updatedat = $10
		WHERE id = $1 AND userid = $2`

	entry.UpdatedAt = time.Now()

	tag, err := repository.db.Exec(context, query,
		entry.ID, entry.UserID, entry.ProjectID, entry.Description,
		entry.StartTime, entry.EndTime, entry.Duration, entry.IsRunning,
		entry.Tags, entry.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "entry_update")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeEntryNotFound, "Time entry not found")
	}

	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, userID, entryID string) error {
	tag, err := repository.db.Exec(context,
		`DELETE FROM core.time_entry WHERE id = $1 AND userid = $2`, entryID, userID)
	if err != nil {
		return dberr.Wrap(err, "entry_delete")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeEntryNotFound, "Time entry not found")
	}

	return nil
}

// lockBatch verifies inside the transaction that every ID resolves to an
// entry owned by the user, taking row locks so the batch is stable.
// id is the row key, so the locked count is over distinct IDs; the request
// IDs are deduplicated to compare like with like.
func lockBatch(context context.Context, tx pgx.Tx, userID string, entryIDs []string) error {
	entryIDs = dedupeIDs(entryIDs)

	var owned int
	err := tx.QueryRow(context,
		`SELECT COUNT(*) FROM (
			SELECT id FROM core.time_entry WHERE userid = $1 AND id = ANY($2) FOR UPDATE
		) locked`,
		userID, entryIDs).Scan(&owned)
	if err != nil {
		return dberr.Wrap(err, "entry_bulk_lock")
	}

	if owned != len(entryIDs) {
		return apperr.NotFound(apperr.CodeEntriesNotFound, "One or more entries do not exist or are not yours")
	}

	return nil
}

func (repository *PostgresRepository) BulkUpdate(context context.Context, userID string, entryIDs []string, patch BulkPatch) ([]*TimeEntry, error) {
	var updated []*TimeEntry

	err := pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {
		if err := lockBatch(context, tx, userID, entryIDs); err != nil {
			return err
		}

		// Assemble the SET clause from the whitelisted patch fields.
		sets := []string{}
		args := []any{userID, entryIDs}
		arg := func(value any) string {
			args = append(args, value)
			return fmt.Sprintf("$%d", len(args))
		}

		if patch.ProjectID != nil {
			sets = append(sets, "projectid = "+arg(*patch.ProjectID))
		}
		if patch.Description != nil {
			sets = append(sets, "description = NULLIF("+arg(*patch.Description)+", '')")
		}
		if patch.Tags != nil {
			sets = append(sets, "tags = "+arg(patch.Tags))
		}
		sets = append(sets, "updatedat = "+arg(time.Now()))

		query := fmt.Sprintf(
			`UPDATE core.time_entry SET %s WHERE userid = $1 AND id = ANY($2) RETURNING %s`,
			strings.Join(sets, ", "), entryColumns)

		rows, err := tx.Query(context, query, args...)
		if err != nil {
			return dberr.Wrap(err, "entry_bulk_update")
		}
		defer rows.Close()

		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return dberr.Wrap(err, "entry_bulk_scan")
			}
			updated = append(updated, entry)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (repository *PostgresRepository) BulkDelete(context context.Context, userID string, entryIDs []string) error {
	return pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {
		if err := lockBatch(context, tx, userID, entryIDs); err != nil {
			return err
		}

		if _, err := tx.Exec(context,
			`DELETE FROM core.time_entry WHERE userid = $1 AND id = ANY($2)`,
			userID, entryIDs); err != nil {
			return dberr.Wrap(err, "entry_bulk_delete")
		}

		return nil
	})
}

func (repository *PostgresRepository) StatsForUser(context context.Context, userID string, filter Filter) (*Stats, error) {
	whereClause, args := buildFilter(userID, filter)

	// Running entries have no meaningful duration yet; stats cover closed work.
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(duration), 0),
		       COALESCE(AVG(duration), 0)::bigint,
		       COALESCE(MAX(duration), 0),
		       COALESCE(MIN(duration), 0)
		FROM core.time_entry ` + whereClause + ` AND isrunning = FALSE`

	stats := &Stats{}
	err := repository.db.QueryRow(context, query, args...).Scan(
		&stats.TotalEntries,
		&stats.TotalDuration,
		&stats.AverageDuration,
		&stats.LongestDuration,
		&stats.ShortestDuration,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "entry_stats")
	}

	return stats, nil
}
