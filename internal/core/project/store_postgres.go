// Copyright (c) 2026 Tikra. All rights reserved.

package project

import (
	"context"
	"time"

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

const projectColumns = `id, userid, name, color, COALESCE(description, ''), isactive, createdat, updatedat`

func (repository *PostgresRepository) FindByID(context context.Context, userID, projectID string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM core.project WHERE id = $1 AND userid = $2`

	project := &Project{}
	err := repository.db.QueryRow(context, query, projectID, userID).Scan(
		&project.ID, &project.UserID, &project.Name, &project.Color,
		&project.Description, &project.IsActive, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
		}
		return nil, dberr.Wrap(err, "project_find_by_id")
	}

	return project, nil
}

func (repository *PostgresRepository) ListForUser(context context.Context, userID string, since *time.Time) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM core.project WHERE userid = $1 ORDER BY createdat DESC, id DESC`
	args := []any{userID}

	// Delta pulls order ascending so clients can resume from the last cursor.
	if since != nil {
		query = `SELECT ` + projectColumns + ` FROM core.project WHERE userid = $1 AND updatedat > $2 ORDER BY updatedat ASC, id ASC`
		args = append(args, *since)
	}

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "project_list")
	}
	defer rows.Close()

	projects := make([]*Project, 0)
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.ID, &project.UserID, &project.Name, &project.Color,
			&project.Description, &project.IsActive, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "project_scan")
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

func (repository *PostgresRepository) Create(context context.Context, project *Project) error {
	const query = `
		INSERT INTO core.project (id, userid, name, color, description, isactive, createdat, updatedat)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := repository.db.Exec(context, query,
		project.ID, project.UserID, project.Name, project.Color,
		project.Description, project.IsActive, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "project_create")
	}

	return nil
}

func (repository *PostgresRepository) Update(context context.Context, project *Project) error {
	const query = `
		UPDATE core.project
		SET name = $3, color = $4, description = NULLIF($5, ''), isactive = $6, updatedat = $7
		WHERE id = $1 AND userid = $2`

	project.UpdatedAt = time.Now()

	tag, err := repository.db.Exec(context, query,
		project.ID, project.UserID, project.Name, project.Color,
		project.Description, project.IsActive, project.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "project_update")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
	}

	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, userID, projectID string) error {
	tag, err := repository.db.Exec(context,
		`DELETE FROM core.project WHERE id = $1 AND userid = $2`, projectID, userID)
	if err != nil {
		return dberr.Wrap(err, "project_delete")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
	}

	return nil
}
