// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account metadata including the preferences blob,
ensuring timestamps are initialized if not provided.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr USER_EXISTS on email collision, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, name, passwordhash, organizationid, role, preferences, createdat, updatedat
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.OrganizationID,
		user.Role,
		user.Preferences,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// The unique index on the normalized email is the source of truth
		// for duplicate registrations.
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict(apperr.CodeUserExists, "An account with this email already exists")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves a user record by their normalized email address.

Parameters:
  - context: context.Context
  - email: string (trimmed, lower-cased)

Returns:
  - *User: Hydrated account entity
  - error: apperr USER_NOT_FOUND or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, name, passwordhash, COALESCE(organizationid, ''), role, preferences, createdat, updatedat
		FROM users.account
		WHERE email = $1`

	return repository.scanOne(context, query, email)
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr USER_NOT_FOUND or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, name, passwordhash, COALESCE(organizationid, ''), role, preferences, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	return repository.scanOne(context, query, id)
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
UpdatePreferences replaces the user's preference blob.

Parameters:
  - context: context.Context
  - userID: string
  - preferences: Preferences

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePreferences(context context.Context, userID string, preferences Preferences) error {
	const query = `
		UPDATE users.account
		SET preferences = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, preferences, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_preferences_failed: %w", err)
	}

	return nil
}

// scanOne executes a single-row account query and hydrates the entity.
func (repository *PostgresUserRepository) scanOne(context context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.OrganizationID,
		&user.Role,
		&user.Preferences,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound(apperr.CodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}
