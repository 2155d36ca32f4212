// Copyright (c) 2026 Tikra. All rights reserved.

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tikra-app/tikra/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// Not-found mapping is left to the repositories because the taxonomy code
// depends on the entity (PROJECT_NOT_FOUND vs ENTRY_NOT_FOUND).
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// Unknown query errors become Internal Server Errors. The action label
	// survives in the cause chain for server-side logs only.
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsNoRows reports whether the error is the pgx empty-result sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether the error is a Postgres unique-constraint
// violation (SQLSTATE 23505), used to classify duplicate emails and the
// single-running-entry partial index.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}
