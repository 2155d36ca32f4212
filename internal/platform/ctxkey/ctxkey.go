// Copyright (c) 2026 Tikra. All rights reserved.

// Package ctxkey defines typed keys for values stored in [context.Context].
//
// Using an unexported named type prevents collisions with keys defined by
// other packages.
package ctxkey

type contextKey string

const (
	// KeyRequestID carries the correlation ID for the current request.
	KeyRequestID contextKey = "request_id"

	// KeyLogger carries the request-scoped *slog.Logger.
	KeyLogger contextKey = "logger"

	// KeyUser carries the authenticated *sec.AuthClaims.
	KeyUser contextKey = "user_claims"
)
