// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Parameters:
		  - context: context.Context
		  - email: string (already trimmed and lower-cased)

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures (unique violations surface as USER_EXISTS)
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		UpdatePreferences replaces the user's preference blob.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - preferences: Preferences

		Returns:
		  - error: Persistence failures
	*/
	UpdatePreferences(context context.Context, userID string, preferences Preferences) error
}

// # Session Store

// SessionStore defines the contract for volatile session records.
//
// A Redis implementation backs horizontal deployments; a single instance may
// use the in-memory implementation.
type SessionStore interface {

	/*
		Create persists a session record with an idle TTL. Re-creating an
		existing session overwrites it (used during refresh rotation).

		Parameters:
		  - context: context.Context
		  - session: *Session
		  - ttl: time.Duration

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, session *Session, ttl time.Duration) error

	/*
		Get returns the session record, or nil when it expired or never existed.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *Session: Hydrated record, nil when absent
		  - error: Storage failures
	*/
	Get(context context.Context, sessionID string) (*Session, error)

	/*
		Touch bumps the session's last-activity time and pushes its TTL forward.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - ttl: time.Duration

		Returns:
		  - bool: false when the session no longer exists
		  - error: Storage failures
	*/
	Touch(context context.Context, sessionID string, ttl time.Duration) (bool, error)

	/*
		Delete removes a single session. Missing records are not an error.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Storage failures
	*/
	Delete(context context.Context, sessionID string) error

	/*
		DeleteByUser removes every session belonging to the user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Storage failures
	*/
	DeleteByUser(context context.Context, userID string) error
}

// # Refresh Token Store

// RefreshTokenStore tracks the single-use server-side records behind signed
// refresh tokens.
type RefreshTokenStore interface {

	/*
		Store registers a refresh token ID for a user with an absolute TTL.

		Parameters:
		  - context: context.Context
		  - tokenID: string
		  - record: RefreshRecord
		  - ttl: time.Duration

		Returns:
		  - error: Storage failures
	*/
	Store(context context.Context, tokenID string, record RefreshRecord, ttl time.Duration) error

	/*
		Consume atomically removes and returns the record for a token ID.

		Description: The compare-and-delete MUST be atomic; two concurrent
		consumers of the same ID must see exactly one success.

		Parameters:
		  - context: context.Context
		  - tokenID: string

		Returns:
		  - *RefreshRecord: The stored record
		  - bool: false when the token was already consumed or expired
		  - error: Storage failures
	*/
	Consume(context context.Context, tokenID string) (*RefreshRecord, bool, error)

	/*
		Revoke removes a single refresh token without consuming it.

		Parameters:
		  - context: context.Context
		  - tokenID: string
		  - userID: string

		Returns:
		  - error: Storage failures
	*/
	Revoke(context context.Context, tokenID, userID string) error

	/*
		RevokeAllForUser removes every outstanding refresh token for the user.
		Called on logout-all, password change, and replay detection.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Storage failures
	*/
	RevokeAllForUser(context context.Context, userID string) error
}
