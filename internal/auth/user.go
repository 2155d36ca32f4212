// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session, RefreshRecord) and the
logic for authentication, token rotation, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/tikra-app/tikra/internal/platform/sec"
)

// # Domain Entities

// Preferences holds the per-user display and notification settings carried
// on every user view so embedded clients can render without a second fetch.
type Preferences struct {
	TimeFormat    string `json:"timeFormat"`
	WeekStartDay  int    `json:"weekStartDay"`
	Notifications bool   `json:"notifications"`
}

// DefaultPreferences returns the settings assigned to a freshly registered user.
func DefaultPreferences() Preferences {
	return Preferences{
		TimeFormat:    "24h",
		WeekStartDay:  1, // Monday
		Notifications: true,
	}
}

// User represents a registered member of the Tikra platform.
type User struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	PasswordHash   string       `json:"-"` // Explicitly omitted from JSON for security.
	OrganizationID string       `json:"organizationId,omitempty"`
	Role           sec.UserRole `json:"role"`
	Preferences    Preferences  `json:"preferences"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Session is the server-side record behind an access token. Its TTL is
// idle-based: any authenticated request pushes the expiry forward.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	RefreshTokenID string    `json:"refreshTokenId"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivity   time.Time `json:"lastActivity"`
}

// RefreshRecord is the server-side half of a refresh token. The signed JWT
// alone is never sufficient: its token ID must still resolve to one of these.
type RefreshRecord struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldEmail           = "email"
	FieldName            = "name"
	FieldPassword        = "password"
	FieldOrganizationID  = "organizationId"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldRefreshToken    = "refreshToken"
	FieldTimeFormat      = "timeFormat"
	FieldWeekStartDay    = "weekStartDay"
)
