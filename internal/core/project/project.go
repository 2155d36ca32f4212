// Copyright (c) 2026 Tikra. All rights reserved.

// Package project implements the project catalog that time entries bill
// against. Projects are strictly user-scoped; every read and mutation is
// keyed by the owning user.
package project

import "time"

// Project is a billing bucket owned by a single user.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	// UpdatedAt doubles as the sync cursor for delta pulls.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Field names used in validation errors.
const (
	FieldName        = "name"
	FieldColor       = "color"
	FieldDescription = "description"
)
