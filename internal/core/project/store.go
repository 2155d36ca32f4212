// Copyright (c) 2026 Tikra. All rights reserved.

package project

import (
	"context"
	"time"
)

// Repository defines the data access contract for projects.
type Repository interface {
	// FindByID returns the project only when it belongs to the user.
	FindByID(context context.Context, userID, projectID string) (*Project, error)

	// ListForUser returns the user's projects, newest first. A non-nil since
	// restricts the result to projects updated after the cursor, ascending.
	ListForUser(context context.Context, userID string, since *time.Time) ([]*Project, error)

	Create(context context.Context, project *Project) error
	Update(context context.Context, project *Project) error
	Delete(context context.Context, userID, projectID string) error
}
