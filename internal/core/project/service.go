// Copyright (c) 2026 Tikra. All rights reserved.

package project

import (
	"context"
	"strings"
	"time"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/validate"
	"github.com/tikra-app/tikra/pkg/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds the client-supplied fields for a new project.
type CreateInput struct {
	Name        string
	Color       string
	Description string
}

// UpdateInput is a field-whitelisted patch; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Color       *string
	Description *string
	IsActive    *bool
}

func (service *Service) Get(context context.Context, userID, projectID string) (*Project, error) {
	return service.repo.FindByID(context, userID, projectID)
}

func (service *Service) List(context context.Context, userID string, since *time.Time) ([]*Project, error) {
	return service.repo.ListForUser(context, userID, since)
}

func (service *Service) Create(context context.Context, userID string, input CreateInput) (*Project, error) {
	name := strings.TrimSpace(input.Name)
	color := input.Color
	if color == "" {
		color = "#6366f1"
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, name).
		MaxLen(FieldName, name, constants.MaxProjectNameLen).
		HexColor(FieldColor, color).
		MaxLen(FieldDescription, input.Description, constants.MaxDescriptionLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	project := &Project{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Color:       color,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}

	if err := service.repo.Create(context, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (service *Service) Update(context context.Context, userID, projectID string, input UpdateInput) (*Project, error) {
	project, err := service.repo.FindByID(context, userID, projectID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		project.Name = strings.TrimSpace(*input.Name)
	}
	if input.Color != nil {
		project.Color = *input.Color
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		project.IsActive = *input.IsActive
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, project.Name).
		MaxLen(FieldName, project.Name, constants.MaxProjectNameLen).
		HexColor(FieldColor, project.Color).
		MaxLen(FieldDescription, project.Description, constants.MaxDescriptionLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.Update(context, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (service *Service) Delete(context context.Context, userID, projectID string) error {
	return service.repo.Delete(context, userID, projectID)
}

// Exists reports whether the project belongs to the user. Used by the timer
// and entry services to validate billing targets.
func (service *Service) Exists(context context.Context, userID, projectID string) (bool, error) {
	_, err := service.repo.FindByID(context, userID, projectID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeProjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
