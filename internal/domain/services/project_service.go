package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

type ProjectService struct {
	projectRepo repositories.ProjectRepository
	access      *AccessService
	activity    *ActivityService
	logger      *logger.Logger
}

func NewProjectService(projectRepo repositories.ProjectRepository, access *AccessService, activity *ActivityService, log *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		access:      access,
		activity:    activity,
		logger:      log,
	}
}

// CreateProject creates a project owned by caller
func (s *ProjectService) CreateProject(ctx context.Context, caller uuid.UUID, name, description string) (*models.Project, error) {
	const op = "create project"

	if caller == uuid.Nil {
		return nil, authError(op, ErrUnauthenticated)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(op, errors.New("project name is required"))
	}

	project := &models.Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedBy:   caller,
	}
	owner := &models.ProjectMember{ProjectID: project.ID, UserID: caller, Role: models.RoleOwner}

	run := newSaga(op, s.logger).
		step("insert project", func(ctx context.Context) error {
			if err := s.projectRepo.Create(ctx, project); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, nil).
		step("add owner", func(ctx context.Context) error {
			if err := s.projectRepo.AddMember(ctx, owner); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, nil)
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   project.ID,
		EntityType:  models.EntityProject,
		EntityID:    project.ID,
		Action:      models.ActionCreated,
		Description: fmt.Sprintf("Created project %s", project.Name),
	})

	s.logger.Info("Project created", "project_id", project.ID, "owner", caller)
	return project, nil
}

// AddMember adds a user to a project. Only owners and admins may add members.
func (s *ProjectService) AddMember(ctx context.Context, caller, projectID, userID uuid.UUID, role string) (*models.ProjectMember, error) {
	const op = "add member"

	member, err := s.access.Membership(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManage() {
		return nil, authError(op, ErrForbidden)
	}
	if userID == uuid.Nil {
		return nil, validationError(op, errors.New("user id is required"))
	}
	parsed, err := models.ParseMemberRole(role)
	if err != nil {
		return nil, validationError(op, err)
	}
	if parsed == models.RoleOwner && member.Role != models.RoleOwner {
		return nil, authError(op, ErrForbidden)
	}

	if _, err := s.projectRepo.GetMember(ctx, projectID, userID); err == nil {
		return nil, conflictError(op, fmt.Errorf("user %s is already a member", userID))
	} else if !isNotFound(err) {
		return nil, persistenceError(op, err, nil)
	}

	added := &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: parsed}
	if err := s.projectRepo.AddMember(ctx, added); err != nil {
		return nil, persistenceError(op, err, nil)
	}

	s.activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   projectID,
		EntityType:  models.EntityProject,
		EntityID:    projectID,
		Action:      models.ActionMemberAdded,
		Description: fmt.Sprintf("Added %s as %s", userID, parsed),
	})
	return added, nil
}

// ListMembers returns the members of a project the caller belongs to
func (s *ProjectService) ListMembers(ctx context.Context, caller, projectID uuid.UUID) ([]models.ProjectMember, error) {
	if _, err := s.access.Membership(ctx, caller, projectID); err != nil {
		return nil, err
	}
	members, err := s.projectRepo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, persistenceError("list members", err, nil)
	}
	return members, nil
}
