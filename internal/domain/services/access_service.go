package services

import (
	"context"
	"errors"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

// AccessService resolves which documents a caller may see.
// A document is visible to a project member who uploaded it, or when it is
// project-scoped, or when it has been shared with them.
type AccessService struct {
	projectRepo  repositories.ProjectRepository
	documentRepo repositories.DocumentRepository
	logger       *logger.Logger
}

func NewAccessService(projectRepo repositories.ProjectRepository, documentRepo repositories.DocumentRepository, log *logger.Logger) *AccessService {
	return &AccessService{projectRepo: projectRepo, documentRepo: documentRepo, logger: log}
}

// Membership returns the caller's membership row, or ErrNotProjectMember
func (s *AccessService) Membership(ctx context.Context, caller, projectID uuid.UUID) (*models.ProjectMember, error) {
	const op = "check membership"
	if caller == uuid.Nil {
		return nil, authError(op, ErrUnauthenticated)
	}
	if projectID == uuid.Nil {
		return nil, validationError(op, ErrMissingProject)
	}

	member, err := s.projectRepo.GetMember(ctx, projectID, caller)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, authError(op, ErrNotProjectMember)
		}
		return nil, persistenceError(op, err, nil)
	}
	return member, nil
}

// ListVisible returns the ids of documents the caller may see in a project.
// Non-members get an empty result rather than an error.
func (s *AccessService) ListVisible(ctx context.Context, caller, projectID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.Membership(ctx, caller, projectID); err != nil {
		if errors.Is(err, ErrNotProjectMember) {
			s.logger.Debug("Visibility requested by non-member", "project_id", projectID, "user_id", caller)
			return []uuid.UUID{}, nil
		}
		return nil, err
	}

	ids, err := s.documentRepo.VisibleIDs(ctx, projectID, caller)
	if err != nil {
		return nil, persistenceError("list visible documents", err, nil)
	}
	return ids, nil
}

// Document loads a document the caller may see. Invisible documents are
// reported as not found so their existence is not disclosed.
func (s *AccessService) Document(ctx context.Context, caller, documentID uuid.UUID) (*models.Document, error) {
	const op = "get document"
	if caller == uuid.Nil {
		return nil, authError(op, ErrUnauthenticated)
	}

	visible, err := s.documentRepo.IsVisible(ctx, documentID, caller)
	if err != nil {
		return nil, persistenceError(op, err, nil)
	}
	if !visible {
		return nil, newError(KindNotFound, op, ErrDocumentNotFound.Error(), ErrDocumentNotFound)
	}

	document, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, persistenceError(op, err, ErrDocumentNotFound)
	}
	return document, nil
}

// CanManage reports whether caller uploaded the document or administers its project
func (s *AccessService) CanManage(ctx context.Context, caller uuid.UUID, document *models.Document) (bool, error) {
	if document.UploadedBy == caller {
		return true, nil
	}
	member, err := s.Membership(ctx, caller, document.ProjectID)
	if err != nil {
		if errors.Is(err, ErrNotProjectMember) {
			return false, nil
		}
		return false, err
	}
	return member.Role.CanManage(), nil
}
