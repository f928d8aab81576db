package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"gorm.io/gorm"
)

// Repositories holds all repository implementations
type Repositories struct {
	ProjectRepo  repositories.ProjectRepository
	DocumentRepo repositories.DocumentRepository
	VersionRepo  repositories.DocumentVersionRepository
	ShareRepo    repositories.DocumentShareRepository
	ApprovalRepo repositories.DocumentApprovalRepository
	EventRepo    repositories.DocumentEventRepository
	ActivityRepo repositories.ActivityLogRepository

	db *database.DB
}

// NewRepositories creates a new repositories container
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		ProjectRepo:  NewProjectRepository(db),
		DocumentRepo: NewDocumentRepository(db),
		VersionRepo:  NewDocumentVersionRepository(db),
		ShareRepo:    NewDocumentShareRepository(db),
		ApprovalRepo: NewDocumentApprovalRepository(db),
		EventRepo:    NewDocumentEventRepository(db),
		ActivityRepo: NewActivityLogRepository(db),
		db:           db,
	}
}

// HealthCheck verifies database connectivity
func (r *Repositories) HealthCheck(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// notFound converts gorm's not-found error into repositories.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
