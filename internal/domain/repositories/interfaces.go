package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row in the expected state
	ErrConflict = errors.New("record changed concurrently")
)

// DocumentFilters narrows a visible-document listing
type DocumentFilters struct {
	Status         *models.DocumentStatus
	Category       *models.Category
	DocumentNumber string
	HeadsOnly      bool
}

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	AddMember(ctx context.Context, member *models.ProjectMember) error
	GetMember(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectMember, error)
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListVisible(ctx context.Context, projectID, userID uuid.UUID, filters DocumentFilters) ([]models.Document, error)
	VisibleIDs(ctx context.Context, projectID, userID uuid.UUID) ([]uuid.UUID, error)
	IsVisible(ctx context.Context, documentID, userID uuid.UUID) (bool, error)
	FindHead(ctx context.Context, projectID uuid.UUID, documentNumber string) (*models.Document, error)
	ListByNumber(ctx context.Context, projectID uuid.UUID, documentNumber string) ([]models.Document, error)
	// FindPredecessor returns the document superseded by id
	FindPredecessor(ctx context.Context, id uuid.UUID) (*models.Document, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID) error
	ClearSuperseded(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DocumentVersionRepository interface {
	Create(ctx context.Context, version *models.DocumentVersion) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error)
	GetByNumber(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type DocumentShareRepository interface {
	Create(ctx context.Context, share *models.DocumentShare) error
	Delete(ctx context.Context, documentID, sharedWith uuid.UUID) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentShare, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type DocumentApprovalRepository interface {
	Create(ctx context.Context, approval *models.DocumentApproval) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentApproval, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentApproval, error)
	Resolve(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, comments string, at time.Time) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type DocumentEventRepository interface {
	Create(ctx context.Context, event *models.DocumentEvent) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentEvent, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]models.ActivityLog, error)
}
