package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *database.DB
}

func NewDocumentRepository(db *database.DB) repositories.DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if err := r.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var document models.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&document).Error; err != nil {
		return nil, notFound(err, "document")
	}
	return &document, nil
}

// visibleTo scopes a query to documents the user may see: the user must be a
// member of the document's project, and either uploaded it, or the document is
// project-scoped, or it has been shared with the user.
func (r *DocumentRepository) visibleTo(ctx context.Context, userID uuid.UUID) *gorm.DB {
	memberships := r.db.Model(&models.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", userID)
	shares := r.db.Model(&models.DocumentShare{}).
		Select("document_id").
		Where("shared_with = ?", userID)

	return r.db.WithContext(ctx).Model(&models.Document{}).
		Where("project_id IN (?)", memberships).
		Where(r.db.Where("uploaded_by = ?", userID).
			Or("visibility_scope = ?", models.VisibilityProject).
			Or("id IN (?)", shares))
}

func (r *DocumentRepository) ListVisible(ctx context.Context, projectID, userID uuid.UUID, filters repositories.DocumentFilters) ([]models.Document, error) {
	query := r.visibleTo(ctx, userID).Where("project_id = ?", projectID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.DocumentNumber != "" {
		query = query.Where("document_number = ?", filters.DocumentNumber)
	}
	if filters.HeadsOnly {
		query = query.Where("is_superseded = ?", false)
	}

	var documents []models.Document
	if err := query.Order("created_at DESC").Order("version DESC").Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to list visible documents: %w", err)
	}
	return documents, nil
}

func (r *DocumentRepository) VisibleIDs(ctx context.Context, projectID, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.visibleTo(ctx, userID).
		Where("project_id = ?", projectID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visible document ids: %w", err)
	}
	return ids, nil
}

func (r *DocumentRepository) IsVisible(ctx context.Context, documentID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.visibleTo(ctx, userID).Where("id = ?", documentID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check document visibility: %w", err)
	}
	return count > 0, nil
}

func (r *DocumentRepository) FindHead(ctx context.Context, projectID uuid.UUID, documentNumber string) (*models.Document, error) {
	var document models.Document
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND document_number = ? AND is_superseded = ?", projectID, documentNumber, false).
		First(&document).Error
	if err != nil {
		return nil, notFound(err, "head document")
	}
	return &document, nil
}

func (r *DocumentRepository) ListByNumber(ctx context.Context, projectID uuid.UUID, documentNumber string) ([]models.Document, error) {
	var documents []models.Document
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND document_number = ?", projectID, documentNumber).
		Order("version ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by number: %w", err)
	}
	return documents, nil
}

func (r *DocumentRepository) FindPredecessor(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var document models.Document
	if err := r.db.WithContext(ctx).Where("superseded_by = ?", id).First(&document).Error; err != nil {
		return nil, notFound(err, "predecessor document")
	}
	return &document, nil
}

func (r *DocumentRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document: %w", repositories.ErrNotFound)
	}
	return nil
}

// MarkSuperseded flags the document as replaced, but only while it is still a head.
func (r *DocumentRepository) MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND is_superseded = ?", id, false).
		Updates(map[string]interface{}{
			"is_superseded": true,
			"superseded_by": supersededBy,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark document superseded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("document already superseded: %w", repositories.ErrConflict)
	}
	return nil
}

func (r *DocumentRepository) ClearSuperseded(ctx context.Context, id uuid.UUID) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"is_superseded": false,
		"superseded_by": nil,
	})
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document: %w", repositories.ErrNotFound)
	}
	return nil
}
