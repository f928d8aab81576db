package postgresql

import (
	"context"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

type DocumentVersionRepository struct {
	db *database.DB
}

func NewDocumentVersionRepository(db *database.DB) repositories.DocumentVersionRepository {
	return &DocumentVersionRepository{db: db}
}

func (r *DocumentVersionRepository) Create(ctx context.Context, version *models.DocumentVersion) error {
	if err := r.db.WithContext(ctx).Create(version).Error; err != nil {
		return fmt.Errorf("failed to create document version: %w", err)
	}
	return nil
}

func (r *DocumentVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&version).Error; err != nil {
		return nil, notFound(err, "document version")
	}
	return &version, nil
}

func (r *DocumentVersionRepository) GetByNumber(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND version_number = ?", documentID, versionNumber).
		First(&version).Error
	if err != nil {
		return nil, notFound(err, "document version")
	}
	return &version, nil
}

func (r *DocumentVersionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	var versions []models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number ASC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list document versions: %w", err)
	}
	return versions, nil
}

func (r *DocumentVersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DocumentVersion{}).Error; err != nil {
		return fmt.Errorf("failed to delete document version: %w", err)
	}
	return nil
}

func (r *DocumentVersionRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.DocumentVersion{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete document versions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
