package postgresql

import (
	"context"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

type DocumentShareRepository struct {
	db *database.DB
}

func NewDocumentShareRepository(db *database.DB) repositories.DocumentShareRepository {
	return &DocumentShareRepository{db: db}
}

func (r *DocumentShareRepository) Create(ctx context.Context, share *models.DocumentShare) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

func (r *DocumentShareRepository) Delete(ctx context.Context, documentID, sharedWith uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("document_id = ? AND shared_with = ?", documentID, sharedWith).
		Delete(&models.DocumentShare{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete share: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("share: %w", repositories.ErrNotFound)
	}
	return nil
}

func (r *DocumentShareRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentShare, error) {
	var shares []models.DocumentShare
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get shares by document: %w", err)
	}
	return shares, nil
}

func (r *DocumentShareRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.DocumentShare{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete shares: %w", result.Error)
	}
	return result.RowsAffected, nil
}
