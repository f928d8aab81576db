package postgresql

import (
	"context"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

type DocumentEventRepository struct {
	db *database.DB
}

func NewDocumentEventRepository(db *database.DB) repositories.DocumentEventRepository {
	return &DocumentEventRepository{db: db}
}

func (r *DocumentEventRepository) Create(ctx context.Context, event *models.DocumentEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create document event: %w", err)
	}
	return nil
}

func (r *DocumentEventRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentEvent, error) {
	var events []models.DocumentEvent
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("event_date ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list document events: %w", err)
	}
	return events, nil
}

func (r *DocumentEventRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.DocumentEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete document events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
