package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

type DocumentApprovalRepository struct {
	db *database.DB
}

func NewDocumentApprovalRepository(db *database.DB) repositories.DocumentApprovalRepository {
	return &DocumentApprovalRepository{db: db}
}

func (r *DocumentApprovalRepository) Create(ctx context.Context, approval *models.DocumentApproval) error {
	if err := r.db.WithContext(ctx).Create(approval).Error; err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

func (r *DocumentApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentApproval, error) {
	var approval models.DocumentApproval
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&approval).Error; err != nil {
		return nil, notFound(err, "approval")
	}
	return &approval, nil
}

func (r *DocumentApprovalRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentApproval, error) {
	var approvals []models.DocumentApproval
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&approvals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return approvals, nil
}

// Resolve moves a pending approval to a terminal status. Approvals that are no
// longer pending are left untouched and reported as a conflict.
func (r *DocumentApprovalRepository) Resolve(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, comments string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.DocumentApproval{}).
		Where("id = ? AND status = ?", id, models.ApprovalPending).
		Updates(map[string]interface{}{
			"status":        status,
			"comments":      comments,
			"approved_date": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve approval: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("approval already resolved: %w", repositories.ErrConflict)
	}
	return nil
}

func (r *DocumentApprovalRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.DocumentApproval{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete approvals: %w", result.Error)
	}
	return result.RowsAffected, nil
}
