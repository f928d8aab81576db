package services

import (
	"context"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

// ActivityEntry is one append to the activity log
type ActivityEntry struct {
	ActorID     uuid.UUID
	ProjectID   uuid.UUID
	EntityType  models.EntityType
	EntityID    uuid.UUID
	Action      models.Action
	Description string
	Metadata    map[string]interface{}
}

// ActivityService is the append-only activity sink. Appends never fail the caller.
type ActivityService struct {
	activityRepo repositories.ActivityLogRepository
	logger       *logger.Logger
}

func NewActivityService(activityRepo repositories.ActivityLogRepository, log *logger.Logger) *ActivityService {
	return &ActivityService{activityRepo: activityRepo, logger: log}
}

// Append records an entry; failures are logged and dropped
func (s *ActivityService) Append(ctx context.Context, entry ActivityEntry) {
	record := &models.ActivityLog{
		ActorID:     entry.ActorID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		Description: entry.Description,
		Metadata:    models.JSONB(entry.Metadata),
	}
	if entry.ProjectID != uuid.Nil {
		projectID := entry.ProjectID
		record.ProjectID = &projectID
	}

	if err := s.activityRepo.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("Failed to append activity log",
			"action", entry.Action,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// ListForEntity returns the most recent entries for an entity
func (s *ActivityService) ListForEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	entries, err := s.activityRepo.ListByEntity(ctx, entityID, limit)
	if err != nil {
		return nil, persistenceError("list activity", err, nil)
	}
	return entries, nil
}
