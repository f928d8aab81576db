package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// LockService flips the exclusive-edit flag on documents.
// Without Options.EnforceLocks any member who can see the document may toggle it.
type LockService struct {
	Dependencies
	now func() time.Time
}

func NewLockService(deps Dependencies) *LockService {
	return &LockService{
		Dependencies: deps,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ToggleLock locks an unlocked document for caller, or unlocks a locked one.
// is_locked, locked_by and locked_at are always written together.
func (s *LockService) ToggleLock(ctx context.Context, caller, documentID uuid.UUID) (*models.Document, error) {
	const op = "toggle lock"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	action := models.ActionLocked
	if document.IsLocked {
		action = models.ActionUnlocked
		fields = map[string]interface{}{
			"is_locked": false,
			"locked_by": nil,
			"locked_at": nil,
		}
	} else {
		fields = map[string]interface{}{
			"is_locked": true,
			"locked_by": caller,
			"locked_at": s.now(),
		}
	}

	if err := s.Documents.UpdateFields(ctx, document.ID, fields); err != nil {
		s.Logger.Error("Failed to toggle lock", "document_id", document.ID, "error", err)
		return nil, persistenceError(op, err, ErrDocumentNotFound)
	}

	if document.IsLocked && document.LockedBy != nil && *document.LockedBy != caller {
		s.Logger.Warn("Lock released by non-holder",
			"document_id", document.ID,
			"holder", *document.LockedBy,
			"caller", caller,
		)
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      action,
		Description: fmt.Sprintf("%s %s", lockVerb(action), document.Name),
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	return s.refetch(ctx, op, document.ID)
}

func lockVerb(action models.Action) string {
	if action == models.ActionLocked {
		return "Locked"
	}
	return "Unlocked"
}
