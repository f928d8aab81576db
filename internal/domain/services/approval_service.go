package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// ApprovalService drives approval requests and their effect on document status.
// pending -> approved | rejected; each approval resolves once.
type ApprovalService struct {
	Dependencies
	now func() time.Time
}

func NewApprovalService(deps Dependencies) *ApprovalService {
	return &ApprovalService{
		Dependencies: deps,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RequestApproval opens a pending approval and moves the document to For Information
func (s *ApprovalService) RequestApproval(ctx context.Context, caller, documentID, approverID uuid.UUID) (*models.DocumentApproval, error) {
	const op = "request approval"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	if approverID == uuid.Nil {
		return nil, validationError(op, fmt.Errorf("approver is required"))
	}
	if _, err := s.Projects.GetMember(ctx, document.ProjectID, approverID); err != nil {
		if isNotFound(err) {
			return nil, validationError(op, fmt.Errorf("approver %s is not a member of the project", approverID))
		}
		return nil, persistenceError(op, err, nil)
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}

	approval := &models.DocumentApproval{
		DocumentID:  document.ID,
		ApproverID:  approverID,
		RequestedBy: caller,
		Status:      models.ApprovalPending,
	}

	run := newSaga(op, s.Logger).
		step("insert approval", func(ctx context.Context) error {
			if err := s.Approvals.Create(ctx, approval); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, nil).
		step("update status", s.setStatus(op, document.ID, models.StatusForInformation), nil)
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityApproval,
		EntityID:    approval.ID,
		Action:      models.ActionApprovalReq,
		Description: fmt.Sprintf("Requested approval of %s", document.Name),
		Metadata: map[string]interface{}{
			"document_id": document.ID,
			"approver_id": approverID,
		},
	})
	s.Feed.Changed(ctx, RelationApprovals, document.ProjectID, approval.ID)
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	return approval, nil
}

// Approve resolves a pending approval. Approval sets the document to For
// Construction; rejection sets it to For Information.
func (s *ApprovalService) Approve(ctx context.Context, caller, approvalID, documentID uuid.UUID, approved bool, comments string) (*models.DocumentApproval, error) {
	const op = "resolve approval"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}

	approval, err := s.Approvals.GetByID(ctx, approvalID)
	if err != nil {
		return nil, persistenceError(op, err, ErrApprovalNotFound)
	}
	if approval.DocumentID != document.ID {
		return nil, validationError(op, ErrApprovalMismatch)
	}
	if approval.Status != models.ApprovalPending {
		return nil, conflictError(op, ErrApprovalResolved)
	}

	if approval.ApproverID != caller {
		member, err := s.Access.Membership(ctx, caller, document.ProjectID)
		if err != nil {
			return nil, err
		}
		if !member.Role.CanManage() {
			return nil, authError(op, ErrForbidden)
		}
	}

	status, docStatus := models.ApprovalRejected, models.StatusForInformation
	action := models.ActionRejected
	if approved {
		status, docStatus = models.ApprovalApproved, models.StatusForConstruction
		action = models.ActionApproved
	}

	run := newSaga(op, s.Logger).
		step("resolve approval", func(ctx context.Context) error {
			if err := s.Approvals.Resolve(ctx, approval.ID, status, comments, s.now()); err != nil {
				if isConflict(err) {
					return conflictError(op, ErrApprovalResolved)
				}
				return persistenceError(op, err, ErrApprovalNotFound)
			}
			return nil
		}, nil).
		step("update status", s.setStatus(op, document.ID, docStatus), nil)
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityApproval,
		EntityID:    approval.ID,
		Action:      action,
		Description: fmt.Sprintf("%s %s", approvalVerb(approved), document.Name),
		Metadata: map[string]interface{}{
			"document_id": document.ID,
			"comments":    comments,
		},
	})
	s.Feed.Changed(ctx, RelationApprovals, document.ProjectID, approval.ID)
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	resolved, err := s.Approvals.GetByID(ctx, approval.ID)
	if err != nil {
		return nil, persistenceError(op, err, ErrApprovalNotFound)
	}
	return resolved, nil
}

// ListApprovals returns a document's approvals, newest first
func (s *ApprovalService) ListApprovals(ctx context.Context, caller, documentID uuid.UUID) ([]models.DocumentApproval, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.Approvals.ListByDocument(ctx, document.ID)
	if err != nil {
		return nil, persistenceError("list approvals", err, nil)
	}
	return approvals, nil
}

func (s *ApprovalService) setStatus(op string, documentID uuid.UUID, status models.DocumentStatus) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := s.Documents.UpdateFields(ctx, documentID, map[string]interface{}{"status": status}); err != nil {
			return persistenceError(op, err, ErrDocumentNotFound)
		}
		return nil
	}
}

func approvalVerb(approved bool) string {
	if approved {
		return "Approved"
	}
	return "Rejected"
}
