package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// VersionService grows a document's history: in-place revisions, reverts and
// supersession by a new document row.
type VersionService struct {
	Dependencies
}

func NewVersionService(deps Dependencies) *VersionService {
	return &VersionService{Dependencies: deps}
}

// CreateNewVersion uploads a revision of a head document and bumps its version in place.
// The state being replaced is archived first when it has no snapshot yet.
func (s *VersionService) CreateNewVersion(ctx context.Context, caller, documentID uuid.UUID, upload *FileUpload, changeSummary string) (*models.DocumentVersion, error) {
	const op = "create version"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	if document.IsSuperseded {
		return nil, conflictError(op, ErrAlreadySuperseded)
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}
	file, err := readUpload(upload, s.Options.MaxFileSize)
	if err != nil {
		return nil, validationError(op, err)
	}

	next := document.Version + 1
	version := &models.DocumentVersion{
		ID:            uuid.New(),
		DocumentID:    document.ID,
		VersionNumber: next,
		FilePath:      versionBlobPath(document.ProjectID, document.ID, next, file.info.Extension),
		FileType:      file.info.MIMEType,
		FileSize:      file.size(),
		FileExtension: file.info.Extension,
		UploadedBy:    caller,
		ChangeSummary: changeSummary,
	}

	var archived *models.DocumentVersion
	run := newSaga(op, s.Logger).
		step("put blob", s.putBlob(version.FilePath, file), s.removeBlob(version.FilePath)).
		step("archive previous", func(ctx context.Context) error {
			var err error
			archived, err = s.archiveCurrent(ctx, document, fmt.Sprintf("Archived before version %d", next))
			return err
		}, func(ctx context.Context) error {
			if archived == nil {
				return nil
			}
			return s.Versions.Delete(ctx, archived.ID)
		}).
		step("insert version", func(ctx context.Context) error {
			if err := s.Versions.Create(ctx, version); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, func(ctx context.Context) error {
			return s.Versions.Delete(ctx, version.ID)
		}).
		step("update document", func(ctx context.Context) error {
			err := s.Documents.UpdateFields(ctx, document.ID, map[string]interface{}{
				"version":               next,
				"file_path":             version.FilePath,
				"file_type":             version.FileType,
				"file_size":             version.FileSize,
				"file_extension":        version.FileExtension,
				"file_category":         file.info.Category,
				"restored_from_version": nil,
			})
			if err != nil {
				return persistenceError(op, err, ErrDocumentNotFound)
			}
			return nil
		}, nil)
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityVersion,
		EntityID:    version.ID,
		Action:      models.ActionVersioned,
		Description: fmt.Sprintf("Created version %d of %s", next, document.Name),
		Metadata: map[string]interface{}{
			"document_id":    document.ID,
			"version_number": next,
			"change_summary": changeSummary,
		},
	})
	s.Feed.Changed(ctx, RelationDocumentVersions, document.ProjectID, version.ID)
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	s.Logger.Info("Document version created", "document_id", document.ID, "version", next)
	return version, nil
}

// RevertToVersion restores the file of a stored version onto the document.
// The version counter is left as is and no snapshot of the revert is written.
func (s *VersionService) RevertToVersion(ctx context.Context, caller, documentID, versionID uuid.UUID) (*models.Document, error) {
	const op = "revert version"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	if document.IsSuperseded {
		return nil, conflictError(op, ErrAlreadySuperseded)
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}
	version, err := s.versionOf(ctx, op, document, versionID)
	if err != nil {
		return nil, err
	}

	info := models.DetectFileInfo(version.FilePath, version.FileType, nil)
	err = s.Documents.UpdateFields(ctx, document.ID, map[string]interface{}{
		"file_path":             version.FilePath,
		"file_type":             version.FileType,
		"file_size":             version.FileSize,
		"file_extension":        version.FileExtension,
		"file_category":         info.Category,
		"restored_from_version": version.VersionNumber,
	})
	if err != nil {
		s.Logger.Error("Failed to revert document", "document_id", document.ID, "error", err)
		return nil, persistenceError(op, err, ErrDocumentNotFound)
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionReverted,
		Description: fmt.Sprintf("Reverted %s to version %d", document.Name, version.VersionNumber),
		Metadata:    map[string]interface{}{"version_number": version.VersionNumber},
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	return s.refetch(ctx, op, document.ID)
}

// Supersede replaces a head document with a new document row one version ahead
func (s *VersionService) Supersede(ctx context.Context, caller, documentID uuid.UUID, upload *FileUpload, changeSummary string) (*models.Document, error) {
	const op = "supersede document"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}
	file, err := readUpload(upload, s.Options.MaxFileSize)
	if err != nil {
		return nil, validationError(op, err)
	}
	return s.supersede(ctx, caller, document, file, changeSummary, &metadata{})
}

func (s *VersionService) supersede(ctx context.Context, caller uuid.UUID, old *models.Document, file *uploadedFile, changeSummary string, meta *metadata) (*models.Document, error) {
	const op = "supersede document"

	if old.IsSuperseded {
		return nil, conflictError(op, ErrAlreadySuperseded)
	}

	replacement := &models.Document{
		ID:             uuid.New(),
		ProjectID:      old.ProjectID,
		Name:           displayName(file.name, file.info.Extension),
		Title:          old.Title,
		FileType:       file.info.MIMEType,
		FileSize:       file.size(),
		FileExtension:  file.info.Extension,
		FileCategory:   file.info.Category,
		Category:       old.Category,
		Tags:           old.Tags,
		UploadedBy:     caller,
		Visibility:     old.Visibility,
		Status:         old.Status,
		Version:        old.Version + 1,
		DocumentNumber: old.DocumentNumber,
		AssignedTo:     old.AssignedTo,
	}
	replacement.FilePath = blobPath(old.ProjectID, file.info.Extension)
	if meta.title != "" {
		replacement.Title = meta.title
	}
	if meta.category != nil {
		replacement.Category = *meta.category
	}
	if len(meta.tags) > 0 {
		replacement.Tags = meta.tags
	}
	if meta.visibility != nil {
		replacement.Visibility = *meta.visibility
	}
	if meta.status != nil {
		replacement.Status = *meta.status
	}
	if meta.assignedTo != nil {
		replacement.AssignedTo = meta.assignedTo
	}

	var archived *models.DocumentVersion
	run := newSaga(op, s.Logger).
		step("archive current", func(ctx context.Context) error {
			var err error
			archived, err = s.archiveCurrent(ctx, old, fmt.Sprintf("Superseded by version %d", replacement.Version))
			return err
		}, func(ctx context.Context) error {
			if archived == nil {
				return nil
			}
			return s.Versions.Delete(ctx, archived.ID)
		}).
		step("put blob", s.putBlob(replacement.FilePath, file), s.removeBlob(replacement.FilePath)).
		step("mark superseded", func(ctx context.Context) error {
			if err := s.Documents.MarkSuperseded(ctx, old.ID, replacement.ID); err != nil {
				if errors.Is(err, repositories.ErrConflict) {
					return conflictError(op, ErrAlreadySuperseded)
				}
				return persistenceError(op, err, ErrDocumentNotFound)
			}
			return nil
		}, func(ctx context.Context) error {
			return s.Documents.ClearSuperseded(ctx, old.ID)
		}).
		step("insert document", func(ctx context.Context) error {
			if err := s.Documents.Create(ctx, replacement); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, func(ctx context.Context) error {
			return s.Documents.Delete(ctx, replacement.ID)
		}).
		step("carry shares", func(ctx context.Context) error {
			return s.carryShares(ctx, op, caller, old, replacement)
		}, func(ctx context.Context) error {
			_, err := s.Shares.DeleteByDocument(ctx, replacement.ID)
			return err
		})
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   old.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    old.ID,
		Action:      models.ActionSuperseded,
		Description: fmt.Sprintf("Superseded %s by version %d", old.Name, replacement.Version),
		Metadata: map[string]interface{}{
			"superseded_by":   replacement.ID,
			"document_number": old.DocumentNumber,
		},
	})
	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   replacement.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    replacement.ID,
		Action:      models.ActionCreated,
		Description: fmt.Sprintf("Uploaded %s as version %d", replacement.Name, replacement.Version),
		Metadata: map[string]interface{}{
			"supersedes":      old.ID,
			"document_number": replacement.DocumentNumber,
			"change_summary":  changeSummary,
		},
	})
	if archived != nil {
		s.Feed.Changed(ctx, RelationDocumentVersions, old.ProjectID, archived.ID)
	}
	s.Feed.Changed(ctx, RelationDocuments, old.ProjectID, replacement.ID)

	s.Logger.Info("Document superseded",
		"old_document_id", old.ID,
		"new_document_id", replacement.ID,
		"version", replacement.Version,
	)
	return replacement, nil
}

// carryShares gives the replacement the audience of the document it replaces.
// A private replacement uploaded by someone else is also shared with the
// previous uploader.
func (s *VersionService) carryShares(ctx context.Context, op string, caller uuid.UUID, old, replacement *models.Document) error {
	shares, err := s.Shares.ListByDocument(ctx, old.ID)
	if err != nil {
		return persistenceError(op, err, nil)
	}

	granted := map[uuid.UUID]bool{caller: true}
	carried := make([]models.DocumentShare, 0, len(shares)+1)
	for _, share := range shares {
		if granted[share.SharedWith] {
			continue
		}
		granted[share.SharedWith] = true
		carried = append(carried, models.DocumentShare{
			DocumentID: replacement.ID,
			SharedWith: share.SharedWith,
			SharedBy:   share.SharedBy,
		})
	}
	if replacement.Visibility == models.VisibilityPrivate && !granted[old.UploadedBy] {
		carried = append(carried, models.DocumentShare{
			DocumentID: replacement.ID,
			SharedWith: old.UploadedBy,
			SharedBy:   caller,
		})
	}

	for i := range carried {
		if err := s.Shares.Create(ctx, &carried[i]); err != nil {
			return persistenceError(op, err, nil)
		}
	}
	return nil
}

// ListVersions returns the stored snapshots of a document, oldest first
func (s *VersionService) ListVersions(ctx context.Context, caller, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	versions, err := s.Versions.ListByDocument(ctx, document.ID)
	if err != nil {
		return nil, persistenceError("list versions", err, nil)
	}
	return versions, nil
}

// GetLineage returns the supersession chain for a document number. At least
// one document of the chain must be visible to the caller.
func (s *VersionService) GetLineage(ctx context.Context, caller, projectID uuid.UUID, documentNumber string) (*Lineage, error) {
	const op = "get lineage"

	if documentNumber == "" {
		return nil, validationError(op, errors.New("document number is required"))
	}
	if _, err := s.Access.Membership(ctx, caller, projectID); err != nil {
		return nil, err
	}

	documents, err := s.Documents.ListByNumber(ctx, projectID, documentNumber)
	if err != nil {
		return nil, persistenceError(op, err, nil)
	}
	visible, err := s.Access.ListVisible(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(visible))
	for _, id := range visible {
		seen[id] = true
	}
	anyVisible := false
	for _, d := range documents {
		if seen[d.ID] {
			anyVisible = true
			break
		}
	}
	if !anyVisible {
		return nil, newError(KindNotFound, op, ErrDocumentNotFound.Error(), ErrDocumentNotFound)
	}

	lineage := NewLineage(projectID, documentNumber, documents)
	if err := lineage.Validate(); err != nil {
		s.Logger.Warn("Inconsistent document lineage",
			"project_id", projectID,
			"document_number", documentNumber,
			"error", err,
		)
	}
	return lineage, nil
}

// versionOf loads a version and checks it belongs to the document
func (s *VersionService) versionOf(ctx context.Context, op string, document *models.Document, versionID uuid.UUID) (*models.DocumentVersion, error) {
	version, err := s.Versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, persistenceError(op, err, ErrVersionNotFound)
	}
	if version.DocumentID != document.ID {
		return nil, newError(KindNotFound, op, ErrVersionNotFound.Error(), ErrVersionNotFound)
	}
	return version, nil
}
