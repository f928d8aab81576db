package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// DocumentService owns document records: upload, listing, field updates,
// shares, download and the delete cascade.
type DocumentService struct {
	Dependencies
	versions *VersionService
}

func NewDocumentService(deps Dependencies, versions *VersionService) *DocumentService {
	return &DocumentService{Dependencies: deps, versions: versions}
}

// UploadParams describes an upload. Enum fields are raw strings validated here.
type UploadParams struct {
	Caller         uuid.UUID
	ProjectID      uuid.UUID
	File           *FileUpload
	Title          string
	DocumentNumber string
	Category       string
	Status         string
	Visibility     string
	Tags           []string
	AssignedTo     *uuid.UUID
	ChangeSummary  string
}

// metadata is validated upload metadata. Nil fields were not supplied.
type metadata struct {
	title      string
	category   *models.Category
	status     *models.DocumentStatus
	visibility *models.VisibilityScope
	tags       []string
	assignedTo *uuid.UUID
}

func parseMetadata(params UploadParams) (*metadata, error) {
	meta := &metadata{
		title:      strings.TrimSpace(params.Title),
		tags:       normalizeTags(params.Tags),
		assignedTo: params.AssignedTo,
	}

	if params.Category != "" {
		c, err := models.ParseCategory(params.Category)
		if err != nil {
			return nil, err
		}
		meta.category = &c
	}
	if params.Status != "" {
		st, err := models.ParseDocumentStatus(params.Status)
		if err != nil {
			return nil, err
		}
		meta.status = &st
	}
	if params.Visibility != "" {
		v, err := models.ParseVisibilityScope(params.Visibility)
		if err != nil {
			return nil, err
		}
		meta.visibility = &v
	}
	return meta, nil
}

// UploadDocument stores a new file. When the document number matches an
// existing head in the project, the upload supersedes that head instead.
func (s *DocumentService) UploadDocument(ctx context.Context, params UploadParams) (*models.Document, error) {
	const op = "upload document"

	// 1. Validate caller, project and file
	if params.Caller == uuid.Nil {
		return nil, authError(op, ErrUnauthenticated)
	}
	if params.ProjectID == uuid.Nil {
		return nil, validationError(op, ErrMissingProject)
	}
	file, err := readUpload(params.File, s.Options.MaxFileSize)
	if err != nil {
		return nil, validationError(op, err)
	}
	meta, err := parseMetadata(params)
	if err != nil {
		return nil, validationError(op, err)
	}

	// 2. Caller must belong to the project
	if _, err := s.Access.Membership(ctx, params.Caller, params.ProjectID); err != nil {
		return nil, err
	}
	if meta.assignedTo != nil {
		if err := s.requireMember(ctx, op, params.ProjectID, *meta.assignedTo); err != nil {
			return nil, err
		}
	}

	// 3. An existing head with the same number is superseded
	number := strings.TrimSpace(params.DocumentNumber)
	if number != "" {
		head, err := s.Documents.FindHead(ctx, params.ProjectID, number)
		switch {
		case err == nil:
			visible, err := s.Documents.IsVisible(ctx, head.ID, params.Caller)
			if err != nil {
				return nil, persistenceError(op, err, nil)
			}
			if !visible {
				return nil, conflictError(op, ErrNumberInUse)
			}
			if err := guardLock(s.Options, op, head, params.Caller); err != nil {
				return nil, err
			}
			return s.versions.supersede(ctx, params.Caller, head, file, params.ChangeSummary, meta)
		case !isNotFound(err):
			return nil, persistenceError(op, err, nil)
		}
	}

	// 4. Store the blob, then the row
	document := &models.Document{
		ID:             uuid.New(),
		ProjectID:      params.ProjectID,
		Name:           displayName(file.name, file.info.Extension),
		Title:          meta.title,
		FileType:       file.info.MIMEType,
		FileSize:       file.size(),
		FileExtension:  file.info.Extension,
		FileCategory:   file.info.Category,
		Category:       models.CategoryGeneral,
		Tags:           meta.tags,
		UploadedBy:     params.Caller,
		Visibility:     models.VisibilityProject,
		Status:         models.StatusForInformation,
		Version:        1,
		DocumentNumber: number,
		AssignedTo:     meta.assignedTo,
	}
	document.FilePath = blobPath(params.ProjectID, file.info.Extension)
	if document.Title == "" {
		document.Title = generateTitle(document.Name)
	}
	if meta.category != nil {
		document.Category = *meta.category
	}
	if meta.status != nil {
		document.Status = *meta.status
	}
	if meta.visibility != nil {
		document.Visibility = *meta.visibility
	}

	run := newSaga(op, s.Logger).
		step("put blob", s.putBlob(document.FilePath, file), s.removeBlob(document.FilePath)).
		step("insert document", func(ctx context.Context) error {
			if err := s.Documents.Create(ctx, document); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, nil)
	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	// 5. Record and announce
	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     params.Caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionCreated,
		Description: fmt.Sprintf("Uploaded %s", document.Name),
		Metadata: map[string]interface{}{
			"file_size":       document.FileSize,
			"file_type":       document.FileType,
			"document_number": document.DocumentNumber,
		},
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	s.Logger.Info("Document uploaded",
		"document_id", document.ID,
		"project_id", document.ProjectID,
		"size", document.FileSize,
	)
	return document, nil
}

// ListDocuments returns the documents visible to caller. Non-members get an empty list.
func (s *DocumentService) ListDocuments(ctx context.Context, caller, projectID uuid.UUID, filters repositories.DocumentFilters) ([]models.Document, error) {
	const op = "list documents"

	if _, err := s.Access.Membership(ctx, caller, projectID); err != nil {
		if errors.Is(err, ErrNotProjectMember) {
			return []models.Document{}, nil
		}
		return nil, err
	}

	unfiltered := filters == (repositories.DocumentFilters{})
	var generation string
	if unfiltered {
		if cached, ok := s.Feed.lists.get(ctx, projectID, caller); ok {
			return cached, nil
		}
		generation = s.Feed.lists.generation(ctx, projectID)
	}

	documents, err := s.Documents.ListVisible(ctx, projectID, caller, filters)
	if err != nil {
		return nil, persistenceError(op, err, nil)
	}
	if unfiltered {
		s.Feed.lists.put(ctx, projectID, caller, generation, documents)
	}
	return documents, nil
}

// GetDocument returns a document visible to caller
func (s *DocumentService) GetDocument(ctx context.Context, caller, documentID uuid.UUID) (*models.Document, error) {
	return s.Access.Document(ctx, caller, documentID)
}

// UpdateStatus sets the construction-readiness status
func (s *DocumentService) UpdateStatus(ctx context.Context, caller, documentID uuid.UUID, status string) (*models.Document, error) {
	const op = "update status"

	parsed, err := models.ParseDocumentStatus(status)
	if err != nil || strings.TrimSpace(status) == "" {
		return nil, validationError(op, fmt.Errorf("invalid document status %q", status))
	}
	return s.updateField(ctx, op, caller, documentID, "status", parsed, models.ActionStatusChange,
		fmt.Sprintf("Status changed to %s", parsed))
}

// UpdateCategory sets the document category
func (s *DocumentService) UpdateCategory(ctx context.Context, caller, documentID uuid.UUID, category string) (*models.Document, error) {
	const op = "update category"

	parsed, err := models.ParseCategory(category)
	if err != nil || strings.TrimSpace(category) == "" {
		return nil, validationError(op, fmt.Errorf("invalid category %q", category))
	}
	return s.updateField(ctx, op, caller, documentID, "category", parsed, models.ActionUpdated,
		fmt.Sprintf("Category changed to %s", parsed))
}

// UpdateAssignment assigns the document to a project member, or clears the assignment when assignee is nil
func (s *DocumentService) UpdateAssignment(ctx context.Context, caller, documentID uuid.UUID, assignee *uuid.UUID) (*models.Document, error) {
	const op = "update assignment"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}

	var value interface{}
	description := "Assignment cleared"
	if assignee != nil {
		if err := s.requireMember(ctx, op, document.ProjectID, *assignee); err != nil {
			return nil, err
		}
		value = *assignee
		description = fmt.Sprintf("Assigned to %s", *assignee)
	}
	return s.updateLoaded(ctx, op, caller, document, "assigned_to", value, models.ActionUpdated, description)
}

func (s *DocumentService) updateField(ctx context.Context, op string, caller, documentID uuid.UUID, column string, value interface{}, action models.Action, description string) (*models.Document, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	return s.updateLoaded(ctx, op, caller, document, column, value, action, description)
}

func (s *DocumentService) updateLoaded(ctx context.Context, op string, caller uuid.UUID, document *models.Document, column string, value interface{}, action models.Action, description string) (*models.Document, error) {
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}

	if err := s.Documents.UpdateFields(ctx, document.ID, map[string]interface{}{column: value}); err != nil {
		s.Logger.Error("Failed to update document", "op", op, "document_id", document.ID, "error", err)
		return nil, persistenceError(op, err, ErrDocumentNotFound)
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      action,
		Description: description,
		Metadata:    map[string]interface{}{column: fmt.Sprint(value)},
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	return s.refetch(ctx, op, document.ID)
}

// DeleteReport describes a completed delete cascade
type DeleteReport struct {
	DocumentID  uuid.UUID    `json:"document_id"`
	Steps       []StepRecord `json:"steps"`
	FailedSteps []string     `json:"failed_steps,omitempty"`
}

// DeleteDocument removes a document with its versions, shares, events,
// approvals and blobs. Sub-step failures are logged and the cascade continues;
// the document row is removed last. Only a lineage head can be deleted, and
// the document it superseded becomes the head again.
func (s *DocumentService) DeleteDocument(ctx context.Context, caller, documentID uuid.UUID) (*DeleteReport, error) {
	const op = "delete document"

	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	canManage, err := s.Access.CanManage(ctx, caller, document)
	if err != nil {
		return nil, err
	}
	if !canManage {
		return nil, authError(op, ErrForbidden)
	}
	if err := guardLock(s.Options, op, document, caller); err != nil {
		return nil, err
	}
	if document.IsSuperseded {
		return nil, conflictError(op, ErrNotHead)
	}

	predecessor, err := s.Documents.FindPredecessor(ctx, document.ID)
	if err != nil {
		if !isNotFound(err) {
			return nil, persistenceError(op, err, nil)
		}
		predecessor = nil
	}

	versions, err := s.Versions.ListByDocument(ctx, document.ID)
	if err != nil {
		s.Logger.Warn("Failed to list versions for delete", "document_id", document.ID, "error", err)
	}

	run := newSaga(op, s.Logger)

	seen := map[string]bool{document.FilePath: true}
	for _, v := range versions {
		if seen[v.FilePath] {
			continue
		}
		seen[v.FilePath] = true
		run.bestEffort(fmt.Sprintf("remove version %d blob", v.VersionNumber), s.removeBlob(v.FilePath))
	}
	run.bestEffort("remove head blob", s.removeBlob(document.FilePath)).
		bestEffort("delete versions", func(ctx context.Context) error {
			_, err := s.Versions.DeleteByDocument(ctx, document.ID)
			return err
		}).
		bestEffort("delete shares", func(ctx context.Context) error {
			_, err := s.Shares.DeleteByDocument(ctx, document.ID)
			return err
		}).
		bestEffort("delete events", func(ctx context.Context) error {
			_, err := s.Events.DeleteByDocument(ctx, document.ID)
			return err
		}).
		bestEffort("delete approvals", func(ctx context.Context) error {
			_, err := s.Approvals.DeleteByDocument(ctx, document.ID)
			return err
		}).
		step("delete document", func(ctx context.Context) error {
			if err := s.Documents.Delete(ctx, document.ID); err != nil {
				return persistenceError(op, err, ErrDocumentNotFound)
			}
			return nil
		}, nil)
	// the head index allows one head per number, so the predecessor is
	// restored only once the deleted row is gone
	if predecessor != nil {
		run.step("restore predecessor", func(ctx context.Context) error {
			if err := s.Documents.ClearSuperseded(ctx, predecessor.ID); err != nil {
				return persistenceError(op, err, nil)
			}
			return nil
		}, nil)
	}

	if err := run.execute(ctx); err != nil {
		return nil, err
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionDeleted,
		Description: fmt.Sprintf("Deleted %s", document.Name),
		Metadata:    map[string]interface{}{"failed_steps": run.Failed()},
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)

	return &DeleteReport{
		DocumentID:  document.ID,
		Steps:       run.Journal(),
		FailedSteps: run.Failed(),
	}, nil
}

// Download is a fetched file ready to send
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DownloadDocument fetches the current file through a short-lived signed URL
func (s *DocumentService) DownloadDocument(ctx context.Context, caller, documentID uuid.UUID) (*Download, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, caller, document, document.FilePath, document.DownloadName(), document.FileType, nil)
}

// DownloadVersion fetches the file of a historical version
func (s *DocumentService) DownloadVersion(ctx context.Context, caller, documentID, versionID uuid.UUID) (*Download, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	version, err := s.versions.versionOf(ctx, "download version", document, versionID)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(document.Name, "."+document.FileExtension)
	name := models.WithExtension(fmt.Sprintf("%s_v%d", base, version.VersionNumber), version.FileExtension)
	return s.download(ctx, caller, document, version.FilePath, name, version.FileType, &version.VersionNumber)
}

func (s *DocumentService) download(ctx context.Context, caller uuid.UUID, document *models.Document, path, fileName, contentType string, versionNumber *int) (*Download, error) {
	const op = "download document"

	url, err := s.Blobs.SignedURL(ctx, path, s.Options.SignedURLTTL)
	if err != nil {
		s.Logger.Error("Failed to sign download URL", "document_id", document.ID, "error", err)
		return nil, storageError(op, err)
	}

	data, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		s.Logger.Error("Failed to fetch file", "document_id", document.ID, "error", err)
		return nil, storageError(op, err)
	}

	meta := map[string]interface{}{"file_name": fileName}
	if versionNumber != nil {
		meta["version_number"] = *versionNumber
	}
	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionDownloaded,
		Description: fmt.Sprintf("Downloaded %s", fileName),
		Metadata:    meta,
	})

	return &Download{FileName: fileName, ContentType: contentType, Data: data}, nil
}

// ShareDocument grants a project member visibility into a private document
func (s *DocumentService) ShareDocument(ctx context.Context, caller, documentID, sharedWith uuid.UUID) (*models.DocumentShare, error) {
	const op = "share document"

	document, err := s.manageable(ctx, op, caller, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, op, document.ProjectID, sharedWith); err != nil {
		return nil, err
	}

	share := &models.DocumentShare{DocumentID: document.ID, SharedWith: sharedWith, SharedBy: caller}
	if err := s.Shares.Create(ctx, share); err != nil {
		return nil, persistenceError(op, err, nil)
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionShared,
		Description: fmt.Sprintf("Shared with %s", sharedWith),
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)
	return share, nil
}

// UnshareDocument revokes a share
func (s *DocumentService) UnshareDocument(ctx context.Context, caller, documentID, sharedWith uuid.UUID) error {
	const op = "unshare document"

	document, err := s.manageable(ctx, op, caller, documentID)
	if err != nil {
		return err
	}
	if err := s.Shares.Delete(ctx, document.ID, sharedWith); err != nil {
		return persistenceError(op, err, ErrShareNotFound)
	}

	s.Activity.Append(ctx, ActivityEntry{
		ActorID:     caller,
		ProjectID:   document.ProjectID,
		EntityType:  models.EntityDocument,
		EntityID:    document.ID,
		Action:      models.ActionUnshared,
		Description: fmt.Sprintf("Unshared from %s", sharedWith),
	})
	s.Feed.Changed(ctx, RelationDocuments, document.ProjectID, document.ID)
	return nil
}

// ListShares returns the shares of a document the caller can see
func (s *DocumentService) ListShares(ctx context.Context, caller, documentID uuid.UUID) ([]models.DocumentShare, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	shares, err := s.Shares.ListByDocument(ctx, document.ID)
	if err != nil {
		return nil, persistenceError("list shares", err, nil)
	}
	return shares, nil
}

func (s *DocumentService) manageable(ctx context.Context, op string, caller, documentID uuid.UUID) (*models.Document, error) {
	document, err := s.Access.Document(ctx, caller, documentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Access.CanManage(ctx, caller, document)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, authError(op, ErrForbidden)
	}
	return document, nil
}

func (s *DocumentService) requireMember(ctx context.Context, op string, projectID, userID uuid.UUID) error {
	if _, err := s.Projects.GetMember(ctx, projectID, userID); err != nil {
		if isNotFound(err) {
			return validationError(op, fmt.Errorf("user %s is not a member of the project", userID))
		}
		return persistenceError(op, err, nil)
	}
	return nil
}

func displayName(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled"
	}
	return models.WithExtension(name, ext)
}

func generateTitle(name string) string {
	title := strings.TrimSuffix(name, "."+models.Extension(name))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	return strings.TrimSpace(title)
}

func normalizeTags(tags []string) models.StringList {
	seen := make(map[string]bool, len(tags))
	out := make(models.StringList, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
