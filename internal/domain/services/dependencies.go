package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

// Options tune document handling
type Options struct {
	MaxFileSize  int64
	SignedURLTTL time.Duration
	// EnforceLocks rejects writes to a locked document from anyone but the
	// lock holder. When false the lock is advisory metadata only.
	EnforceLocks bool
}

func DefaultOptions() Options {
	return Options{
		MaxFileSize:  100 << 20,
		SignedURLTTL: 60 * time.Second,
	}
}

// Dependencies bundles the collaborators shared by the document services
type Dependencies struct {
	Projects  repositories.ProjectRepository
	Documents repositories.DocumentRepository
	Versions  repositories.DocumentVersionRepository
	Shares    repositories.DocumentShareRepository
	Approvals repositories.DocumentApprovalRepository
	Events    repositories.DocumentEventRepository

	Access   *AccessService
	Activity *ActivityService
	Feed     *ChangeFeed

	Blobs   BlobStore
	Fetcher BlobFetcher

	Logger  *logger.Logger
	Options Options
}

// FileUpload is an incoming file
type FileUpload struct {
	Name        string
	ContentType string
	Content     io.Reader
}

type uploadedFile struct {
	name string
	data []byte
	info models.FileInfo
}

// readUpload buffers the file and derives its type information
func readUpload(f *FileUpload, maxSize int64) (*uploadedFile, error) {
	if f == nil || f.Content == nil {
		return nil, ErrEmptyFile
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	head := data
	if len(head) > 3072 {
		head = head[:3072]
	}

	return &uploadedFile{
		name: f.Name,
		data: data,
		info: models.DetectFileInfo(f.Name, f.ContentType, head),
	}, nil
}

func (u *uploadedFile) reader() io.Reader {
	return bytes.NewReader(u.data)
}

func (u *uploadedFile) size() int64 {
	return int64(len(u.data))
}

// blobPath namespaces a head file by project with a random suffix
func blobPath(projectID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s.%s", projectID, uuid.NewString(), ext)
}

// versionBlobPath namespaces a revision file by project and document
func versionBlobPath(projectID, documentID uuid.UUID, version int, ext string) string {
	return fmt.Sprintf("%s/%s/v%d-%s.%s", projectID, documentID, version, uuid.NewString()[:8], ext)
}

// guardLock rejects writes from non-holders when locks are enforced
func guardLock(opts Options, op string, document *models.Document, caller uuid.UUID) error {
	if !opts.EnforceLocks || !document.IsLocked {
		return nil
	}
	if document.LockedBy != nil && *document.LockedBy == caller {
		return nil
	}
	return conflictError(op, ErrDocumentLocked)
}

func (d Dependencies) putBlob(path string, file *uploadedFile) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := d.Blobs.Put(ctx, path, file.reader(), file.size(), file.info.MIMEType); err != nil {
			return storageError("put blob", err)
		}
		return nil
	}
}

func (d Dependencies) removeBlob(path string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := d.Blobs.Remove(ctx, []string{path}); err != nil {
			return storageError("remove blob", err)
		}
		return nil
	}
}

// archiveCurrent snapshots the document's current file as a DocumentVersion
// unless a snapshot for its version already exists. The returned version is
// nil when nothing was inserted.
func (d Dependencies) archiveCurrent(ctx context.Context, document *models.Document, summary string) (*models.DocumentVersion, error) {
	if _, err := d.Versions.GetByNumber(ctx, document.ID, document.Version); err == nil {
		return nil, nil
	} else if !isNotFound(err) {
		return nil, persistenceError("archive version", err, nil)
	}

	snapshot := &models.DocumentVersion{
		DocumentID:    document.ID,
		VersionNumber: document.Version,
		FilePath:      document.FilePath,
		FileType:      document.FileType,
		FileSize:      document.FileSize,
		FileExtension: document.FileExtension,
		UploadedBy:    document.UploadedBy,
		ChangeSummary: summary,
	}
	if err := d.Versions.Create(ctx, snapshot); err != nil {
		return nil, persistenceError("archive version", err, nil)
	}
	return snapshot, nil
}

func (d Dependencies) refetch(ctx context.Context, op string, id uuid.UUID) (*models.Document, error) {
	document, err := d.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, persistenceError(op, err, ErrDocumentNotFound)
	}
	return document, nil
}
