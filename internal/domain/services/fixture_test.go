package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/internal/infrastructure/events"
	"github.com/archivus/sitedocs/internal/infrastructure/repositories/postgresql"
	"github.com/archivus/sitedocs/internal/infrastructure/repositories/postgresql/testutil"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryBlobs is an in-memory BlobStore that doubles as the fetcher for its
// own signed URLs
type memoryBlobs struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	putErr     error
	removeErr  error
	signErr    error
	removeLogs []string
	// failRemove makes removal of one path fail while others succeed
	failRemove string
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[string][]byte)}
}

func (m *memoryBlobs) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if _, exists := m.blobs[path]; exists {
		return fmt.Errorf("blob %s already exists", path)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[path] = data
	return nil
}

func (m *memoryBlobs) Remove(ctx context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, p := range paths {
		if p == m.failRemove {
			return fmt.Errorf("remove %s: %w", p, errInjected)
		}
	}
	for _, p := range paths {
		delete(m.blobs, p)
		m.removeLogs = append(m.removeLogs, p)
	}
	return nil
}

func (m *memoryBlobs) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signErr != nil {
		return "", m.signErr
	}
	if _, ok := m.blobs[path]; !ok {
		return "", fmt.Errorf("blob %s not found", path)
	}
	return "mem://" + path, nil
}

func (m *memoryBlobs) Fetch(ctx context.Context, signedURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[strings.TrimPrefix(signedURL, "mem://")]
	if !ok {
		return nil, fmt.Errorf("no blob behind %s", signedURL)
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryBlobs) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok
}

func (m *memoryBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// flakyDocuments fails selected writes of the wrapped repository
type flakyDocuments struct {
	repositories.DocumentRepository
	createErr error
	updateErr error
	// afterList runs once after the next ListVisible read
	afterList func()
}

func (f *flakyDocuments) ListVisible(ctx context.Context, projectID, userID uuid.UUID, filters repositories.DocumentFilters) ([]models.Document, error) {
	documents, err := f.DocumentRepository.ListVisible(ctx, projectID, userID, filters)
	if hook := f.afterList; hook != nil {
		f.afterList = nil
		hook()
	}
	return documents, err
}

func (f *flakyDocuments) Create(ctx context.Context, document *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.DocumentRepository.Create(ctx, document)
}

func (f *flakyDocuments) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.DocumentRepository.UpdateFields(ctx, id, fields)
}

var errInjected = errors.New("injected failure")

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *testutil.TestDB
	repos *postgresql.Repositories
	blobs *memoryBlobs
	docs  *flakyDocuments
	bus   *events.MemoryBus
	log   *logger.Logger

	access    *services.AccessService
	activity  *services.ActivityService
	projects  *services.ProjectService
	documents *services.DocumentService
	versions  *services.VersionService
	locks     *services.LockService
	approvals *services.ApprovalService
	notifier  *services.ChangeNotifier

	owner   uuid.UUID
	project *models.Project
}

type fixtureOption func(f *fixture, d *services.Dependencies)

func withOptions(opts services.Options) fixtureOption {
	return func(f *fixture, d *services.Dependencies) { d.Options = opts }
}

func withCache(cache services.CacheService) fixtureOption {
	return func(f *fixture, d *services.Dependencies) {
		d.Feed = services.NewChangeFeed(f.bus, cache, f.log)
	}
}

func withBlobs(blobs services.BlobStore, fetcher services.BlobFetcher) fixtureOption {
	return func(f *fixture, d *services.Dependencies) {
		d.Blobs = blobs
		d.Fetcher = fetcher
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	t.Cleanup(func() { db.Cleanup(t) })

	bus := events.NewMemoryBus()
	t.Cleanup(func() { bus.Close() })

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		repos: postgresql.NewRepositories(db.DB),
		blobs: newMemoryBlobs(),
		bus:   bus,
		log:   logger.NewForTesting(),
		owner: uuid.New(),
	}
	f.docs = &flakyDocuments{DocumentRepository: f.repos.DocumentRepo}

	f.access = services.NewAccessService(f.repos.ProjectRepo, f.repos.DocumentRepo, f.log)
	f.activity = services.NewActivityService(f.repos.ActivityRepo, f.log)

	deps := services.Dependencies{
		Projects:  f.repos.ProjectRepo,
		Documents: f.docs,
		Versions:  f.repos.VersionRepo,
		Shares:    f.repos.ShareRepo,
		Approvals: f.repos.ApprovalRepo,
		Events:    f.repos.EventRepo,
		Access:    f.access,
		Activity:  f.activity,
		Feed:      services.NewChangeFeed(bus, nil, f.log),
		Blobs:     f.blobs,
		Fetcher:   f.blobs,
		Logger:    f.log,
		Options:   services.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(f, &deps)
	}

	f.projects = services.NewProjectService(f.repos.ProjectRepo, f.access, f.activity, f.log)
	f.versions = services.NewVersionService(deps)
	f.documents = services.NewDocumentService(deps, f.versions)
	f.locks = services.NewLockService(deps)
	f.approvals = services.NewApprovalService(deps)
	f.notifier = services.NewChangeNotifier(bus, f.documents, f.log)

	f.project = db.CreateTestProject(t, f.owner)
	return f
}

// member adds a new user to the fixture project
func (f *fixture) member(role models.MemberRole) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	f.db.AddTestMember(f.t, f.project.ID, id, role)
	return id
}

func pdf(name, body string) *services.FileUpload {
	return &services.FileUpload{
		Name:        name,
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4\n" + body),
	}
}

func (f *fixture) upload(caller uuid.UUID, name, number string, mutate ...func(*services.UploadParams)) *models.Document {
	f.t.Helper()
	params := services.UploadParams{
		Caller:         caller,
		ProjectID:      f.project.ID,
		File:           pdf(name, name+number),
		DocumentNumber: number,
	}
	for _, m := range mutate {
		m(&params)
	}
	document, err := f.documents.UploadDocument(f.ctx, params)
	require.NoError(f.t, err)
	return document
}

func (f *fixture) reload(id uuid.UUID) *models.Document {
	f.t.Helper()
	document, err := f.repos.DocumentRepo.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return document
}

func requireKind(t *testing.T, err error, kind services.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, services.KindOf(err), "error: %v", err)
}

func stepStatuses(t *testing.T, err error) map[string]services.StepStatus {
	t.Helper()
	var serviceErr *services.Error
	require.True(t, errors.As(err, &serviceErr), "not a service error: %v", err)
	out := make(map[string]services.StepStatus, len(serviceErr.Steps))
	for _, step := range serviceErr.Steps {
		out[step.Name] = step.Status
	}
	return out
}
