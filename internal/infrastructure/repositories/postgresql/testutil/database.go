package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// TestDB wraps the database for testing
type TestDB struct {
	*database.DB
}

// NewTestDB creates a migrated test database. Each call gets its own SQLite
// in-memory database unless DATABASE_URL_TEST points at PostgreSQL.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL_TEST")
	if databaseURL == "" {
		databaseURL = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := database.New(databaseURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &TestDB{DB: db}
}

// Cleanup closes the test database
func (db *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close test database: %v", err)
	}
}

// CreateTestProject creates a project with owner as its first member
func (db *TestDB) CreateTestProject(t *testing.T, owner uuid.UUID) *models.Project {
	t.Helper()

	project := &models.Project{
		Name:      fmt.Sprintf("Test Project %s", uuid.NewString()[:8]),
		CreatedBy: owner,
	}
	if err := db.WithContext(context.Background()).Create(project).Error; err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	db.AddTestMember(t, project.ID, owner, models.RoleOwner)

	return project
}

// AddTestMember adds a user to a project
func (db *TestDB) AddTestMember(t *testing.T, projectID, userID uuid.UUID, role models.MemberRole) {
	t.Helper()

	member := &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("Failed to add test member: %v", err)
	}
}

// CreateTestDocument creates a head document; opts may adjust it before insert
func (db *TestDB) CreateTestDocument(t *testing.T, projectID, uploader uuid.UUID, opts ...func(*models.Document)) *models.Document {
	t.Helper()

	id := uuid.New()
	document := &models.Document{
		ID:            id,
		ProjectID:     projectID,
		Name:          "test-document.pdf",
		Title:         "Test Document",
		FilePath:      fmt.Sprintf("%s/%s.pdf", projectID, id),
		FileType:      "application/pdf",
		FileSize:      1024,
		FileExtension: "pdf",
		FileCategory:  models.FileCategoryPDF,
		Category:      models.CategoryGeneral,
		UploadedBy:    uploader,
		Visibility:    models.VisibilityProject,
		Status:        models.StatusForInformation,
		Version:       1,
	}
	for _, opt := range opts {
		opt(document)
	}

	if err := db.Create(document).Error; err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}
	return document
}
