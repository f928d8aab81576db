package postgresql

import (
	"context"
	"testing"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/internal/infrastructure/repositories/postgresql/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	project := db.CreateTestProject(t, owner)

	document := &models.Document{
		ProjectID:     project.ID,
		Name:          "plan.pdf",
		Title:         "Ground floor plan",
		FilePath:      project.ID.String() + "/abc.pdf",
		FileType:      "application/pdf",
		FileSize:      2048,
		FileExtension: "pdf",
		Category:      models.CategoryDrawings,
		Tags:          models.StringList{"level-0", "architectural"},
		UploadedBy:    owner,
		Visibility:    models.VisibilityProject,
		Status:        models.StatusForTender,
		Version:       1,
	}

	err := repo.Create(ctx, document)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, document.ID)
	assert.NotZero(t, document.CreatedAt)

	found, err := repo.GetByID(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ground floor plan", found.Title)
	assert.Equal(t, models.StringList{"level-0", "architectural"}, found.Tags)
	assert.Equal(t, models.StatusForTender, found.Status)
	assert.Nil(t, found.LockedBy)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDocumentRepository_ListVisible(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	shareRepo := NewDocumentShareRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	colleague := uuid.New()
	guest := uuid.New()
	outsider := uuid.New()

	project := db.CreateTestProject(t, owner)
	db.AddTestMember(t, project.ID, colleague, models.RoleMember)
	db.AddTestMember(t, project.ID, guest, models.RoleMember)

	private := func(d *models.Document) { d.Visibility = models.VisibilityPrivate }

	shared := db.CreateTestDocument(t, project.ID, owner)
	ownerPrivate := db.CreateTestDocument(t, project.ID, owner, private)
	sharedPrivate := db.CreateTestDocument(t, project.ID, owner, private)
	colleaguePrivate := db.CreateTestDocument(t, project.ID, colleague, private)

	require.NoError(t, shareRepo.Create(ctx, &models.DocumentShare{
		DocumentID: sharedPrivate.ID,
		SharedWith: guest,
		SharedBy:   owner,
	}))

	ids := func(docs []models.Document) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	docs, err := repo.ListVisible(ctx, project.ID, owner, repositories.DocumentFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, ownerPrivate.ID, sharedPrivate.ID}, ids(docs))

	docs, err = repo.ListVisible(ctx, project.ID, colleague, repositories.DocumentFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, colleaguePrivate.ID}, ids(docs))

	docs, err = repo.ListVisible(ctx, project.ID, guest, repositories.DocumentFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, sharedPrivate.ID}, ids(docs))

	docs, err = repo.ListVisible(ctx, project.ID, outsider, repositories.DocumentFilters{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	visibleIDs, err := repo.VisibleIDs(ctx, project.ID, guest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, sharedPrivate.ID}, visibleIDs)

	visible, err := repo.IsVisible(ctx, colleaguePrivate.ID, owner)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestDocumentRepository_ListVisible_Filters(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	project := db.CreateTestProject(t, owner)

	db.CreateTestDocument(t, project.ID, owner, func(d *models.Document) {
		d.Status = models.StatusForConstruction
		d.Category = models.CategoryDrawings
	})
	db.CreateTestDocument(t, project.ID, owner, func(d *models.Document) {
		d.IsSuperseded = true
		superseder := uuid.New()
		d.SupersededBy = &superseder
	})

	status := models.StatusForConstruction
	docs, err := repo.ListVisible(ctx, project.ID, owner, repositories.DocumentFilters{Status: &status})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = repo.ListVisible(ctx, project.ID, owner, repositories.DocumentFilters{HeadsOnly: true})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.False(t, docs[0].IsSuperseded)
}

func TestDocumentRepository_HeadUniqueness(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	project := db.CreateTestProject(t, owner)

	numbered := func(d *models.Document) { d.DocumentNumber = "A-101" }
	first := db.CreateTestDocument(t, project.ID, owner, numbered)

	second := &models.Document{
		ProjectID:      project.ID,
		Name:           "plan-rev-b.pdf",
		FilePath:       "p/rev-b.pdf",
		Category:       models.CategoryDrawings,
		UploadedBy:     owner,
		Visibility:     models.VisibilityProject,
		Status:         models.StatusForInformation,
		Version:        2,
		DocumentNumber: "A-101",
	}
	assert.Error(t, repo.Create(ctx, second), "two heads for one document number")

	second.ID = uuid.Nil
	require.NoError(t, repo.MarkSuperseded(ctx, first.ID, uuid.New()))
	require.NoError(t, repo.Create(ctx, second))

	head, err := repo.FindHead(ctx, project.ID, "A-101")
	require.NoError(t, err)
	assert.Equal(t, second.ID, head.ID)

	lineage, err := repo.ListByNumber(ctx, project.ID, "A-101")
	require.NoError(t, err)
	require.Len(t, lineage, 2)
	assert.Equal(t, 1, lineage[0].Version)
	assert.Equal(t, 2, lineage[1].Version)

	// documents without a number never collide
	db.CreateTestDocument(t, project.ID, owner)
	db.CreateTestDocument(t, project.ID, owner)
}

func TestDocumentRepository_MarkSuperseded(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	project := db.CreateTestProject(t, owner)
	document := db.CreateTestDocument(t, project.ID, owner)
	successor := uuid.New()

	require.NoError(t, repo.MarkSuperseded(ctx, document.ID, successor))

	found, err := repo.GetByID(ctx, document.ID)
	require.NoError(t, err)
	assert.True(t, found.IsSuperseded)
	require.NotNil(t, found.SupersededBy)
	assert.Equal(t, successor, *found.SupersededBy)

	err = repo.MarkSuperseded(ctx, document.ID, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrConflict)

	err = repo.MarkSuperseded(ctx, uuid.New(), successor)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.ClearSuperseded(ctx, document.ID))
	found, err = repo.GetByID(ctx, document.ID)
	require.NoError(t, err)
	assert.False(t, found.IsSuperseded)
	assert.Nil(t, found.SupersededBy)
}

func TestDocumentRepository_UpdateFieldsAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewDocumentRepository(db.DB)
	ctx := context.Background()

	owner := uuid.New()
	project := db.CreateTestProject(t, owner)
	document := db.CreateTestDocument(t, project.ID, owner)

	require.NoError(t, repo.UpdateFields(ctx, document.ID, map[string]interface{}{
		"status":      models.StatusForConstruction,
		"assigned_to": owner,
	}))

	found, err := repo.GetByID(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusForConstruction, found.Status)
	require.NotNil(t, found.AssignedTo)
	assert.Equal(t, owner, *found.AssignedTo)

	err = repo.UpdateFields(ctx, uuid.New(), map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, document.ID))
	_, err = repo.GetByID(ctx, document.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, document.ID), repositories.ErrNotFound)
}
