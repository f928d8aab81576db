package services_test

import (
	"testing"
	"time"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainOf builds n documents where each supersedes the previous one
func chainOf(n int) []models.Document {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	docs := make([]models.Document, n)
	for i := range docs {
		docs[i] = models.Document{
			ID:        uuid.New(),
			Version:   i + 1,
			FilePath:  uuid.NewString() + ".pdf",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	for i := 0; i < n-1; i++ {
		next := docs[i+1].ID
		docs[i].IsSuperseded = true
		docs[i].SupersededBy = &next
	}
	return docs
}

func TestLineage_ValidChain(t *testing.T) {
	docs := chainOf(3)
	// input order must not matter
	shuffled := []models.Document{docs[2], docs[0], docs[1]}

	lineage := services.NewLineage(uuid.New(), "A-1", shuffled)
	require.NoError(t, lineage.Validate())

	chain := lineage.Chain()
	require.Len(t, chain, 3)
	for i, node := range chain {
		assert.Equal(t, docs[i].ID, node.DocumentID)
	}

	head, ok := lineage.Head()
	require.True(t, ok)
	assert.Equal(t, docs[2].ID, head.DocumentID)

	node, ok := lineage.Node(docs[1].ID)
	require.True(t, ok)
	assert.Equal(t, 2, node.Version)
	_, ok = lineage.Node(uuid.New())
	assert.False(t, ok)
}

func TestLineage_Empty(t *testing.T) {
	lineage := services.NewLineage(uuid.New(), "A-1", nil)
	assert.NoError(t, lineage.Validate())
	assert.Nil(t, lineage.Chain())
	_, ok := lineage.Head()
	assert.False(t, ok)
}

func TestLineage_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(docs []models.Document) []models.Document
	}{
		{
			name: "two heads",
			mutate: func(docs []models.Document) []models.Document {
				docs[1].IsSuperseded = false
				docs[1].SupersededBy = nil
				return docs
			},
		},
		{
			name: "flag without link",
			mutate: func(docs []models.Document) []models.Document {
				docs[0].SupersededBy = nil
				return docs
			},
		},
		{
			name: "version gap",
			mutate: func(docs []models.Document) []models.Document {
				docs[2].Version = 4
				return docs
			},
		},
		{
			name: "link to unknown document",
			mutate: func(docs []models.Document) []models.Document {
				stray := uuid.New()
				docs[0].SupersededBy = &stray
				return docs
			},
		},
		{
			name: "no head",
			mutate: func(docs []models.Document) []models.Document {
				first := docs[0].ID
				docs[2].IsSuperseded = true
				docs[2].SupersededBy = &first
				return docs
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := tt.mutate(chainOf(3))
			lineage := services.NewLineage(uuid.New(), "A-1", docs)

			err := lineage.Validate()
			assert.ErrorIs(t, err, services.ErrInvalidLineage)

			view := lineage.View()
			assert.False(t, view.Valid)
			assert.NotEmpty(t, view.Problem)
		})
	}
}

func TestLineage_ViewOfValidChain(t *testing.T) {
	docs := chainOf(2)
	projectID := uuid.New()

	view := services.NewLineage(projectID, "S-9", docs).View()
	assert.True(t, view.Valid)
	assert.Empty(t, view.Problem)
	assert.Equal(t, projectID, view.ProjectID)
	assert.Equal(t, "S-9", view.DocumentNumber)
	require.NotNil(t, view.HeadID)
	assert.Equal(t, docs[1].ID, *view.HeadID)
	assert.Len(t, view.Chain, 2)
}
