package services_test

import (
	"testing"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLock_Symmetric(t *testing.T) {
	f := newFixture(t)
	document := f.upload(f.owner, "plan.pdf", "")

	locked, err := f.locks.ToggleLock(f.ctx, f.owner, document.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	require.NotNil(t, locked.LockedBy)
	assert.Equal(t, f.owner, *locked.LockedBy)
	assert.NotNil(t, locked.LockedAt)

	unlocked, err := f.locks.ToggleLock(f.ctx, f.owner, document.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
	assert.Nil(t, unlocked.LockedBy)
	assert.Nil(t, unlocked.LockedAt)

	entries, err := f.activity.ListForEntity(f.ctx, document.ID, 10)
	require.NoError(t, err)
	var actions []models.Action
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, models.ActionLocked)
	assert.Contains(t, actions, models.ActionUnlocked)
}

func TestToggleLock_AdvisoryByDefault(t *testing.T) {
	f := newFixture(t)
	member := f.member(models.RoleMember)
	document := f.upload(f.owner, "plan.pdf", "")

	_, err := f.locks.ToggleLock(f.ctx, f.owner, document.ID)
	require.NoError(t, err)

	// other members may still write and release
	_, err = f.documents.UpdateStatus(f.ctx, member, document.ID, "For Tender")
	require.NoError(t, err)

	released, err := f.locks.ToggleLock(f.ctx, member, document.ID)
	require.NoError(t, err)
	assert.False(t, released.IsLocked)
}

func TestToggleLock_Enforced(t *testing.T) {
	opts := services.DefaultOptions()
	opts.EnforceLocks = true
	f := newFixture(t, withOptions(opts))
	member := f.member(models.RoleMember)
	document := f.upload(f.owner, "plan.pdf", "P-1")

	_, err := f.locks.ToggleLock(f.ctx, f.owner, document.ID)
	require.NoError(t, err)

	_, err = f.locks.ToggleLock(f.ctx, member, document.ID)
	requireKind(t, err, services.KindConflict)
	assert.ErrorIs(t, err, services.ErrDocumentLocked)

	_, err = f.versions.CreateNewVersion(f.ctx, member, document.ID, pdf("plan.pdf", "x"), "")
	requireKind(t, err, services.KindConflict)

	_, err = f.documents.UploadDocument(f.ctx, services.UploadParams{
		Caller:         member,
		ProjectID:      f.project.ID,
		File:           pdf("plan.pdf", "y"),
		DocumentNumber: "P-1",
	})
	requireKind(t, err, services.KindConflict)

	// the holder is unaffected
	_, err = f.versions.CreateNewVersion(f.ctx, f.owner, document.ID, pdf("plan.pdf", "z"), "")
	require.NoError(t, err)
}

func TestToggleLock_InvisibleDocument(t *testing.T) {
	f := newFixture(t)
	document := f.upload(f.owner, "plan.pdf", "", func(p *services.UploadParams) { p.Visibility = "private" })
	member := f.member(models.RoleMember)

	_, err := f.locks.ToggleLock(f.ctx, member, document.ID)
	requireKind(t, err, services.KindNotFound)

	_, err = f.locks.ToggleLock(f.ctx, uuid.Nil, document.ID)
	requireKind(t, err, services.KindAuth)
}
