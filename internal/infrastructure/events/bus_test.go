package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub services.Subscription) services.ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return services.ChangeEvent{}
}

func assertNoEvent(t *testing.T, sub services.Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBus_RoutesByRelationAndProject(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()
	project, other := uuid.New(), uuid.New()

	docs, err := bus.Subscribe(ctx, services.RelationDocuments, project)
	require.NoError(t, err)
	approvals, err := bus.Subscribe(ctx, services.RelationApprovals, project)
	require.NoError(t, err)

	entity := uuid.New()
	require.NoError(t, bus.Publish(ctx, services.ChangeEvent{Relation: services.RelationDocuments, ProjectID: project, EntityID: entity}))
	require.NoError(t, bus.Publish(ctx, services.ChangeEvent{Relation: services.RelationDocuments, ProjectID: other}))

	assert.Equal(t, entity, receive(t, docs).EntityID)
	assertNoEvent(t, docs)
	assertNoEvent(t, approvals)
}

func TestMemoryBus_CloseAndCancel(t *testing.T) {
	bus := NewMemoryBus()
	project := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, services.RelationDocuments, project)
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// closing twice is harmless
	assert.NoError(t, sub.Close())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), services.ChangeEvent{}), ErrBusClosed)
	_, err = bus.Subscribe(context.Background(), services.RelationDocuments, project)
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	bus := NewRedisBus(client, logger.NewForTesting())
	ctx := context.Background()
	project := uuid.New()

	sub, err := bus.Subscribe(ctx, services.RelationDocumentVersions, project)
	require.NoError(t, err)
	defer sub.Close()

	entity := uuid.New()
	require.NoError(t, bus.Publish(ctx, services.ChangeEvent{
		Relation:  services.RelationDocumentVersions,
		ProjectID: project,
		EntityID:  entity,
		At:        time.Now().UTC(),
	}))

	event := receive(t, sub)
	assert.Equal(t, services.RelationDocumentVersions, event.Relation)
	assert.Equal(t, project, event.ProjectID)
	assert.Equal(t, entity, event.EntityID)

	require.NoError(t, sub.Close())
	_, open := <-sub.Events()
	assert.False(t, open)
}
