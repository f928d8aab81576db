package services

import (
	"context"
	"testing"
	"time"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleBus struct{}

func (idleBus) Publish(ctx context.Context, event ChangeEvent) error { return nil }

func (idleBus) Subscribe(ctx context.Context, relation Relation, projectID uuid.UUID) (Subscription, error) {
	return idleSubscription{events: make(chan ChangeEvent)}, nil
}

func (idleBus) Close() error { return nil }

type idleSubscription struct {
	events chan ChangeEvent
}

func (s idleSubscription) Events() <-chan ChangeEvent { return s.events }
func (s idleSubscription) Close() error               { return nil }

type staticLister []models.Document

func (l staticLister) ListDocuments(ctx context.Context, caller, projectID uuid.UUID, filters repositories.DocumentFilters) ([]models.Document, error) {
	return l, nil
}

func TestNotifierSession_StartWithPendingRefresh(t *testing.T) {
	notifier := NewChangeNotifier(idleBus{}, staticLister{{ID: uuid.New()}}, logger.NewForTesting())
	session := notifier.NewSession(uuid.New(), uuid.New())
	// an event forwarded before the refresh loop picked anything up
	session.signal <- struct{}{}

	started := make(chan error, 1)
	go func() { started <- session.Start(context.Background()) }()

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked on a pending refresh")
	}
	defer session.Stop()

	select {
	case documents := <-session.Updates():
		assert.Len(t, documents, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after start")
	}
}
