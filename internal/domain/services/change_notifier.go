package services

import (
	"context"
	"errors"
	"sync"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

var (
	ErrSessionStarted = errors.New("notifier session already started")
	ErrSessionStopped = errors.New("notifier session stopped")
)

// DocumentLister is the read side a session refreshes from
type DocumentLister interface {
	ListDocuments(ctx context.Context, caller, projectID uuid.UUID, filters repositories.DocumentFilters) ([]models.Document, error)
}

// ChangeNotifier hands out sessions that keep a caller's visible document list
// of one project fresh.
type ChangeNotifier struct {
	bus       ChangeBus
	documents DocumentLister
	logger    *logger.Logger
}

func NewChangeNotifier(bus ChangeBus, documents DocumentLister, log *logger.Logger) *ChangeNotifier {
	return &ChangeNotifier{bus: bus, documents: documents, logger: log}
}

// NewSession creates a stopped session for caller in projectID
func (n *ChangeNotifier) NewSession(caller, projectID uuid.UUID) *NotifierSession {
	return &NotifierSession{
		notifier:  n,
		caller:    caller,
		projectID: projectID,
		updates:   make(chan []models.Document, 1),
		signal:    make(chan struct{}, 1),
	}
}

// NotifierSession subscribes to the watched relations of one project. Any
// event triggers a full re-fetch of the visible list, pushed to Updates.
// Only the latest snapshot is buffered.
type NotifierSession struct {
	notifier  *ChangeNotifier
	caller    uuid.UUID
	projectID uuid.UUID

	updates chan []models.Document
	signal  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	subs    []Subscription
	latest  []models.Document
	wg      sync.WaitGroup

	stopOnce sync.Once
}

// Start subscribes and publishes an initial snapshot. The session runs until
// Stop is called or ctx is cancelled.
func (s *NotifierSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSessionStopped
	}
	if s.started {
		return ErrSessionStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	for _, relation := range WatchedRelations {
		sub, err := s.notifier.bus.Subscribe(ctx, relation, s.projectID)
		if err != nil {
			cancel()
			for _, opened := range s.subs {
				_ = opened.Close()
			}
			s.subs = nil
			return err
		}
		s.subs = append(s.subs, sub)
	}
	s.cancel = cancel
	s.started = true

	s.wg.Add(1 + len(s.subs))
	go s.run(ctx)
	for _, sub := range s.subs {
		go s.forward(ctx, sub)
	}

	// initial snapshot
	s.poke()

	s.notifier.logger.Debug("Notifier session started", "project_id", s.projectID, "user_id", s.caller)
	return nil
}

// Stop ends the session and closes Updates. It is safe to call more than once.
func (s *NotifierSession) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel, subs := s.cancel, s.subs
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		for _, sub := range subs {
			if err := sub.Close(); err != nil {
				s.notifier.logger.Warn("Failed to close subscription", "project_id", s.projectID, "error", err)
			}
		}
		s.wg.Wait()
		close(s.updates)

		s.notifier.logger.Debug("Notifier session stopped", "project_id", s.projectID, "user_id", s.caller)
	})
}

// Updates delivers visible-document snapshots
func (s *NotifierSession) Updates() <-chan []models.Document {
	return s.updates
}

// Documents returns the latest snapshot
func (s *NotifierSession) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.latest...)
}

func (s *NotifierSession) forward(ctx context.Context, sub Subscription) {
	defer s.wg.Done()
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			s.poke()
		}
	}
}

// poke requests a refresh. A pending request already covers this one.
func (s *NotifierSession) poke() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *NotifierSession) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
			s.refresh(ctx)
		}
	}
}

func (s *NotifierSession) refresh(ctx context.Context) {
	documents, err := s.notifier.documents.ListDocuments(ctx, s.caller, s.projectID, repositories.DocumentFilters{})
	if err != nil {
		if ctx.Err() == nil {
			s.notifier.logger.Warn("Failed to refresh document list", "project_id", s.projectID, "error", err)
		}
		return
	}

	s.mu.Lock()
	s.latest = documents
	s.mu.Unlock()

	select {
	case s.updates <- documents:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- documents
	}
}
