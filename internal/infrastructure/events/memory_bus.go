package events

import (
	"context"
	"errors"
	"sync"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/google/uuid"
)

// ErrBusClosed is returned when publishing to or subscribing on a closed bus
var ErrBusClosed = errors.New("change bus closed")

const subscriptionBuffer = 16

type topic struct {
	relation  services.Relation
	projectID uuid.UUID
}

// MemoryBus is an in-process ChangeBus for single-instance deployments and tests.
// Slow subscribers drop events once their buffer is full.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[topic]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[topic]map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, event services.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	for sub := range b.subs[topic{event.Relation, event.ProjectID}] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, relation services.Relation, projectID uuid.UUID) (services.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	t := topic{relation, projectID}
	sub := &memorySubscription{bus: b, topic: t, events: make(chan services.ChangeEvent, subscriptionBuffer)}
	if b.subs[t] == nil {
		b.subs[t] = make(map[*memorySubscription]struct{})
	}
	b.subs[t][sub] = struct{}{}

	sub.stop = context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

// Close closes every open subscription
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.closeLocked()
		}
	}
	b.subs = nil
	return nil
}

type memorySubscription struct {
	bus    *MemoryBus
	topic  topic
	events chan services.ChangeEvent
	stop   func() bool
	once   sync.Once
}

func (s *memorySubscription) Events() <-chan services.ChangeEvent {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closeLocked()
	return nil
}

// closeLocked must be called with the bus mutex held
func (s *memorySubscription) closeLocked() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		if subs := s.bus.subs[s.topic]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
		close(s.events)
	})
}
