package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "sitedocs:changes"

// RedisBus fans change events out over redis pub/sub so every API instance sees them
type RedisBus struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, logger: log}
}

func redisChannel(relation services.Relation, projectID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", redisChannelPrefix, relation, projectID)
}

func (b *RedisBus) Publish(ctx context.Context, event services.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannel(event.Relation, event.ProjectID), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, relation services.Relation, projectID uuid.UUID) (services.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, redisChannel(relation, projectID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to change events: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan services.ChangeEvent, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go sub.pump(b.logger)
	context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

// Close is a no-op; the redis client is owned by the caller
func (b *RedisBus) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan services.ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) pump(log *logger.Logger) {
	defer close(s.done)
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event services.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn("Dropping malformed change event", "channel", msg.Channel, "error", err)
			continue
		}
		select {
		case s.events <- event:
		default:
		}
	}
}

func (s *redisSubscription) Events() <-chan services.ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}
