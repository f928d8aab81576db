package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresChannel is the NOTIFY channel carrying change events
const PostgresChannel = "sitedocs_changes"

// PostgresBus delivers change events through LISTEN/NOTIFY. Each subscription
// holds one pooled connection for the lifetime of the subscription.
type PostgresBus struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresPool opens a pgx pool for the bus
func NewPostgresPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewPostgresBus(pool *pgxpool.Pool, log *logger.Logger) *PostgresBus {
	return &PostgresBus{pool: pool, logger: log}
}

func (b *PostgresBus) Publish(ctx context.Context, event services.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", PostgresChannel, string(payload)); err != nil {
		return fmt.Errorf("notify change event: %w", err)
	}
	return nil
}

func (b *PostgresBus) Subscribe(ctx context.Context, relation services.Relation, projectID uuid.UUID) (services.Subscription, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+PostgresChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen for change events: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &postgresSubscription{
		conn:   conn,
		cancel: cancel,
		events: make(chan services.ChangeEvent, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go sub.listen(listenCtx, relation, projectID, b.logger)
	context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

// Close is a no-op; the pool is owned by the caller
func (b *PostgresBus) Close() error {
	return nil
}

type postgresSubscription struct {
	conn   *pgxpool.Conn
	cancel context.CancelFunc
	events chan services.ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func (s *postgresSubscription) listen(ctx context.Context, relation services.Relation, projectID uuid.UUID, log *logger.Logger) {
	defer close(s.done)
	defer close(s.events)

	for {
		notification, err := s.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn("Change listener stopped", "relation", relation, "project_id", projectID, "error", err)
			}
			return
		}

		var event services.ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			log.Warn("Dropping malformed change event", "error", err)
			continue
		}
		if event.Relation != relation || event.ProjectID != projectID {
			continue
		}
		select {
		case s.events <- event:
		default:
		}
	}
}

func (s *postgresSubscription) Events() <-chan services.ChangeEvent {
	return s.events
}

func (s *postgresSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done
		// a cancelled wait leaves the connection unusable, so drop it from the pool
		if closeErr := s.conn.Conn().Close(context.Background()); closeErr != nil {
			err = closeErr
		}
		s.conn.Release()
	})
	return err
}
