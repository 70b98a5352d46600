package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

const listenRetryDelay = time.Second

// PostgresEventBus implements the EventBus interface with LISTEN/NOTIFY.
// Each channel with local subscribers holds one pooled connection.
type PostgresEventBus struct {
	pool      *pgxpool.Pool
	hub       *hub
	mu        sync.Mutex
	listeners map[string]context.CancelFunc
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewPostgresEventBus creates an event bus on top of a pgx pool
func NewPostgresEventBus(pool *pgxpool.Pool) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostgresEventBus{
		pool:      pool,
		hub:       newHub(),
		listeners: make(map[string]context.CancelFunc),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Publish sends the event through pg_notify
func (b *PostgresEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(data)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe subscribes to events on a channel
func (b *PostgresEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	b.mu.Lock()
	if _, exists := b.listeners[channel]; !exists {
		listenCtx, cancel := context.WithCancel(b.ctx)
		b.listeners[channel] = cancel
		go b.listen(listenCtx, channel)
	}
	eventChan, _ := b.hub.add(channel)
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *PostgresEventBus) listen(ctx context.Context, channel string) {
	for {
		err := b.listenOnce(ctx, channel)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("channel", channel).Msg("listener connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

func (b *PostgresEventBus) listenOnce(ctx context.Context, channel string) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var event entities.ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
			continue
		}
		b.hub.broadcast(channel, &event)
	}
}

func (b *PostgresEventBus) removeSubscriber(channel string, eventChan chan *entities.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining, removed := b.hub.remove(channel, eventChan)
	if !removed || remaining > 0 {
		return
	}
	if cancel, ok := b.listeners[channel]; ok {
		cancel()
		delete(b.listeners, channel)
	}
}

// Unsubscribe drops every subscriber of channel and stops listening
func (b *PostgresEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hub.closeChannel(channel)
	if cancel, ok := b.listeners[channel]; ok {
		cancel()
		delete(b.listeners, channel)
	}
	return nil
}

// Close closes the event bus and all subscriptions
func (b *PostgresEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, cancel := range b.listeners {
		cancel()
		b.hub.closeChannel(channel)
		delete(b.listeners, channel)
	}
	return nil
}
