package events

import (
	"context"
	"sync"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

// MemoryEventBus delivers events within a single process. It backs the
// single-binary deployment and tests.
type MemoryEventBus struct {
	hub    *hub
	once   sync.Once
	closed chan struct{}
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{hub: newHub(), closed: make(chan struct{})}
}

// Publish delivers event to current subscribers of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	select {
	case <-b.closed:
		return nil
	default:
	}
	b.hub.broadcast(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	ch, _ := b.hub.add(channel)
	go func() {
		select {
		case <-ctx.Done():
		case <-b.closed:
		}
		b.hub.remove(channel, ch)
	}()
	return ch, nil
}

// Unsubscribe drops every subscriber of channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.closeChannel(channel)
	return nil
}

// Close closes the event bus and all subscriptions
func (b *MemoryEventBus) Close() error {
	b.once.Do(func() {
		close(b.closed)
		for _, channel := range b.hub.channels() {
			b.hub.closeChannel(channel)
		}
	})
	return nil
}
