package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

// SnapshotLoader reads the full current contents of a collection
type SnapshotLoader[T any] func(ctx context.Context) ([]T, error)

// LiveCollection turns change notifications on an event channel into full
// snapshots of a collection. Events only signal that something changed; every
// notification re-reads the collection.
type LiveCollection[T any] struct {
	bus     providers.EventBus
	channel string
	load    SnapshotLoader[T]
}

// NewLiveCollection creates a live collection over channel
func NewLiveCollection[T any](bus providers.EventBus, channel string, load SnapshotLoader[T]) *LiveCollection[T] {
	return &LiveCollection[T]{bus: bus, channel: channel, load: load}
}

// Snapshot reads the collection once
func (c *LiveCollection[T]) Snapshot(ctx context.Context) ([]T, error) {
	return c.load(ctx)
}

// Subscribe delivers the current snapshot and then a fresh snapshot after
// every change. onChange is never called concurrently with itself. Delivery
// stops when ctx is done or unsubscribe is called; unsubscribe does not wait
// for a callback already in progress.
func (c *LiveCollection[T]) Subscribe(ctx context.Context, onChange func([]T)) (unsubscribe func(), err error) {
	ctx, cancel := context.WithCancel(ctx)

	// subscribe before the first read so no change between the two is lost
	events, err := c.bus.Subscribe(ctx, c.channel)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := c.load(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	go c.run(ctx, events, initial, onChange)
	return cancel, nil
}

func (c *LiveCollection[T]) run(ctx context.Context, events <-chan *entities.ChangeEvent, initial []T, onChange func([]T)) {
	deliver := func(snapshot []T) {
		if ctx.Err() == nil {
			onChange(snapshot)
		}
	}

	deliver(initial)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			coalesce(events)

			snapshot, err := c.load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("channel", c.channel).Msg("failed to reload live collection")
				continue
			}
			deliver(snapshot)
		}
	}
}

// coalesce drops events already queued; one reload covers all of them
func coalesce(events <-chan *entities.ChangeEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
