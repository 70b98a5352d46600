package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

func receive(t *testing.T, ch <-chan *entities.ChangeEvent) *entities.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := providers.AppointmentsChannel("fac-1")
	first, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, providers.AppointmentsChannel("fac-2"))
	require.NoError(t, err)

	event := entities.NewChangeEvent(entities.CollectionAppointments, entities.ChangeKindUpdated, "fac-1", "apt-1", nil)
	require.NoError(t, bus.Publish(ctx, channel, event))

	assert.Equal(t, "apt-1", receive(t, first).DocumentID)
	assert.Equal(t, "apt-1", receive(t, second).DocumentID)

	select {
	case ev := <-other:
		t.Fatalf("unexpected event on other facility: %v", ev)
	default:
	}
}

func TestMemoryEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "donors:fac-1")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus()

	ch, err := bus.Subscribe(context.Background(), providers.EventChannelAuth)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, bus.Publish(context.Background(), providers.EventChannelAuth,
		entities.NewChangeEvent(entities.CollectionAuth, entities.ChangeKindSignedOut, "", "u1", nil)))
}

func TestHub_FullSubscriberDropsEvent(t *testing.T) {
	h := newHub()
	ch, n := h.add("c")
	assert.Equal(t, 1, n)

	for i := 0; i < subscriberBuffer+5; i++ {
		h.broadcast("c", &entities.ChangeEvent{ID: "e"})
	}
	assert.Len(t, ch, subscriberBuffer)

	remaining, removed := h.remove("c", ch)
	assert.True(t, removed)
	assert.Zero(t, remaining)
	assert.Zero(t, h.count("c"))

	_, removed = h.remove("c", ch)
	assert.False(t, removed)
}
