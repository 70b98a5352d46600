package providers

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to change events
type EventBus interface {
	// Publish publishes an event to all subscribers of channel
	Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx is done or the bus is closed.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error)

	// Unsubscribe drops every subscription on a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelAuth carries sign-in and sign-out events
	EventChannelAuth = "auth:state"
)

// CollectionChannel returns the channel for changes of a collection at a facility
func CollectionChannel(collection entities.Collection, facilityID string) string {
	return string(collection) + ":" + facilityID
}

// AppointmentsChannel returns the channel for a facility's appointment changes
func AppointmentsChannel(facilityID string) string {
	return CollectionChannel(entities.CollectionAppointments, facilityID)
}
