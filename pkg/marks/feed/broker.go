package feed

import "context"

// Broker fans row-level change events out to subscribed sessions. Events are
// scoped per owner: a subscriber only ever sees changes to its own rows.
type Broker interface {
	// Publish delivers an event to every current subscriber of the owner.
	Publish(ctx context.Context, ownerID uint, ev Event) error
	// Subscribe returns a channel of events for the owner plus a release
	// function. The channel is closed when the subscription is released
	// or the broker shuts down.
	Subscribe(ctx context.Context, ownerID uint) (<-chan Event, func(), error)
	// Close shuts the broker down and closes all subscriber channels.
	Close() error
}
