package feed

import (
	"context"
	"log"
	"sync"
)

// subscriberBuffer bounds how far a slow consumer may lag before events
// are dropped for it.
const subscriberBuffer = 16

// MemoryBroker is an in-process Broker for single-node deployments and tests.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[uint]map[int]chan Event
	nextID int
	closed bool
}

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uint]map[int]chan Event)}
}

// Publish delivers the event to every subscriber of the owner
func (b *MemoryBroker) Publish(ctx context.Context, ownerID uint, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for id, ch := range b.subs[ownerID] {
		select {
		case ch <- ev:
		default:
			log.Printf("feed: dropping event for slow subscriber %d (owner %d)", id, ownerID)
		}
	}
	return nil
}

// Subscribe registers a new subscriber channel for the owner
func (b *MemoryBroker) Subscribe(ctx context.Context, ownerID uint) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}

	id := b.nextID
	b.nextID++
	if b.subs[ownerID] == nil {
		b.subs[ownerID] = make(map[int]chan Event)
	}
	b.subs[ownerID][id] = ch

	release := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if owners, ok := b.subs[ownerID]; ok {
			if _, ok := owners[id]; ok {
				delete(owners, id)
				close(ch)
			}
		}
	}
	return ch, release, nil
}

// Close closes every subscriber channel
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, owners := range b.subs {
		for _, ch := range owners {
			close(ch)
		}
	}
	b.subs = make(map[uint]map[int]chan Event)
	return nil
}
