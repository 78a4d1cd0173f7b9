package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroker distributes change events across server instances via redis
// pub/sub, one channel per owner.
type RedisBroker struct {
	rdb *redis.Client
}

// NewRedisBroker connects to redis and verifies the connection
func NewRedisBroker(ctx context.Context, addr string) (*RedisBroker, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisBroker{rdb: rdb}, nil
}

func channelFor(ownerID uint) string {
	return fmt.Sprintf("marks:feed:%d", ownerID)
}

// Publish marshals the event and publishes it on the owner's channel
func (b *RedisBroker) Publish(ctx context.Context, ownerID uint, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelFor(ownerID), payload).Err()
}

// Subscribe opens a pub/sub subscription on the owner's channel and decodes
// incoming payloads into events
func (b *RedisBroker) Subscribe(ctx context.Context, ownerID uint) (<-chan Event, func(), error) {
	pubsub := b.rdb.Subscribe(ctx, channelFor(ownerID))

	// Force the subscription to be established before returning, so events
	// published after Subscribe are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("feed: discarding malformed event payload: %v", err)
				continue
			}
			out <- ev
		}
	}()

	release := func() {
		pubsub.Close()
	}
	return out, release, nil
}

// Close closes the underlying redis client
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
