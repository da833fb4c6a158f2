package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster relays events through a Redis Pub/Sub channel so clients
// connected to any server instance see every mutation. Messages received from
// Redis, including this instance's own, are delivered through the local Hub.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	local   *Hub
	pubsub  *redis.PubSub
	done    chan struct{}
}

func NewRedisBroadcaster(ctx context.Context, client *redis.Client, channel string, local *Hub) (*RedisBroadcaster, error) {
	pubsub := client.Subscribe(ctx, channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	b := &RedisBroadcaster{
		client:  client,
		channel: channel,
		local:   local,
		pubsub:  pubsub,
		done:    make(chan struct{}),
	}
	go b.relay()
	return b, nil
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		// Local clients still hear about the change even if Redis is down.
		_ = b.local.Publish(ctx, event)
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (b *RedisBroadcaster) relay() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		event, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			slog.Warn("discarding malformed event", "channel", msg.Channel, "error", err)
			continue
		}
		_ = b.local.Publish(context.Background(), event)
	}
}

func (b *RedisBroadcaster) Close() error {
	err := b.pubsub.Close()
	<-b.done
	return err
}

func encodeEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func decodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	if !event.Kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	return event, nil
}
