package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBridge publishes events on a Redis channel and relays everything seen
// on that channel into the local hub, so every API instance serves every event.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, hub: hub}
}

func (b *RedisBridge) Publish(ctx context.Context, events ...Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			slog.Error("encode event", "type", ev.Type, "error", err)
			continue
		}

		err = b.client.Publish(ctx, b.channel, payload).Err()
		if err != nil {
			// still reach this instance's subscribers
			slog.Warn("redis publish failed, dispatching locally", "type", ev.Type, "error", err)
			b.hub.Dispatch(ev)
		}
	}
}

// Run relays channel messages into the hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	_, err := ps.Receive(ctx)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	msgs := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			var ev Event

			err = json.Unmarshal([]byte(msg.Payload), &ev)
			if err != nil {
				slog.Warn("drop malformed event", "error", err)
				continue
			}

			b.hub.Dispatch(ev)
		}
	}
}
