package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes events with PUBLISH on the basket topic.
type RedisNotifier struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisNotifier(client redis.UniversalClient, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, basketUUID string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, Topic(basketUUID), body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe listens on the basket topic until the returned cancel func is
// called or ctx is done. Events published before the call are not seen.
func (n *RedisNotifier) Subscribe(ctx context.Context, basketUUID string) (<-chan Event, func(), error) {
	sub := n.client.Subscribe(ctx, Topic(basketUUID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				n.logger.Warn("skipping malformed checkout event", "topic", msg.Channel, "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}
