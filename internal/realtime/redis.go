package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "civicflow:"

// RedisPublisher publishes events over redis pub/sub, one channel per
// entity type.
type RedisPublisher struct {
	client  *redis.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisPublisher creates a publisher over the given redis client
func NewRedisPublisher(client *redis.Client, timeout time.Duration, logger *zap.Logger) *RedisPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisPublisher{client: client, timeout: timeout, logger: logger}
}

// Publish sends one event, bounded by the publisher's timeout
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, channelPrefix+event.EntityType, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscriber receives record-change events for UI refresh
type Subscriber struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSubscriber creates a subscriber over the given redis client
func NewSubscriber(client *redis.Client, logger *zap.Logger) *Subscriber {
	return &Subscriber{client: client, logger: logger}
}

// Subscribe returns a channel of events for the given entity type. The
// channel closes when ctx is cancelled. Malformed payloads are logged
// and skipped.
func (s *Subscriber) Subscribe(ctx context.Context, entityType string) <-chan Event {
	pubsub := s.client.Subscribe(ctx, channelPrefix+entityType)
	out := make(chan Event)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.Warn("Dropping malformed realtime event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
