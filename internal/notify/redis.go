package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the pub/sub channel shared by all instances
const DefaultChannel = "multiverse:notifications"

// RedisBroadcaster publishes messages on a Redis channel so that every
// instance can hand them to its local hub.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

// NewRedisBroadcaster creates a broadcaster on the given client
func NewRedisBroadcaster(client *redis.Client, channel string, log logrus.FieldLogger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{client: client, channel: channel, log: log}
}

// Publish implements Broadcaster
func (b *RedisBroadcaster) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Forward relays channel messages to local until ctx is done
func (b *RedisBroadcaster) Forward(ctx context.Context, local Broadcaster) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.WithError(err).Warn("discarding malformed notification message")
				continue
			}
			if err := local.Publish(ctx, msg); err != nil {
				b.log.WithError(err).WithField("user_id", msg.UserID).Warn("local delivery failed")
			}
		}
	}
}
