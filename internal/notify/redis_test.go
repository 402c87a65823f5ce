package notify

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRedisBroadcaster_DefaultChannel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	b := NewRedisBroadcaster(client, "", logrus.New())

	assert.Equal(t, DefaultChannel, b.channel)
}

func TestRedisBroadcaster_PublishFailsWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	b := NewRedisBroadcaster(client, "test:notifications", logrus.New())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := b.Publish(ctx, Message{ID: 1, UserID: 2})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish notification")
}
