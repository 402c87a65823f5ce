package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "WRITE_TIMEOUT_MS", "LIVE_DELIVERY", "SMTP_PORT", "REDIS_HOST", "REDIS_PORT"} {
		t.Setenv(key, "")
	}

	cfg := fromEnv()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, LiveDeliveryHub, cfg.LiveDelivery)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("WRITE_TIMEOUT_MS", "1500")
	t.Setenv("LIVE_DELIVERY", "redis")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := fromEnv()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, LiveDeliveryRedis, cfg.LiveDelivery)
	assert.Equal(t, 587, cfg.SMTPPort)
}
