package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Live delivery modes
const (
	LiveDeliveryHub   = "hub"
	LiveDeliveryRedis = "redis"
	LiveDeliveryNone  = "none"
)

type Config struct {
	ServerAddr    string
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string
	OpenAIAPIKey  string
	SentryDSN     string
	WriteTimeout  time.Duration
	ReminderCron  string
	LiveDelivery  string
	AppBaseURL    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "multiverse"),
		DBPassword:    getEnv("DB_PASSWORD", "multiverse"),
		DBName:        getEnv("DB_NAME", "multiverse"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		SentryDSN:     getEnv("SENTRY_DSN", ""),
		WriteTimeout:  time.Duration(getEnvAsInt("WRITE_TIMEOUT_MS", 3000)) * time.Millisecond,
		ReminderCron:  getEnv("REMINDER_CRON", "0 8 * * *"),
		LiveDelivery:  getEnv("LIVE_DELIVERY", LiveDeliveryHub),
		AppBaseURL:    getEnv("APP_BASE_URL", "http://localhost:3000"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
	}
}

// RedisAddr is the host:port of the Redis server
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
