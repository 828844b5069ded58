// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string
	ServiceName     string
	ServiceID       string
	ServicePort     int
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	StorageBackend string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	CacheEnabled  bool
	CacheTTL      time.Duration

	RabbitMQEnabled  bool
	RabbitMQHost     string
	RabbitMQPort     int
	RabbitMQUser     string
	RabbitMQPassword string

	ConsulEnabled bool
	ConsulHost    string
	ConsulPort    int

	JWTSecret    string
	SessionTTL   time.Duration
	EmailPattern string

	SeedCatalog bool

	LoginRateLimit float64
	LoginRateBurst int

	GatewayAddr  string
	UpstreamURL  string
	RefreshEvery time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SERVICE_NAME", "marketplace-api")
	v.SetDefault("SERVICE_ID", "marketplace-api-1")
	v.SetDefault("SERVICE_PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BACKEND", BackendMemory)

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "market")
	v.SetDefault("POSTGRES_PASSWORD", "market123")
	v.SetDefault("POSTGRES_DB", "market")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_PREFIX", "market:")
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("RABBITMQ_ENABLED", false)
	v.SetDefault("RABBITMQ_HOST", "localhost")
	v.SetDefault("RABBITMQ_PORT", 5672)
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASSWORD", "guest")

	v.SetDefault("CONSUL_ENABLED", false)
	v.SetDefault("CONSUL_HOST", "localhost")
	v.SetDefault("CONSUL_PORT", 8500)

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("EMAIL_PATTERN", `^[a-zA-Z0-9._-]+@utp\.edu\.pe$`)

	v.SetDefault("SEED_CATALOG", true)

	v.SetDefault("LOGIN_RATE_LIMIT", 1.0)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	v.SetDefault("GATEWAY_ADDR", ":8000")
	v.SetDefault("UPSTREAM_URL", "http://marketplace-api:8080")
	v.SetDefault("REFRESH_EVERY", "10s")
}

// Load collects configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ServiceName:     v.GetString("SERVICE_NAME"),
		ServiceID:       v.GetString("SERVICE_ID"),
		ServicePort:     v.GetInt("SERVICE_PORT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		StorageBackend: v.GetString("STORAGE_BACKEND"),

		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetInt("POSTGRES_PORT"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisPrefix:   v.GetString("REDIS_PREFIX"),
		CacheEnabled:  v.GetBool("CACHE_ENABLED"),
		CacheTTL:      v.GetDuration("CACHE_TTL"),

		RabbitMQEnabled:  v.GetBool("RABBITMQ_ENABLED"),
		RabbitMQHost:     v.GetString("RABBITMQ_HOST"),
		RabbitMQPort:     v.GetInt("RABBITMQ_PORT"),
		RabbitMQUser:     v.GetString("RABBITMQ_USER"),
		RabbitMQPassword: v.GetString("RABBITMQ_PASSWORD"),

		ConsulEnabled: v.GetBool("CONSUL_ENABLED"),
		ConsulHost:    v.GetString("CONSUL_HOST"),
		ConsulPort:    v.GetInt("CONSUL_PORT"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		EmailPattern: v.GetString("EMAIL_PATTERN"),

		SeedCatalog: v.GetBool("SEED_CATALOG"),

		LoginRateLimit: v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginRateBurst: v.GetInt("LOGIN_RATE_BURST"),

		GatewayAddr:  v.GetString("GATEWAY_ADDR"),
		UpstreamURL:  v.GetString("UPSTREAM_URL"),
		RefreshEvery: v.GetDuration("REFRESH_EVERY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (want memory, redis or postgres)", c.StorageBackend)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.LoginRateBurst < 1 {
		return errors.New("LOGIN_RATE_BURST must be at least 1")
	}
	return nil
}
