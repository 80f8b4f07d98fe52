package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
	StorageRedis    StorageBackend = "redis"
)

// StorageConfig selects the repository backend of a service.
type StorageConfig struct {
	Backend     StorageBackend
	DatabaseURL string
}

func loadStorageConfigFromEnv() (StorageConfig, error) {
	cfg := StorageConfig{
		Backend:     StorageBackend(strings.ToLower(envString("STORAGE_BACKEND", string(StorageMemory)))),
		DatabaseURL: envString("DATABASE_URL", ""),
	}
	switch cfg.Backend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return StorageConfig{}, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return StorageConfig{}, fmt.Errorf("unknown STORAGE_BACKEND %q (expected memory|postgres)", cfg.Backend)
	}
	return cfg, nil
}

type UserServiceConfig struct {
	Addr            string
	Storage         StorageConfig
	ShutdownTimeout time.Duration
	Log             LogConfig
}

func LoadUserServiceConfigFromEnv() (UserServiceConfig, error) {
	storage, err := loadStorageConfigFromEnv()
	if err != nil {
		return UserServiceConfig{}, err
	}
	shutdown, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return UserServiceConfig{}, err
	}
	return UserServiceConfig{
		Addr:            addrFromPort(envString("PORT", "8081")),
		Storage:         storage,
		ShutdownTimeout: shutdown,
		Log:             LoadLogConfigFromEnv(),
	}, nil
}

type ActivityServiceConfig struct {
	Addr    string
	Storage StorageConfig

	IdempotencyBackend StorageBackend
	IdempotencyTTL     time.Duration
	Redis              RedisConfig

	Kafka KafkaConfig

	// UserServiceURL enables user validation on track; nil skips it.
	UserServiceURL     *url.URL
	UserServiceTimeout time.Duration

	ShutdownTimeout time.Duration
	Log             LogConfig
}

func LoadActivityServiceConfigFromEnv() (ActivityServiceConfig, error) {
	storage, err := loadStorageConfigFromEnv()
	if err != nil {
		return ActivityServiceConfig{}, err
	}
	cfg := ActivityServiceConfig{
		Addr:    addrFromPort(envString("PORT", "8082")),
		Storage: storage,
		Kafka:   LoadKafkaConfigFromEnv(),
		Log:     LoadLogConfigFromEnv(),
	}

	cfg.IdempotencyBackend = StorageBackend(strings.ToLower(envString("IDEMPOTENCY_BACKEND", string(storage.Backend))))
	if cfg.Redis, err = LoadRedisConfigFromEnv(); err != nil {
		return ActivityServiceConfig{}, err
	}
	switch cfg.IdempotencyBackend {
	case StorageMemory:
	case StoragePostgres:
		if storage.DatabaseURL == "" {
			return ActivityServiceConfig{}, fmt.Errorf("IDEMPOTENCY_BACKEND=postgres requires DATABASE_URL")
		}
	case StorageRedis:
		if cfg.Redis.URL == "" {
			return ActivityServiceConfig{}, fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_URL")
		}
	default:
		return ActivityServiceConfig{}, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q (expected memory|postgres|redis)", cfg.IdempotencyBackend)
	}
	if cfg.IdempotencyTTL, err = envDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return ActivityServiceConfig{}, err
	}

	if raw := envString("USER_SERVICE_URL", ""); raw != "" {
		if cfg.UserServiceURL, err = requiredURL("USER_SERVICE_URL"); err != nil {
			return ActivityServiceConfig{}, err
		}
	}
	if cfg.UserServiceTimeout, err = envDuration("USER_SERVICE_TIMEOUT", 5*time.Second); err != nil {
		return ActivityServiceConfig{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return ActivityServiceConfig{}, err
	}
	return cfg, nil
}
