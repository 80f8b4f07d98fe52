package config

import (
	"time"
)

// RedisConfig configures the shared go-redis client. An empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func LoadRedisConfigFromEnv() (RedisConfig, error) {
	cfg := RedisConfig{URL: envString("REDIS_URL", "")}

	var err error
	if cfg.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return RedisConfig{}, err
	}
	if cfg.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return RedisConfig{}, err
	}
	if cfg.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return RedisConfig{}, err
	}
	if cfg.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return RedisConfig{}, err
	}
	if cfg.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return RedisConfig{}, err
	}
	return cfg, nil
}
