package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures identity-token verification against the issuer's JWKS.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")
	jwksURL := os.Getenv("JWT_JWKS_URL")
	if issuer == "" || audience == "" || jwksURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}

	cfg := JWTConfig{
		Issuer:   issuer,
		Audience: audience,
		JWKSURL:  jwksURL,
	}

	var err error
	if cfg.ClockSkew, err = envDuration("JWT_CLOCK_SKEW", 30*time.Second); err != nil {
		return JWTConfig{}, err
	}
	// Periodic refresh picks up realm key rotation even while an old key is cached.
	if cfg.JWKSRefreshInterval, err = envDuration("JWT_JWKS_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return JWTConfig{}, err
	}
	// Floor on refreshes triggered by an unknown kid.
	if cfg.JWKSMinRefreshInterval, err = envDuration("JWT_JWKS_MIN_REFRESH_INTERVAL", 10*time.Second); err != nil {
		return JWTConfig{}, err
	}
	if cfg.HTTPTimeout, err = envDuration("JWT_HTTP_TIMEOUT", 5*time.Second); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}
