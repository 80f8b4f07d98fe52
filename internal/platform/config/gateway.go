package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type TokenMode string

const (
	// TokenModeDecode reads claims without checking the signature.
	TokenModeDecode TokenMode = "decode"
	// TokenModeVerify checks signature, issuer, audience and validity window against the JWKS.
	TokenModeVerify TokenMode = "verify"
)

type GatewayConfig struct {
	Addr string

	UserServiceURL     *url.URL
	ActivityServiceURL *url.URL
	UserServiceTimeout time.Duration

	TokenMode TokenMode
	// JWT is set only in verify mode.
	JWT *JWTConfig

	ShutdownTimeout time.Duration
	Log             LogConfig
	Tracing         TracingConfig
}

func LoadGatewayConfigFromEnv() (GatewayConfig, error) {
	cfg := GatewayConfig{
		Addr:    addrFromPort(envString("PORT", "8080")),
		Log:     LoadLogConfigFromEnv(),
		Tracing: LoadTracingConfigFromEnv("gateway"),
	}

	var err error
	if cfg.UserServiceURL, err = requiredURL("USER_SERVICE_URL"); err != nil {
		return GatewayConfig{}, err
	}
	if cfg.ActivityServiceURL, err = requiredURL("ACTIVITY_SERVICE_URL"); err != nil {
		return GatewayConfig{}, err
	}
	if cfg.UserServiceTimeout, err = envDuration("USER_SERVICE_TIMEOUT", 5*time.Second); err != nil {
		return GatewayConfig{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return GatewayConfig{}, err
	}

	switch mode := TokenMode(strings.ToLower(envString("GATEWAY_TOKEN_MODE", string(TokenModeDecode)))); mode {
	case TokenModeDecode:
		cfg.TokenMode = mode
	case TokenModeVerify:
		cfg.TokenMode = mode
		jwtCfg, err := LoadJWTConfigFromEnv()
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("GATEWAY_TOKEN_MODE=verify: %w", err)
		}
		cfg.JWT = &jwtCfg
	default:
		return GatewayConfig{}, fmt.Errorf("unknown GATEWAY_TOKEN_MODE %q (expected decode|verify)", mode)
	}
	return cfg, nil
}

func requiredURL(name string) (*url.URL, error) {
	raw := envString(name, "")
	if raw == "" {
		return nil, fmt.Errorf("missing required env var: %s", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return u, nil
}
