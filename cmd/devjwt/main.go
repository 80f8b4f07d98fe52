package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
	"github.com/fitness-tracker/fitness-platform/internal/platform/httpserver"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
)

// Tiny dev-only JWT issuer + JWKS server.
//
// This is NOT a full OIDC provider. It mints Keycloak-shaped RS256 tokens so the
// gateway can run locally in either decode or verify mode.

func main() {
	log := logger.New(config.LoadLogConfigFromEnv())

	port := getenv("PORT", "5556")
	iss := &issuer{
		Issuer:   getenv("ISSUER", "http://devjwt:5556"),
		Audience: getenv("AUDIENCE", "fitness-platform"),
		Kid:      getenv("KID", "dev-kid-1"),
		TTL:      getenvDuration("TTL", 30*time.Minute),
		Now:      time.Now,
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Error("generate key", "error", err)
		os.Exit(1)
	}
	iss.Key = priv

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("devjwt ready", "iss", iss.Issuer, "aud", iss.Audience, "kid", iss.Kid, "ttl", iss.TTL)
	if err := httpserver.Run(ctx, httpserver.New(":"+port, iss.Handler()), 5*time.Second, log); err != nil {
		log.Error("devjwt stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
