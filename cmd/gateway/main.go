package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/gateway"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/gateway/usersync"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/userclient"
	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwtverifier"
	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
	"github.com/fitness-tracker/fitness-platform/internal/platform/httpserver"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	"github.com/fitness-tracker/fitness-platform/internal/platform/tracing"
)

func main() {
	cfg, err := config.LoadGatewayConfigFromEnv()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.GatewayConfig, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()
	if cfg.Tracing.Enabled() {
		log.Info("exporting traces", "endpoint", cfg.Tracing.Endpoint, "service", cfg.Tracing.ServiceName)
	}

	var decoder usersync.Decoder
	switch cfg.TokenMode {
	case config.TokenModeVerify:
		decoder = usersync.NewVerifyingDecoder(jwtverifier.New(*cfg.JWT))
		log.Info("token claims are verified", "issuer", cfg.JWT.Issuer, "jwks_url", cfg.JWT.JWKSURL)
	default:
		decoder = usersync.NewUnverifiedDecoder()
		log.Warn("GATEWAY_TOKEN_MODE=decode: token signatures are NOT verified, any caller can assert an identity")
	}

	filter := usersync.New(
		decoder,
		userclient.New(cfg.UserServiceURL, cfg.UserServiceTimeout),
		log,
		metrics.NewUserSync(prometheus.DefaultRegisterer),
	)

	handler := gateway.NewRouter(
		gateway.Upstreams{Users: cfg.UserServiceURL, Activities: cfg.ActivityServiceURL},
		filter,
		httpapi.RouterOptions{Logger: log, MetricsHandler: promhttp.Handler()},
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, handler), cfg.ShutdownTimeout, log)
}
