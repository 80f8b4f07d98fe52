package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
	memuserrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/userrepo"
	postgres "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres"
	pguserrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/userrepo"
	"github.com/fitness-tracker/fitness-platform/internal/app/users"
	platformclock "github.com/fitness-tracker/fitness-platform/internal/platform/clock"
	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
	"github.com/fitness-tracker/fitness-platform/internal/platform/httpserver"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	userrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

func main() {
	cfg, err := config.LoadUserServiceConfigFromEnv()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("userservice stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.UserServiceConfig, log *slog.Logger) error {
	var repo userrepoport.Repository
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		repo = pguserrepo.NewRepo(pool)
	default:
		repo = memuserrepo.NewRepo()
	}
	log.Info("storage ready", "backend", cfg.Storage.Backend)

	svc := users.NewService(repo, platformclock.NewSystemClock())
	svc.Metrics = metrics.NewUsers(prometheus.DefaultRegisterer)

	handler := httpapi.NewUserRouter(
		httpapi.NewUsersHandler(svc, log),
		httpapi.RouterOptions{Logger: log, MetricsHandler: promhttp.Handler()},
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, handler), cfg.ShutdownTimeout, log)
}
