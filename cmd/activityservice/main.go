package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
	kafkaevents "github.com/fitness-tracker/fitness-platform/internal/adapters/kafka/activityevents"
	memactivityevents "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityevents"
	memactivityrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityrepo"
	memidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/idempotency"
	postgres "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres"
	pgactivityrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/activityrepo"
	pgidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/idempotency"
	redisidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/redis/idempotency"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/userclient"
	"github.com/fitness-tracker/fitness-platform/internal/app/activities"
	platformclock "github.com/fitness-tracker/fitness-platform/internal/platform/clock"
	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
	"github.com/fitness-tracker/fitness-platform/internal/platform/httpserver"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	platformredis "github.com/fitness-tracker/fitness-platform/internal/platform/redis"
	activityeventsport "github.com/fitness-tracker/fitness-platform/internal/ports/out/activityevents"
	activityrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
	idempotencyport "github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

func main() {
	cfg, err := config.LoadActivityServiceConfigFromEnv()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("activityservice stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ActivityServiceConfig, log *slog.Logger) error {
	clk := platformclock.NewSystemClock()

	var pool *pgxpool.Pool
	if cfg.Storage.Backend == config.StoragePostgres || cfg.IdempotencyBackend == config.StoragePostgres {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	var repo activityrepoport.Repository
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		repo = pgactivityrepo.NewRepo(pool)
	default:
		repo = memactivityrepo.NewRepo()
	}

	var idem idempotencyport.Store
	switch cfg.IdempotencyBackend {
	case config.StoragePostgres:
		idem = pgidempotency.NewStoreWithTTL(pool, cfg.IdempotencyTTL)
	case config.StorageRedis:
		rc, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		idem = redisidempotency.NewStore(rc.Client, redisidempotency.WithTTL(cfg.IdempotencyTTL))
	default:
		idem = memidempotency.NewStoreWithTTL(cfg.IdempotencyTTL, clk)
	}
	log.Info("storage ready", "backend", cfg.Storage.Backend, "idempotency", cfg.IdempotencyBackend)

	var events activityeventsport.Publisher = memactivityevents.Discard{}
	if cfg.Kafka.Enabled() {
		pub, err := kafkaevents.NewPublisher(cfg.Kafka)
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.EnsureTopic(ctx, 1, 1); err != nil {
			log.Warn("could not ensure activity events topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		events = pub
		log.Info("publishing activity events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		log.Info("KAFKA_BROKERS not set, activity events are discarded")
	}

	svc := activities.NewService(repo, events, clk, log)
	svc.Metrics = metrics.NewActivities(prometheus.DefaultRegisterer)
	if cfg.UserServiceURL != nil {
		svc.Users = userclient.New(cfg.UserServiceURL, cfg.UserServiceTimeout)
	}

	handler := httpapi.NewActivityRouter(
		httpapi.NewActivitiesHandler(svc, idem, log),
		httpapi.RouterOptions{Logger: log, MetricsHandler: promhttp.Handler()},
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, handler), cfg.ShutdownTimeout, log)
}
