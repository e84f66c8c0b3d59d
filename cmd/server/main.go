package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/internal/server"
	"github.com/iota-uz/ledgerdesk/modules"
	companyhandlers "github.com/iota-uz/ledgerdesk/modules/companies/handlers"
	reminderservices "github.com/iota-uz/ledgerdesk/modules/reminders/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
	"github.com/iota-uz/ledgerdesk/pkg/logging"
	"github.com/iota-uz/ledgerdesk/pkg/metrics"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

const importDrainTimeout = 30 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Redis:    connectRedis(connectCtx, conf.RedisURL, logger),
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	store := storage.New(conf.Supabase.URL, conf.Supabase.ServiceKey, conf.Supabase.LocalPath)
	if err := modules.Load(app, modules.BuiltInModules(store)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	startBackground(ctx, conf, app, logger)

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	drainImports(app, logger)
}

// drainImports gives imports started by uploads a bounded time to finish.
func drainImports(app application.Application, logger *logrus.Logger) {
	imports := app.Service(companyhandlers.StorageEventsHandler{}).(*companyhandlers.StorageEventsHandler)
	ctx, cancel := context.WithTimeout(context.Background(), importDrainTimeout)
	defer cancel()
	if err := imports.Wait(ctx); err != nil {
		logger.WithError(err).Warn("companies: imports still running at shutdown")
	}
}

// connectRedis returns nil when no Redis is configured or it cannot be
// reached; caches and replay protection then fall back to memory.
func connectRedis(ctx context.Context, addr string, logger *logrus.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, using in-memory caches")
		_ = client.Close()
		return nil
	}
	return client
}

func startBackground(ctx context.Context, conf *configuration.Configuration, app application.Application, logger *logrus.Logger) {
	log := logger.WithField("component", "reminders")
	if !conf.Reminders.DispatcherEnabled {
		log.Info("reminders: dispatcher disabled")
		return
	}
	dispatcher := app.Service(reminderservices.Dispatcher{}).(*reminderservices.Dispatcher)
	cleaner := app.Service(reminderservices.Cleaner{}).(*reminderservices.Cleaner)

	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("reminders: dispatcher stopped")
		}
	}()
	go func() {
		if err := cleaner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("reminders: cleaner stopped")
		}
	}()
}
