package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/config"
	"github.com/chmc/wbms-api/internal/email"
	"github.com/chmc/wbms-api/internal/repository/postgres"
	"github.com/chmc/wbms-api/internal/service/notification"
	"github.com/chmc/wbms-api/internal/telemetry"
	"github.com/chmc/wbms-api/pkg/logger"
	"github.com/chmc/wbms-api/pkg/messaging"
	"github.com/chmc/wbms-api/pkg/messaging/redis"
	"github.com/chmc/wbms-api/pkg/metrics"
	"github.com/chmc/wbms-api/pkg/worker"
)

type check func(ctx context.Context) error

func healthServer(addr string, registry *prometheus.Registry, ready map[string]check) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, fn := range ready {
			if err := fn(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func mailer(cfg config.SMTPConfig) email.Service {
	if !cfg.Enabled {
		log.Warn().Msg("SMTP disabled, notifications are only logged")
		return email.NewLogService()
	}
	return email.NewSMTPService(email.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	l := logger.New(cfg.Log).WithFields(map[string]interface{}{"component": "outbox-worker"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		l.Fatal(err, "Failed to initialise telemetry")
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		l.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	store := postgres.NewStore(db, cfg.Documents.FileNumbering)
	repos := store.Repos()

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis, l.ZL)
	if err != nil {
		l.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "wbms", "worker")

	processor, err := worker.NewOutboxProcessor(store, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Outbox.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxRetries:    cfg.Outbox.MaxRetries,
	}, l, m)
	if err != nil {
		l.Fatal(err, "Invalid outbox configuration")
	}
	cleanup := worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, l, m)
	notifier := notification.NewService(repos.Accounts, mailer(cfg.SMTP), m)

	srv := healthServer(cfg.Outbox.HealthAddr, registry, map[string]check{
		"database": store.Ping,
		"redis":    broker.Ping,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "Health check server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := messaging.Consume(ctx, broker, cfg.Outbox.Channel, notifier.Handle); err != nil && !errors.Is(err, context.Canceled) {
			l.Error(err, "Notification consumer stopped")
		}
	}()

	l.Info("Worker started", "channel", cfg.Outbox.Channel, "health_addr", cfg.Outbox.HealthAddr)
	<-ctx.Done()
	l.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(err, "Health server forced to shutdown")
	}
	wg.Wait()
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		l.Error(err, "Failed to flush traces")
	}
}
