package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/auditsink/rabbitmq"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/internal/observability"
	"github.com/MrEthical07/goSession/internal/security"
	"github.com/MrEthical07/goSession/internal/settings"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/store/memstore"
	"github.com/MrEthical07/goSession/store/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		configPath  string
		autoMigrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), s, autoMigrate)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json, toml or env)")
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func serve(parent context.Context, s *settings.Settings, autoMigrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(os.Stderr, s.LogLevel, s.LogFormat)
	slog.SetDefault(logger)

	if err := observability.InitSentry(s.SentryDSN, s.AppEnv, version); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer observability.FlushSentry()

	// -------- REDIS --------
	redisOpts, err := redis.ParseURL(s.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	// -------- CREDENTIAL STORE + AUDIT SINKS --------
	var (
		store goSession.CredentialStore
		sinks []goSession.AuditSink
	)
	switch s.StoreDriver {
	case settings.StoreDriverPostgres:
		if autoMigrate {
			if err := postgres.Migrate(s.DatabaseURL, "up"); err != nil {
				return err
			}
		}
		pool, err := postgres.Connect(ctx, s.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		sinks = append(sinks, postgres.NewAuditSink(pool, logger))
	default:
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		store = memstore.New()
		sinks = append(sinks, goSession.NewJSONWriterSink(os.Stdout))
	}

	publisher := newPublisher(s.AMQPURL, logger)
	defer publisher.Close()
	sinks = append(sinks, rabbitmq.NewSink(publisher, s.AuditExchange, logger))

	// -------- ENGINE --------
	engine, err := goSession.New().
		WithConfig(s.EngineConfig()).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithAuditSink(goSession.NewMultiSink(sinks...)).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	security.BuildReport(engine.Config(), s.Production(), s.CookieSecure).Log(logger)

	if s.OTelMetricsInterval > 0 {
		stopOTel, err := startOTelMetrics(engine, s.OTelMetricsInterval, os.Stderr)
		if err != nil {
			return fmt.Errorf("start otel metrics: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stopOTel(flushCtx); err != nil {
				logger.Warn("otel metrics shutdown failed", "error", err)
			}
		}()
		logger.Info("otel metrics export enabled", "interval", s.OTelMetricsInterval)
	}

	metricsHandler, err := promexport.Handler(engine)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var reporter observability.Reporter = observability.NopReporter{}
	if s.SentryDSN != "" {
		reporter = observability.SentryReporter{}
	}

	server := &http.Server{
		Addr: s.HTTPAddr,
		Handler: httpapi.NewRouter(engine, httpapi.Options{
			CookieInsecure: !s.CookieSecure,
			CookieDomain:   s.CookieDomain,
			AllowedOrigins: s.CORSAllowedOrigins,
			Logger:         logger,
			Reporter:       reporter,
			MetricsHandler: metricsHandler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sessiond listening", "addr", s.HTTPAddr, "env", s.AppEnv, "store", s.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newPublisher connects to RabbitMQ when configured and falls back to a
// logging publisher otherwise, so a broker outage never blocks startup.
func newPublisher(amqpURL string, logger *slog.Logger) rabbitmq.Publisher {
	if amqpURL == "" {
		return &rabbitmq.Fallback{Logger: logger}
	}
	producer, err := rabbitmq.NewEventProducer(amqpURL)
	if err != nil {
		logger.Warn("rabbitmq unavailable, audit events will not be published", "error", err)
		return &rabbitmq.Fallback{Logger: logger}
	}
	logger.Info("rabbitmq producer connected")
	return producer
}
