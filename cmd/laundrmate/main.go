package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"laundrmate/internal/config"
	"laundrmate/internal/domain"
	"laundrmate/internal/logging"
	"laundrmate/internal/metrics"
	"laundrmate/internal/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("%s", describe(err))
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	a, cleanup, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.dispatch(ctx, args[0], args[1:])
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, baseLogger, closer, nil
}

// initSessionRepository builds the configured session backend. The returned
// func releases its connections.
func initSessionRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.SessionRepository, *redis.Client, func(), error) {
	noop := func() {}

	switch cfg.Session.Backend {
	case "memory":
		return repository.NewMemorySessionRepository(cfg.Session.TTL), nil, noop, nil

	case "sqlite":
		repo, err := repository.NewSQLiteSessionRepository(cfg.Session.Path, cfg.Session.TTL)
		if err != nil {
			return nil, nil, noop, err
		}
		return repo, nil, func() { _ = repo.Close() }, nil

	case "redis":
		client := repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, client); err != nil {
			_ = client.Close()
			return nil, nil, noop, fmt.Errorf("redis session backend: %w", err)
		}
		return repository.NewRedisSessionRepository(client, cfg.Session.TTL), client, func() { _ = repository.Close(client) }, nil

	case "failover":
		fallback, err := repository.NewSQLiteSessionRepository(cfg.Session.Path, cfg.Session.TTL)
		if err != nil {
			return nil, nil, noop, err
		}
		client := repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, session falls back to sqlite")
		}
		primary := repository.NewRedisSessionRepository(client, cfg.Session.TTL)
		cleanup := func() {
			_ = client.Close()
			_ = fallback.Close()
		}
		return repository.NewFailoverSessionRepository(primary, fallback, logger), client, cleanup, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("metrics server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
