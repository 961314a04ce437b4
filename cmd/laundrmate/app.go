package main

import (
	"context"
	"io"

	"laundrmate/internal/config"
	"laundrmate/internal/events"
	"laundrmate/internal/export"
	"laundrmate/internal/gateway"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/logging"
	"laundrmate/internal/session"

	"github.com/rs/zerolog"
)

type app struct {
	cfg        *config.Config
	logger     *zerolog.Logger
	out        io.Writer
	session    *session.Store
	client     *gateway.Client
	controller *lifecycle.Controller
	exporter   *export.Exporter
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, out io.Writer) (*app, func(), error) {
	repo, redisClient, cleanup, err := initSessionRepository(ctx, cfg, logging.Component(logger, "session-repo"))
	if err != nil {
		return nil, cleanup, err
	}

	store := session.NewStore(repo, cfg.Session.Key, logging.Component(logger, "session"))
	if _, err := store.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not restore session")
	}

	client := gateway.NewClient(cfg.API, store, logging.Component(logger, "gateway"))
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.API.CacheTTL)
	}

	eventBus := events.NewEventBus()
	controller := lifecycle.NewController(client, store, eventBus, lifecycle.Options{
		AllowReopen:         cfg.ReopenAllowed(),
		SerializePerBooking: cfg.SerializePerBooking(),
		RefetchTimeout:      cfg.API.Timeout,
	}, logging.Component(logger, "lifecycle"))

	a := &app{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		session:    store,
		client:     client,
		controller: controller,
		exporter:   export.NewExporter(cfg.Exports.Path, logging.Component(logger, "export")),
	}
	return a, cleanup, nil
}
