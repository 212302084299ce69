// Package app wires the daemon: config, store, feed, realtime core, inbox,
// and the two HTTP listeners.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"parishd/internal/domain"
	"parishd/internal/infra/config"
	"parishd/internal/infra/feed"
	"parishd/internal/infra/httpapi"
	"parishd/internal/infra/inbox"
	"parishd/internal/infra/realtime"
	"parishd/internal/infra/store"
	"parishd/internal/infra/telemetry"
)

// App is the daemon entry point behind the CLI.
type App struct {
	logger *zap.Logger
}

// ServeConfig carries the serve command's options.
type ServeConfig struct {
	ConfigPath string
}

// ValidateOptions carries the validate command's options.
type ValidateOptions struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	return &App{logger: logger.Named("app")}
}

// Serve runs the daemon until the context is canceled.
func (a *App) Serve(ctx context.Context, serveCfg ServeConfig) error {
	cfg, err := config.NewLoader(a.logger).Load(serveCfg.ConfigPath)
	if err != nil {
		return err
	}
	a.logger.Info("configuration loaded",
		zap.String("config", serveCfg.ConfigPath),
		zap.Strings("branches", cfg.Branches),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := realtime.NewMetrics(registry)

	hub := feed.NewHub(a.logger, cfg.Realtime.FeedBuffer)

	rowStore, err := store.Open(cfg.Database.Path, hub, a.logger)
	if err != nil {
		return err
	}
	defer rowStore.Close()

	inboxStore, err := inbox.Open(cfg.Inbox.Path, a.logger)
	if err != nil {
		return err
	}
	defer inboxStore.Close()

	transport := httpapi.NewSSETransport(a.logger, cfg.Realtime.StreamBuffer)

	svc := realtime.New(realtime.Options{
		Transport:   transport,
		Feed:        hub,
		StatsReader: rowStore,
		Logger:      a.logger,
		Metrics:     metrics,
		Branches:    cfg.Branches,
		Heartbeat:   cfg.Realtime.HeartbeatInterval(),
		OnDeliver:   inboxStore.Append,
	})

	// Listeners attach before the first event can flow.
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()
	hub.Start()
	defer hub.Stop()

	obsDone := make(chan error, 1)
	go func() {
		obsDone <- startObservability(ctx, cfg.Observability, registry, a.logger)
	}()

	apiServer := httpapi.NewServer(svc, transport, rowStore, inboxStore, a.logger)
	if err := apiServer.Serve(ctx, cfg.HTTP.ListenAddress); err != nil {
		return err
	}
	return <-obsDone
}

// Validate loads the config, echoes the normalized result, and exits.
func (a *App) Validate(opts ValidateOptions) error {
	cfg, err := config.NewLoader(a.logger).Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	rendered, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	a.logger.Info("configuration valid",
		zap.String("config", opts.ConfigPath),
		zap.String("effective", string(rendered)),
	)
	return nil
}

func startObservability(ctx context.Context, cfg domain.ObservabilityConfig, registry *prometheus.Registry, logger *zap.Logger) error {
	return telemetry.StartServer(ctx, telemetry.ServerOptions{
		Addr:          cfg.ListenAddress,
		EnableMetrics: cfg.MetricsEnabled,
		EnableHealthz: cfg.HealthzEnabled,
		Registry:      registry,
	}, logger)
}
