package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/trngon/payment/internal/infrastructure/config"
	natsinfra "github.com/trngon/payment/internal/infrastructure/nats"
	"github.com/trngon/payment/internal/infrastructure/observability"
	"github.com/trngon/payment/internal/providers"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Gateways *providers.Factory
	NATS     *nats.Conn

	tracer *sdktrace.TracerProvider
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewFromConfig(ctx, cfg, serviceName, metricsNamespace)
}

// NewFromConfig wires the application around an already loaded config.
func NewFromConfig(ctx context.Context, cfg *config.Config, serviceName string, metricsNamespace string) (*App, error) {
	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout).
		With().Str("instance_id", cfg.InstanceID).Logger()
	logger.Info().Str("service", serviceName).Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	app.Registry = prometheus.NewRegistry()
	if cfg.Observability.EnableMetrics {
		app.Metrics = observability.NewMetrics(metricsNamespace, app.Registry)
		logger.Info().Msg("Metrics initialized")
	}

	gateways, err := providers.NewFactoryFromConfig(cfg.Gateways, providers.BuildOptions{
		Logger:  logger,
		Metrics: app.Metrics,
	})
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("build gateways: %w", err)
	}
	app.Gateways = gateways
	logger.Info().Strs("gateways", gateways.Names()).Msg("Gateways configured")

	if cfg.Events.Enabled {
		nc, err := natsinfra.Connect(ctx, cfg.Events, logger)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		app.NATS = nc

		var recorder natsinfra.EventRecorder
		if app.Metrics != nil {
			recorder = app.Metrics
		}
		publisher := natsinfra.NewCheckoutPublisher(nc, cfg.Events.SubjectPrefix, logger, recorder)
		gateways.Each(publisher.Attach)
		logger.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	}

	return app, nil
}

// Close drains NATS and flushes pending spans.
func (a *App) Close(ctx context.Context) {
	if a.NATS != nil {
		if err := a.NATS.Drain(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to drain NATS connection")
		}
	}
	observability.Shutdown(ctx, a.tracer)
}
