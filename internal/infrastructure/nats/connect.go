package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/trngon/payment/internal/infrastructure/config"
	"github.com/trngon/payment/pkg/retry"
)

// Connect dials the broker, retrying the initial connection with backoff.
// Once connected, reconnects are left to the client library.
func Connect(ctx context.Context, cfg config.EventsConfig, logger zerolog.Logger) (*nats.Conn, error) {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = uint(max(cfg.ConnectAttempts, 1))
	if cfg.ReconnectWait > 0 {
		rc.InitialDelay = cfg.ReconnectWait
	}
	rc.OnRetry = func(attempt uint, err error) {
		logger.Warn().Err(err).Uint("attempt", attempt).Str("url", cfg.NATSURL).Msg("NATS connect failed")
	}

	nc, err := retry.DoWithResult(ctx, rc, func() (*nats.Conn, error) {
		return nats.Connect(cfg.NATSURL, connectOptions(cfg, logger)...)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func connectOptions(cfg config.EventsConfig, logger zerolog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name("payment-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS connection closed")
		}),
	}
}
