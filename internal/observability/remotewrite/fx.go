package remotewrite

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Register starts a pusher when an endpoint is configured. A bad endpoint
// disables remote write and never blocks startup.
func Register(lc fx.Lifecycle, cfg Config, gatherer prometheus.Gatherer, log *zap.Logger) {
	if cfg.Endpoint == "" {
		return
	}

	pusher, err := New(cfg, gatherer, log)
	if err != nil {
		log.Warn("metrics remote write disabled", zap.Error(err))
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("metrics remote write enabled",
				zap.String("endpoint", cfg.Endpoint),
				zap.Duration("interval", pusher.cfg.Interval),
			)
			pusher.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return pusher.Stop(ctx)
		},
	})
}
