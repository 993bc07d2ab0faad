package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/vendorbill/internal/observability/logger"
	"github.com/smallbiznis/vendorbill/internal/observability/metrics"
	"github.com/smallbiznis/vendorbill/internal/observability/remotewrite"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		telemetry.NewTracerProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		providePrometheusRegistry,
		telemetry.NewMetrics,
		provideRemoteWriteConfig,
	),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(remotewrite.Register),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

// The default registry already carries the go and process collectors the
// /metrics endpoint is expected to expose.
func providePrometheusRegistry() (prometheus.Registerer, prometheus.Gatherer) {
	return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) telemetry.TracerConfig {
	return telemetry.TracerConfig{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

func provideRemoteWriteConfig(cfg Config) remotewrite.Config {
	return remotewrite.Config{
		Endpoint:  cfg.RemoteWriteEndpoint,
		AuthToken: cfg.RemoteWriteToken,
		Interval:  cfg.RemoteWriteInterval,
		ExtraLabels: map[string]string{
			"service":     cfg.ServiceName,
			"environment": cfg.Environment,
		},
	}
}
