package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	taxEvaluations      metric.Int64Counter
	documentTransitions metric.Int64Counter
	numbersAllocated    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "vendorbill"
	}
	meter := provider.Meter(name)

	taxEvaluations, err := meter.Int64Counter("vendorbill_tax_evaluations")
	if err != nil {
		return nil, err
	}
	documentTransitions, err := meter.Int64Counter("vendorbill_document_transitions")
	if err != nil {
		return nil, err
	}
	numbersAllocated, err := meter.Int64Counter("vendorbill_document_numbers_allocated")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		taxEvaluations:      taxEvaluations,
		documentTransitions: documentTransitions,
		numbersAllocated:    numbersAllocated,
	}, nil
}

// RecordTaxEvaluation counts tax resolutions per service type and outcome.
func (m *Metrics) RecordTaxEvaluation(ctx context.Context, serviceType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("service_type", strings.TrimSpace(serviceType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.taxEvaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDocumentTransition(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_kind", strings.TrimSpace(kind)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.documentTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNumberAllocated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("document_kind", strings.TrimSpace(kind)))
	m.numbersAllocated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"service_type":  {},
	"outcome":       {},
	"document_kind": {},
	"status":        {},
	"status_code":   {},
	"endpoint":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
