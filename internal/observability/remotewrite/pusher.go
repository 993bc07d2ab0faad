package remotewrite

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	defaultInterval = 15 * time.Second
	pushTimeout     = 5 * time.Second
)

type Config struct {
	Endpoint  string
	AuthToken string
	Interval  time.Duration
	// ExtraLabels are stamped on every series, e.g. service and environment.
	ExtraLabels map[string]string
}

// Pusher ships the registry's counters, gauges and histogram sums to a
// Prometheus remote_write endpoint.
type Pusher struct {
	cfg        Config
	gatherer   prometheus.Gatherer
	log        *zap.Logger
	httpClient *http.Client

	failing atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func New(cfg Config, gatherer prometheus.Gatherer, log *zap.Logger) (*Pusher, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid remote write endpoint: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pusher{
		cfg:        cfg,
		gatherer:   gatherer,
		log:        log.Named("metrics.remote_write"),
		httpClient: &http.Client{
			Timeout:   pushTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Push sends one snapshot of the registry.
func (p *Pusher) Push(ctx context.Context) error {
	families, err := p.gatherer.Gather()
	if err != nil {
		return err
	}
	series := buildSeries(families, p.cfg.ExtraLabels, time.Now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}
	payload, err := proto.Marshal(protoadapt.MessageV2Of(req))
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if token := strings.TrimSpace(p.cfg.AuthToken); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

func (p *Pusher) Start() {
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go func() {
		defer close(p.doneCh)
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.pushOnce()
			case <-p.stopCh:
				p.pushOnce()
				return
			}
		}
	}()
}

// Stop flushes a final snapshot and waits for the loop to exit.
func (p *Pusher) Stop(ctx context.Context) error {
	if p.stopCh == nil {
		return nil
	}
	close(p.stopCh)
	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pushOnce logs the first failure of a streak only.
func (p *Pusher) pushOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := p.Push(ctx); err != nil {
		if p.failing.CompareAndSwap(false, true) {
			p.log.Warn("metrics remote write failed", zap.Error(err))
		}
		return
	}
	if p.failing.CompareAndSwap(true, false) {
		p.log.Info("metrics remote write recovered")
	}
}

func buildSeries(families []*dto.MetricFamily, extra map[string]string, timestampMs int64) []prompb.TimeSeries {
	series := make([]prompb.TimeSeries, 0, len(families))
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, sample := range samplesOf(family, metric) {
				labels := make([]prompb.Label, 0, len(metric.GetLabel())+len(extra)+1)
				labels = append(labels, prompb.Label{Name: "__name__", Value: sample.name})
				for _, label := range metric.GetLabel() {
					labels = append(labels, prompb.Label{Name: label.GetName(), Value: label.GetValue()})
				}
				for name, value := range extra {
					if strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
						continue
					}
					labels = append(labels, prompb.Label{Name: name, Value: value})
				}
				sort.Slice(labels, func(i, j int) bool {
					return labels[i].Name < labels[j].Name
				})

				series = append(series, prompb.TimeSeries{
					Labels:  labels,
					Samples: []prompb.Sample{{Value: sample.value, Timestamp: timestampMs}},
				})
			}
		}
	}
	return series
}

type sample struct {
	name  string
	value float64
}

// samplesOf flattens one metric. Histograms contribute their _sum and
// _count; buckets and summaries are skipped.
func samplesOf(family *dto.MetricFamily, metric *dto.Metric) []sample {
	if metric == nil {
		return nil
	}
	name := family.GetName()
	switch family.GetType() {
	case dto.MetricType_COUNTER:
		if metric.GetCounter() == nil {
			return nil
		}
		return []sample{{name: name, value: metric.GetCounter().GetValue()}}
	case dto.MetricType_GAUGE:
		if metric.GetGauge() == nil {
			return nil
		}
		return []sample{{name: name, value: metric.GetGauge().GetValue()}}
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		if h == nil {
			return nil
		}
		return []sample{
			{name: name + "_sum", value: h.GetSampleSum()},
			{name: name + "_count", value: float64(h.GetSampleCount())},
		}
	default:
		return nil
	}
}
