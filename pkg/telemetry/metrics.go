package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the billing API.
type Metrics struct {
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	documents        *prometheus.CounterVec
	documentTotal    *prometheus.HistogramVec
	taxEvaluations   *prometheus.CounterVec
	numberAllocation *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorbill_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendorbill_api_duration_seconds",
		Help:    "API request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorbill_documents_total",
		Help: "Document lifecycle transitions by kind and status.",
	}, []string{"kind", "status"})

	documentTotal := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendorbill_document_total_amount",
		Help:    "Finalized document total distribution.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
	}, []string{"kind", "currency"})

	taxEvaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorbill_tax_evaluations_total",
		Help: "Tax evaluations by outcome (taxed, untaxed, exempted).",
	}, []string{"outcome"})

	numberAllocation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorbill_document_numbers_allocated_total",
		Help: "Document numbers allocated by kind.",
	}, []string{"kind"})

	reg.MustRegister(
		apiRequests,
		apiDuration,
		documents,
		documentTotal,
		taxEvaluations,
		numberAllocation,
	)

	return &Metrics{
		apiRequests:      apiRequests,
		apiDuration:      apiDuration,
		documents:        documents,
		documentTotal:    documentTotal,
		taxEvaluations:   taxEvaluations,
		numberAllocation: numberAllocation,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, sanitizeLabel(status)).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// ObserveDocument records a document transition.
func (m *Metrics) ObserveDocument(kind, status string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(sanitizeLabel(kind), sanitizeLabel(status)).Inc()
}

// ObserveDocumentTotal records the total of a finalized document.
func (m *Metrics) ObserveDocumentTotal(kind, currency string, amount float64) {
	if m == nil {
		return
	}
	m.documentTotal.WithLabelValues(sanitizeLabel(kind), sanitizeLabel(currency)).Observe(amount)
}

// ObserveTaxEvaluation counts a tax engine run by outcome.
func (m *Metrics) ObserveTaxEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.taxEvaluations.WithLabelValues(sanitizeLabel(outcome)).Inc()
}

// ObserveNumberAllocated counts an allocated document number.
func (m *Metrics) ObserveNumberAllocated(kind string) {
	if m == nil {
		return
	}
	m.numberAllocation.WithLabelValues(sanitizeLabel(kind)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
