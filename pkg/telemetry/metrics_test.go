package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetrics_ObserveAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveAPIRequest("POST", "/api/v1/taxes/calculate", "200", 15*time.Millisecond)
	m.ObserveAPIRequest("POST", "/api/v1/taxes/calculate", "200", 5*time.Millisecond)

	mf := findMetric(t, reg, "vendorbill_api_requests_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, float64(2), mf.GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, "/api/v1/taxes/calculate", labelValue(mf.GetMetric()[0], "route"))

	hist := findMetric(t, reg, "vendorbill_api_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_EmptyLabelsAreSanitized(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTaxEvaluation("")
	m.ObserveNumberAllocated("invoice")
	m.ObserveDocument("quotation", "FINALIZED")
	m.ObserveDocumentTotal("quotation", "BTN", 1250)

	mf := findMetric(t, reg, "vendorbill_tax_evaluations_total")
	require.NotNil(t, mf)
	assert.Equal(t, "unknown", labelValue(mf.GetMetric()[0], "outcome"))

	mf = findMetric(t, reg, "vendorbill_document_numbers_allocated_total")
	require.NotNil(t, mf)
	assert.Equal(t, float64(1), mf.GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPIRequest("GET", "/health", "200", time.Millisecond)
		m.ObserveDocument("invoice", "VOID")
		m.ObserveTaxEvaluation("taxed")
	})
}
