package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAdapterMetrics(reg)

	m.ObserveOperation("supply", "", false, 10*time.Millisecond)
	m.ObserveOperation("repay", "", true, time.Millisecond)
	m.ObserveOperation("repay", "no_outstanding_debt", false, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("supply", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("repay", "reverted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("repay", "no_outstanding_debt")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refunds.WithLabelValues("repay")))
}

func TestObserveCommitSetsHeight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAdapterMetrics(reg)
	m.ObserveCommit(42, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	var gauge *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "venus_ledger_block_height" {
			gauge = f
		}
	}
	require.NotNil(t, gauge)
	require.Equal(t, 42.0, gauge.GetMetric()[0].GetGauge().GetValue())
}

func TestRequestAndThrottleLabels(t *testing.T) {
	m := NewAdapterMetrics(prometheus.NewRegistry())
	m.ObserveRequest("", 404)
	m.RecordThrottle("")
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.throttles.WithLabelValues("unspecified")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *AdapterMetrics
	m.ObserveOperation("supply", "", false, 0)
	m.ObserveRequest("/v1/supply", 200)
	m.RecordThrottle("rate_limit")
	m.ObserveCommit(1, 0)
}
