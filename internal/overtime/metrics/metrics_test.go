package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.IncrementSubmitted("ACM", 4)
	m.IncrementTransition("approved")
	m.IncrementEvidence("start", "inside")
	m.ObserveOperation("submit", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsSubmitted.WithLabelValues("ACM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvidenceRecorded.WithLabelValues("start", "inside")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmitted("ACM", 1)
		m.IncrementTransition("approved")
		m.IncrementEvidence("end", "none")
		m.ObserveOperation("get", time.Now())
	})
}
