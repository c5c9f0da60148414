package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the OT request lifecycle.
type Metrics struct {
	// Submissions by company code
	RequestsSubmitted *prometheus.CounterVec

	// Status transitions by target status
	StatusTransitions *prometheus.CounterVec

	// Evidence records by type and geofence outcome
	EvidenceRecorded *prometheus.CounterVec

	// Requested overtime hours
	RequestedHours prometheus.Histogram

	// Lifecycle operation latency by operation
	OperationLatency *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the lifecycle metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otapproval_requests_submitted_total",
			Help: "Total OT requests submitted by company code",
		}, []string{"company"}),

		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otapproval_request_status_transitions_total",
			Help: "Total OT request status transitions by target status",
		}, []string{"status"}),

		EvidenceRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otapproval_evidence_recorded_total",
			Help: "Evidence records by capture type and geofence outcome",
		}, []string{"type", "geofence"}), // geofence: "inside", "outside", "none"

		RequestedHours: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "otapproval_requested_hours",
			Help:    "Distribution of computed overtime hours per request",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 6, 8, 12, 16, 24},
		}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "otapproval_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle controller operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"operation"}),
	}
}

// IncrementSubmitted records a created request.
func (m *Metrics) IncrementSubmitted(companyCode string, hours float64) {
	if m != nil {
		m.RequestsSubmitted.WithLabelValues(companyCode).Inc()
		m.RequestedHours.Observe(hours)
	}
}

// IncrementTransition records a status change.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(status).Inc()
	}
}

// IncrementEvidence records an assembled evidence record.
func (m *Metrics) IncrementEvidence(evidenceType, geofence string) {
	if m != nil {
		m.EvidenceRecorded.WithLabelValues(evidenceType, geofence).Inc()
	}
}

// ObserveOperation records the latency of a lifecycle operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
