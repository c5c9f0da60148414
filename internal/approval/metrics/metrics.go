package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval token authority.
// Tracks issuance, redemption outcomes, and critical section duration.
type Metrics struct {
	TokensIssued     prometheus.Counter
	RedeemOutcomes   *prometheus.CounterVec
	RedeemDuration   prometheus.Histogram
	ConsumeNoopTotal prometheus.Counter
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the approval metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "otapproval_approval_tokens_issued_total",
			Help: "Total number of approval tokens minted",
		}),
		RedeemOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otapproval_approval_token_redemptions_total",
			Help: "Approval token redemptions by action and outcome code",
		}, []string{"action", "outcome"}),
		RedeemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "otapproval_approval_token_redeem_duration_seconds",
			Help:    "Time spent inside the per-token critical section",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ConsumeNoopTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "otapproval_approval_token_consume_noop_total",
			Help: "Consume calls for unknown or already used tokens",
		}),
	}
}

// AddTokensIssued records minted tokens.
func (m *Metrics) AddTokensIssued(n int) {
	if m == nil {
		return
	}
	m.TokensIssued.Add(float64(n))
}

// ObserveRedeem records the outcome and duration of a redemption.
// Call with time.Now() taken before the critical section is entered.
func (m *Metrics) ObserveRedeem(action, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.RedeemOutcomes.WithLabelValues(action, outcome).Inc()
	m.RedeemDuration.Observe(time.Since(start).Seconds())
}

// IncrementConsumeNoop records a consume that changed nothing.
func (m *Metrics) IncrementConsumeNoop() {
	if m == nil {
		return
	}
	m.ConsumeNoopTotal.Inc()
}
