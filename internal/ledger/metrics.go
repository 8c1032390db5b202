package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics exports payment outcomes to prometheus
type PaymentMetrics struct {
	recorded  *prometheus.CounterVec
	collected *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewPaymentMetrics registers the payment collectors with reg
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)
	return &PaymentMetrics{
		recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feeledger_payments_recorded_total",
			Help: "Accepted payments by method",
		}, []string{"method"}),
		collected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feeledger_payments_amount_minor_total",
			Help: "Accepted payment amounts in minor currency units by method",
		}, []string{"method"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feeledger_payments_rejected_total",
			Help: "Rejected payments by error code",
		}, []string{"code"}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "feeledger_payment_version_conflicts_total",
			Help: "Optimistic version conflicts while recording payments",
		}),
	}
}

// PaymentRecorded counts an accepted payment
func (m *PaymentMetrics) PaymentRecorded(method PaymentMethod, amount int64) {
	m.recorded.WithLabelValues(string(method)).Inc()
	m.collected.WithLabelValues(string(method)).Add(float64(amount))
}

// PaymentRejected counts a rejected payment
func (m *PaymentMetrics) PaymentRejected(code string) {
	m.rejected.WithLabelValues(code).Inc()
}

// PaymentConflict counts a retried version conflict
func (m *PaymentMetrics) PaymentConflict() {
	m.conflicts.Inc()
}
