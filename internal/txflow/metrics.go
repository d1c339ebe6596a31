package txflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	submissionsTotal *prometheus.CounterVec
	successTotal     *prometheus.CounterVec
	failureTotal     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_tx_submissions_total",
			Help: "Transaction pipeline runs by operation kind.",
		}, []string{"kind"}),
		successTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_tx_success_total",
			Help: "Transactions classified successful by operation kind.",
		}, []string{"kind"}),
		failureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_tx_failure_total",
			Help: "Transactions classified failed by operation kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.submissionsTotal, m.successTotal, m.failureTotal)
	}
	return m
}

func (m *Metrics) submissions(kind string) {
	if m != nil {
		m.submissionsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) success(kind string) {
	if m != nil {
		m.successTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) failure(kind string) {
	if m != nil {
		m.failureTotal.WithLabelValues(kind).Inc()
	}
}
