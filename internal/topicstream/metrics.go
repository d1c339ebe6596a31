package topicstream

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	deliveredTotal prometheus.Counter
	duplicateTotal prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_topic_records_delivered_total",
			Help: "Topic records inserted into the local log.",
		}),
		duplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_topic_records_duplicate_total",
			Help: "Topic records suppressed as duplicate sequence numbers.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.deliveredTotal, m.duplicateTotal)
	}
	return m
}

func (m *Metrics) delivered() {
	if m != nil {
		m.deliveredTotal.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.duplicateTotal.Inc()
	}
}
