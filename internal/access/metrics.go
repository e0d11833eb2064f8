package access

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics считает решения о доступе по политике и исходу
// и время вычисления цепочки.
type Metrics struct {
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gymly",
				Subsystem: "access",
				Name:      "decisions_total",
				Help:      "Total number of access decisions by policy and outcome",
			},
			[]string{"policy", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gymly",
				Subsystem: "access",
				Name:      "evaluation_duration_seconds",
				Help:      "Access pipeline evaluation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"policy"},
		),
	}
	reg.MustRegister(m.decisions, m.duration)
	return m
}

func (m *Metrics) record(policy string, d Decision, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = d.Failure.String()
	}
	m.decisions.WithLabelValues(policy, outcome).Inc()
	m.duration.WithLabelValues(policy).Observe(elapsed.Seconds())
}
