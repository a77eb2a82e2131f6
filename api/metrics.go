package api

import (
	"time"

	"github.com/GlintPay/defcheck/lint"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "defcheck"

// Metrics counts lint runs and the diagnostics they produce
type Metrics struct {
	runs        *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	duration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lint_runs_total",
			Help:      "Definitions linted, by result: clean, diagnostics or error",
		}, []string{"result"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by rule",
		}, []string{"rule_id"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "lint_duration_seconds",
			Help:      "Time taken to load and check one definition",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.diagnostics, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe is a no-op on a nil receiver, so routes work without metrics
func (m *Metrics) observe(result *lint.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.duration.Observe(elapsed.Seconds())

	switch {
	case err != nil:
		m.runs.WithLabelValues("error").Inc()
	case len(result.Diagnostics) > 0:
		m.runs.WithLabelValues("diagnostics").Inc()
	default:
		m.runs.WithLabelValues("clean").Inc()
	}

	if result == nil {
		return
	}
	for _, d := range result.Diagnostics {
		m.diagnostics.WithLabelValues(d.RuleID).Inc()
	}
}
