package supervisor

import "github.com/prometheus/client_golang/prometheus"

// metrics exposes commit lifecycle counters on the same registry the
// server already runs gRPC interceptor metrics on: commits started,
// commits finished by outcome, and one in-flight gauge (not broken down
// by state).
type metrics struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "supervisor",
			Name:      "commits_started_total",
			Help:      "Total number of commits started on this cell.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "supervisor",
			Name:      "commits_finished_total",
			Help:      "Total number of commits finished on this cell, by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hive",
			Subsystem: "supervisor",
			Name:      "commits_in_flight",
			Help:      "Number of commits currently tracked by this cell's registry.",
		}),
	}
}

// MustRegister registers every metric with reg, matching the style
// estuary-flow uses to wire per-component metrics into a single process
// registry at startup.
func (m *metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.started, m.finished, m.inFlight)
}
