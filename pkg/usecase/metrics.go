package usecase

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "kizuna"

// PreloadMetrics counts preload runs. A nil *PreloadMetrics records nothing.
type PreloadMetrics struct {
	runs          prometheus.Counter
	skipped       *prometheus.CounterVec
	watchdogFired prometheus.Counter
	fetchFailures *prometheus.CounterVec
	duration      prometheus.Histogram
}

func NewPreloadMetrics(reg prometheus.Registerer) (*PreloadMetrics, error) {
	m := &PreloadMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "preload",
			Name:      "runs_total",
			Help:      "Number of preload runs started",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "preload",
			Name:      "skipped_total",
			Help:      "Number of preload requests skipped, by reason",
		}, []string{"reason"}),
		watchdogFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "preload",
			Name:      "watchdog_fired_total",
			Help:      "Number of runs whose lock was released by the watchdog",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "preload",
			Name:      "fetch_failures_total",
			Help:      "Number of failed resource fetches, by resource kind",
		}, []string{"resource"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "preload",
			Name:      "duration_seconds",
			Help:      "Wall time of completed preload runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.skipped, m.watchdogFired, m.fetchFailures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, goerr.Wrap(err, "failed to register preload metric")
		}
	}
	return m, nil
}

func (m *PreloadMetrics) runStarted() {
	if m != nil {
		m.runs.Inc()
	}
}

func (m *PreloadMetrics) runSkipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *PreloadMetrics) watchdog() {
	if m != nil {
		m.watchdogFired.Inc()
	}
}

func (m *PreloadMetrics) fetchFailed(resource string) {
	if m != nil {
		m.fetchFailures.WithLabelValues(resource).Inc()
	}
}

func (m *PreloadMetrics) observeDuration(seconds float64) {
	if m != nil {
		m.duration.Observe(seconds)
	}
}

// WatchdogFired returns the watchdog counter
func (m *PreloadMetrics) WatchdogFired() prometheus.Counter {
	return m.watchdogFired
}

// FetchFailures returns the failure counter of one resource kind
func (m *PreloadMetrics) FetchFailures(resource string) prometheus.Counter {
	return m.fetchFailures.WithLabelValues(resource)
}
