// Package metrics exposes Prometheus counters for thread resolution, assistant
// runs and replies, plus a small admin HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wassistant/internal/assistant"
	"wassistant/internal/chat"
)

// Metrics owns a private registry so tests and multiple gateways do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	resolutions  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	pollAttempts prometheus.Histogram
	replies      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wassistant_thread_resolutions_total",
			Help: "Thread lookups by outcome (created or reused).",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wassistant_runs_total",
			Help: "Assistant runs by final observed status.",
		}, []string{"status"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wassistant_run_poll_attempts",
			Help:    "Status polls needed per run.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 240},
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wassistant_replies_total",
			Help: "Finished turns by path (text or image) and outcome (ok or failure kind).",
		}, []string{"path", "outcome"}),
	}
	m.registry.MustRegister(
		m.resolutions,
		m.runs,
		m.pollAttempts,
		m.replies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ThreadResolved implements assistant.Observer.
func (m *Metrics) ThreadResolved(created bool) {
	outcome := "reused"
	if created {
		outcome = "created"
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// RunFinished implements assistant.Observer.
func (m *Metrics) RunFinished(status assistant.RunStatus, pollAttempts int) {
	m.runs.WithLabelValues(string(status)).Inc()
	m.pollAttempts.Observe(float64(pollAttempts))
}

// ReplyFinished implements chat.ReplyObserver.
func (m *Metrics) ReplyFinished(path chat.Path, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(chat.KindOf(err))
	}
	m.replies.WithLabelValues(string(path), outcome).Inc()
}

var (
	_ assistant.Observer = (*Metrics)(nil)
	_ chat.ReplyObserver = (*Metrics)(nil)
)
