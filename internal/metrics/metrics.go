// Package metrics exposes Prometheus counters for the chore engine. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PathRotating = "rotating"
	PathSingle   = "single"

	RedeemOK           = "ok"
	RedeemInsufficient = "insufficient"
	RedeemRolledBack   = "rolled_back"
)

type Metrics struct {
	registry        *prometheus.Registry
	taskCompletions *prometheus.CounterVec
	taskRotations   prometheus.Counter
	tokensAwarded   prometheus.Counter
	redemptions     *prometheus.CounterVec
	activityEntries *prometheus.CounterVec
}

// New registers the counters on a fresh registry along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		taskCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorewheel_task_completions_total",
			Help: "Task completions by completion path.",
		}, []string{"path"}),
		taskRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorewheel_task_rotations_total",
			Help: "Rotation index advances.",
		}),
		tokensAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorewheel_tokens_awarded_total",
			Help: "Tokens credited for task completions.",
		}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorewheel_redemptions_total",
			Help: "Reward redemption attempts by result.",
		}, []string{"result"}),
		activityEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorewheel_activity_entries_total",
			Help: "Activity entries recorded by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(
		m.taskCompletions,
		m.taskRotations,
		m.tokensAwarded,
		m.redemptions,
		m.activityEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) TaskCompleted(path string) {
	if m == nil {
		return
	}
	m.taskCompletions.WithLabelValues(path).Inc()
}

func (m *Metrics) TaskRotated() {
	if m == nil {
		return
	}
	m.taskRotations.Inc()
}

func (m *Metrics) TokensAwarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensAwarded.Add(float64(n))
}

func (m *Metrics) Redemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) ActivityRecorded(action string) {
	if m == nil {
		return
	}
	m.activityEntries.WithLabelValues(action).Inc()
}

// Registry returns the registry backing the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
