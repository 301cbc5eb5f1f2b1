package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run counters. It uses its own registry so a run can
// be written to a node-exporter textfile without global state.
type Metrics struct {
	Registry *prometheus.Registry

	StepsTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	RetryAttempts *prometheus.CounterVec
	HookFailures  *prometheus.CounterVec
	Scenarios     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terminal_bdd_steps_total",
			Help: "Steps executed, by result.",
		},
		[]string{"result"},
	)
	m.StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "terminal_bdd_step_duration_seconds",
			Help:    "Duration of step execution in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"result"},
	)
	m.RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terminal_bdd_retry_attempts_total",
			Help: "Unsuccessful attempts inside bounded retry loops.",
		},
		[]string{"loop"},
	)
	m.HookFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terminal_bdd_hook_failures_total",
			Help: "Environment hook failures.",
		},
		[]string{"hook"},
	)
	m.Scenarios = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terminal_bdd_scenarios_total",
			Help: "Scenarios finished, by result.",
		},
		[]string{"result"},
	)

	m.Registry.MustRegister(m.StepsTotal, m.StepDuration, m.RetryAttempts, m.HookFailures, m.Scenarios)
	return m
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "passed"
}

// ObserveStep records one finished step.
func (m *Metrics) ObserveStep(d time.Duration, err error) {
	r := result(err)
	m.StepsTotal.WithLabelValues(r).Inc()
	m.StepDuration.WithLabelValues(r).Observe(d.Seconds())
}

// ObserveScenario records one finished scenario.
func (m *Metrics) ObserveScenario(err error) {
	m.Scenarios.WithLabelValues(result(err)).Inc()
}

// RetryObserver matches retry.Observer and counts failed attempts per loop
// kind.
func (m *Metrics) RetryObserver(kind string, _ int, _ error) {
	m.RetryAttempts.WithLabelValues(kind).Inc()
}

// HookFailed counts a hook failure.
func (m *Metrics) HookFailed(hook string) {
	m.HookFailures.WithLabelValues(hook).Inc()
}

// WriteTextfile writes the registry in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
