// Package observability provides Prometheus metrics for the in-docker
// test runner.
//
// Collectors are package-level and start unregistered: one-shot uses
// (the CLI) increment them without an exposition endpoint, while
// long-running embedders call Register with their own registry and
// expose it however they serve metrics.
package observability

import "github.com/prometheus/client_golang/prometheus"

// BootstrapBuckets covers container preparation latencies: a pip install
// into a cold image can take minutes.
var BootstrapBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}

var (
	// RunsTotal counts test invocations by outcome: passed, failed
	// (remote assertion), raised (other remote exception), error
	// (spec/bootstrap/protocol failure).
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indocker_runs_total",
			Help: "Test invocations by outcome",
		},
		[]string{"status"},
	)

	// BootstrapFailures counts container preparation failures by stage.
	BootstrapFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indocker_bootstrap_failures_total",
			Help: "Bootstrap failures by stage",
		},
		[]string{"stage"},
	)

	// BootstrapDuration records successful container preparation time.
	BootstrapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indocker_bootstrap_duration_seconds",
			Help:    "Container preparation duration",
			Buckets: BootstrapBuckets,
		},
	)

	// RemoteCallDuration records the synchronous remote call time.
	RemoteCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indocker_remote_call_duration_seconds",
			Help:    "Remote invocation duration",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register adds all runner metrics to the given registry.
func Register(r prometheus.Registerer) {
	r.MustRegister(RunsTotal, BootstrapFailures, BootstrapDuration, RemoteCallDuration)
}
