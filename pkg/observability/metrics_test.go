package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	RunsTotal.WithLabelValues("passed").Inc()
	BootstrapFailures.WithLabelValues("connect").Inc()
	BootstrapDuration.Observe(1.5)
	RemoteCallDuration.Observe(0.1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	got := make(map[string]bool)
	for _, f := range families {
		got[f.GetName()] = true
	}
	for _, name := range []string{
		"indocker_runs_total",
		"indocker_bootstrap_failures_total",
		"indocker_bootstrap_duration_seconds",
		"indocker_remote_call_duration_seconds",
	} {
		if !got[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
