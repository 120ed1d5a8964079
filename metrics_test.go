package main

import (
	"testing"

	"arenaclient/offload"
)

func TestPerfMetricsReport(t *testing.T) {
	var m perfMetrics
	if got := m.report(offload.Stats{}); got != "" {
		t.Fatalf("idle report = %q", got)
	}
	got := m.report(offload.Stats{Worker: 3, InProcess: 1, TimedOut: 1, Bytes: 6400})
	want := "perf: 3 worker ops, 1 in-process ops, 1 timed out, 6.4 kB produced in last 10s"
	if got != want {
		t.Fatalf("report = %q, want %q", got, want)
	}
	if got := m.report(offload.Stats{Worker: 3, InProcess: 1, TimedOut: 1, Bytes: 6400}); got != "" {
		t.Fatalf("unchanged stats reported %q", got)
	}
}
