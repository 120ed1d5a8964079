package main

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"arenaclient/offload"
)

const metricsWindow = "10s"

// perfMetrics reports compute broker activity per reporting window.
type perfMetrics struct {
	last offload.Stats
}

// report returns a summary of activity since the previous call, or "" when
// nothing ran.
func (m *perfMetrics) report(cur offload.Stats) string {
	prev := m.last
	m.last = cur
	worker := cur.Worker - prev.Worker
	local := cur.InProcess - prev.InProcess
	if worker == 0 && local == 0 {
		return ""
	}
	return fmt.Sprintf("perf: %d worker ops, %d in-process ops, %d timed out, %s produced in last %s",
		worker, local, cur.TimedOut-prev.TimedOut, humanize.Bytes(cur.Bytes-prev.Bytes), metricsWindow)
}
