package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/process"
)

// procMetricsInterval is how often the sync/import subcommands sample
// their own process CPU and memory usage for the gauges below.
const procMetricsInterval = 15 * time.Second

// processMetrics reports this process's own CPU and memory usage via
// gopsutil, the Go analogue of original_source's client-side resource
// gauges; wired into the long-running sync and import subcommands rather
// than the short-lived path/quote/conf/checkpoint ones.
type processMetrics struct {
	proc   *process.Process
	cpu    prometheus.Gauge
	rssMem prometheus.Gauge
}

func newProcessMetrics(reg prometheus.Registerer) (*processMetrics, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	m := &processMetrics{
		proc: proc,
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dexquoter_process_cpu_percent",
			Help: "CPU usage of the dexquoter process, sampled periodically.",
		}),
		rssMem: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dexquoter_process_rss_bytes",
			Help: "Resident set size of the dexquoter process, sampled periodically.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.cpu, m.rssMem)
	}
	return m, nil
}

// run samples CPU and memory on procMetricsInterval until ctx is cancelled.
func (m *processMetrics) run(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(procMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(logger)
		}
	}
}

func (m *processMetrics) sample(logger *slog.Logger) {
	if pct, err := m.proc.CPUPercent(); err == nil {
		m.cpu.Set(pct)
	} else {
		logger.Warn("processMetrics: cpu sample failed", "error", err)
	}
	if info, err := m.proc.MemoryInfo(); err == nil && info != nil {
		m.rssMem.Set(float64(info.RSS))
	} else if err != nil {
		logger.Warn("processMetrics: memory sample failed", "error", err)
	}
}
