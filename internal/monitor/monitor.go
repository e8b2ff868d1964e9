package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"clipforge/pkg/models"
)

// Busy thresholds, in percent.
const (
	busyCPUPercent = 80.0
	busyRAMPercent = 90.0
)

// SystemMonitor reads host telemetry. It never blocks or limits a run; the
// numbers are logged next to ffmpeg results and served on /v1/health.
type SystemMonitor struct {
	sampleInterval time.Duration

	once   sync.Once
	static models.StaticHardware
}

func NewSystemMonitor(sampleInterval time.Duration) *SystemMonitor {
	return &SystemMonitor{sampleInterval: sampleInterval}
}

// StaticSpecs returns hardware info that doesn't change at runtime.
func (m *SystemMonitor) StaticSpecs(ctx context.Context) models.StaticHardware {
	m.once.Do(func() {
		model := "Unknown CPU"
		if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
			model = info[0].ModelName
		}
		m.static = models.StaticHardware{
			CPUModel:     model,
			TotalThreads: runtime.NumCPU(),
		}
	})
	return m.static
}

// GetStats snapshots memory, then measures CPU load over the monitor's
// sample interval. It blocks for that interval.
func (m *SystemMonitor) GetStats(ctx context.Context) (models.HardwareStats, error) {
	stats := models.HardwareStats{}

	// Memory is a point read.
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mem stats: %w", err)
	}
	stats.RAMPercent = v.UsedPercent
	stats.RAMAvailableBytes = v.Available

	// CPU needs two samples; with a zero interval gopsutil diffs against
	// the previous call instead of sleeping.
	cpuPct, err := cpu.PercentWithContext(ctx, m.sampleInterval, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUPercent = cpuPct[0]
	}

	stats.IsBusy = isBusy(stats.CPUPercent, stats.RAMPercent)
	return stats, nil
}

func isBusy(cpuPct, ramPct float64) bool {
	return cpuPct > busyCPUPercent || ramPct > busyRAMPercent
}

// EncoderLister reports the encoders the local ffmpeg offers.
type EncoderLister interface {
	Capabilities(ctx context.Context) ([]string, error)
}

// Health combines static specs, a live snapshot and, when encoders is not
// nil, the hardware encoders ffmpeg can use.
func (m *SystemMonitor) Health(ctx context.Context, encoders EncoderLister) (models.HealthReport, error) {
	report := models.HealthReport{Status: "IDLE", Specs: m.StaticSpecs(ctx)}

	stats, err := m.GetStats(ctx)
	if err != nil {
		return report, err
	}
	report.Stats = stats
	if stats.IsBusy {
		report.Status = "BUSY"
	}

	if encoders != nil {
		caps, err := encoders.Capabilities(ctx)
		if err != nil {
			return report, err
		}
		report.Specs.HardwareAcceleration = caps
	}
	return report, nil
}
