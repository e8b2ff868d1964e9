package monitor

import (
	"context"
	"testing"
	"time"
)

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		cpu  float64
		ram  float64
		want bool
	}{
		{"idle", 10, 40, false},
		{"at thresholds", 80, 90, false},
		{"cpu bound", 95, 40, true},
		{"memory bound", 10, 91, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBusy(tt.cpu, tt.ram); got != tt.want {
				t.Errorf("isBusy(%v, %v) = %v, want %v", tt.cpu, tt.ram, got, tt.want)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	m := NewSystemMonitor(0)
	stats, err := m.GetStats(context.Background())
	if err != nil {
		t.Skipf("host telemetry unavailable: %v", err)
	}
	if stats.RAMPercent < 0 || stats.RAMPercent > 100 {
		t.Errorf("RAMPercent = %v, out of range", stats.RAMPercent)
	}
	if stats.RAMAvailableBytes == 0 {
		t.Errorf("RAMAvailableBytes = 0")
	}
}

func TestStaticSpecsCached(t *testing.T) {
	m := NewSystemMonitor(0)
	first := m.StaticSpecs(context.Background())
	if first.TotalThreads < 1 {
		t.Fatalf("TotalThreads = %d", first.TotalThreads)
	}
	if second := m.StaticSpecs(context.Background()); second.CPUModel != first.CPUModel {
		t.Errorf("specs changed between calls: %q vs %q", first.CPUModel, second.CPUModel)
	}
}

type fakeEncoders []string

func (f fakeEncoders) Capabilities(context.Context) ([]string, error) { return f, nil }

func TestHealth(t *testing.T) {
	m := NewSystemMonitor(0)
	report, err := m.Health(context.Background(), fakeEncoders{"libx264", "h264_nvenc"})
	if err != nil {
		t.Skipf("host telemetry unavailable: %v", err)
	}
	if report.Status != "IDLE" && report.Status != "BUSY" {
		t.Errorf("Status = %q", report.Status)
	}
	if len(report.Specs.HardwareAcceleration) != 2 {
		t.Errorf("HardwareAcceleration = %v", report.Specs.HardwareAcceleration)
	}
}

func TestGetStatsWaitsForSampleInterval(t *testing.T) {
	m := NewSystemMonitor(100 * time.Millisecond)
	start := time.Now()
	if _, err := m.GetStats(context.Background()); err != nil {
		t.Skipf("host telemetry unavailable: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("GetStats returned after %v, want at least the sample interval", elapsed)
	}
}
