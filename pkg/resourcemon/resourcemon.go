// Package resourcemon implements ports.ResourceMonitor over gopsutil,
// reading host memory, CPU, and (where available) thermal sensor state.
package resourcemon

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/reelforge/pipeline/pkg/domain"
)

// Monitor reads host resource usage via gopsutil. The zero value is ready
// to use.
type Monitor struct {
	// No sample-interval field: cpu.PercentWithContext is called with
	// interval 0, which returns the usage since the last call, the
	// non-blocking read a polling throttle loop needs.
}

// New constructs a Monitor.
func New() *Monitor {
	return &Monitor{}
}

// Snapshot reads current memory, CPU, and temperature state. Temperature
// is left nil if no sensor is reported — not every host (notably
// containers and some ARM boards) exposes one.
func (m *Monitor) Snapshot(ctx context.Context) (domain.ResourceSnapshot, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("read memory stats: %w", err)
	}

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("read cpu stats: %w", err)
	}
	var cpuLoad float64
	if len(cpuPercents) > 0 {
		cpuLoad = cpuPercents[0]
	}

	snapshot := domain.ResourceSnapshot{
		MemoryUsedBytes:  vmem.Used,
		MemoryTotalBytes: vmem.Total,
		CPULoadPercent:   cpuLoad,
	}

	if temps, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			if t.Temperature <= 0 {
				continue
			}
			value := t.Temperature
			snapshot.TemperatureCelsius = &value
			break
		}
	}

	return snapshot, nil
}
