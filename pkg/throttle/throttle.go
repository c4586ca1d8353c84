// Package throttle pauses the pipeline before starting new work when the
// host is under memory, CPU, or thermal pressure, resuming once a fresh
// snapshot reports the host is clear again.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/ports"
)

// Config holds the resource limits the throttler enforces. Defaults match
// the reference implementation's.
type Config struct {
	MemoryLimitBytes        uint64
	CPULimitPercent         float64
	TemperatureLimitCelsius float64
	CheckInterval           time.Duration
}

// DefaultConfig returns the reference implementation's thresholds: 3GB
// memory, 80% CPU, 80°C, checked every 30 seconds.
func DefaultConfig() Config {
	return Config{
		MemoryLimitBytes:        3 * 1024 * 1024 * 1024,
		CPULimitPercent:         80.0,
		TemperatureLimitCelsius: 80.0,
		CheckInterval:           30 * time.Second,
	}
}

// Throttler blocks the consumer loop from starting new work while the
// host is constrained.
type Throttler struct {
	monitor   ports.ResourceMonitor
	messenger ports.Messenger // optional: nil disables the paused notification
	config    Config
	sleep     func(ctx context.Context, d time.Duration) error
}

// New constructs a Throttler. messenger may be nil.
func New(monitor ports.ResourceMonitor, messenger ports.Messenger, config Config) *Throttler {
	return &Throttler{monitor: monitor, messenger: messenger, config: config, sleep: contextSleep}
}

// WaitForResources blocks until a resource snapshot reports no
// constraint, notifying the operator once if the first check is already
// constrained.
func (t *Throttler) WaitForResources(ctx context.Context) error {
	snapshot, err := t.monitor.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read resource snapshot: %w", err)
	}

	reason := t.checkConstraints(snapshot)
	if reason == "" {
		return nil
	}

	slog.Warn("pausing for resource pressure", "reason", reason)
	t.notifyPaused(ctx, reason)

	for reason != "" {
		if err := t.sleep(ctx, t.config.CheckInterval); err != nil {
			return err
		}
		snapshot, err = t.monitor.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("read resource snapshot: %w", err)
		}
		reason = t.checkConstraints(snapshot)
	}

	slog.Info("resource pressure cleared, resuming")
	return nil
}

// checkConstraints returns a human-readable reason the host is
// constrained, or "" if it is clear. Memory is checked first, then CPU,
// then temperature, matching the reference implementation's check order.
func (t *Throttler) checkConstraints(snapshot domain.ResourceSnapshot) string {
	if t.config.MemoryLimitBytes > 0 && snapshot.MemoryUsedBytes > t.config.MemoryLimitBytes {
		return fmt.Sprintf("memory used %d bytes exceeds limit %d bytes", snapshot.MemoryUsedBytes, t.config.MemoryLimitBytes)
	}
	if t.config.CPULimitPercent > 0 && snapshot.CPULoadPercent > t.config.CPULimitPercent {
		return fmt.Sprintf("cpu load %.1f%% exceeds limit %.1f%%", snapshot.CPULoadPercent, t.config.CPULimitPercent)
	}
	if t.config.TemperatureLimitCelsius > 0 && snapshot.TemperatureCelsius != nil && *snapshot.TemperatureCelsius > t.config.TemperatureLimitCelsius {
		return fmt.Sprintf("temperature %.1f°C exceeds limit %.1f°C", *snapshot.TemperatureCelsius, t.config.TemperatureLimitCelsius)
	}
	return ""
}

func (t *Throttler) notifyPaused(ctx context.Context, reason string) {
	if t.messenger == nil {
		return
	}
	message := fmt.Sprintf("Pipeline paused: %s. Will resume automatically once resources free up.", reason)
	if err := t.messenger.NotifyUser(ctx, message); err != nil {
		slog.Error("failed to send throttle pause notification", "error", err)
	}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
