// Package sdwatchdog implements ports.Watchdog over systemd's sd_notify
// protocol, via go-systemd/daemon. Outside a systemd unit with
// WatchdogSec set, every call is a harmless no-op — go-systemd's
// SdNotify already degrades that way when NOTIFY_SOCKET isn't set.
package sdwatchdog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Watchdog notifies systemd of process readiness, liveness, and shutdown,
// and reports the heartbeat interval the unit's WatchdogSec demands.
type Watchdog struct {
	mu       sync.Mutex
	interval time.Duration
	enabled  bool
}

// New constructs a Watchdog, querying WATCHDOG_USEC once at startup. The
// environment is left intact (unsetEnvironment=false) so a supervisor
// restarting this process in place still sees it.
func New() *Watchdog {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		slog.Warn("invalid WATCHDOG_USEC, watchdog heartbeat disabled", "error", err)
		return &Watchdog{}
	}
	return &Watchdog{interval: interval, enabled: interval > 0}
}

// Ready notifies systemd that startup has completed.
func (w *Watchdog) Ready() error {
	return notify(daemon.SdNotifyReady)
}

// Heartbeat notifies systemd the process is still alive. Callers must
// invoke this at least as often as Interval reports, or systemd will
// consider the unit hung and restart it.
func (w *Watchdog) Heartbeat() error {
	return notify(daemon.SdNotifyWatchdog)
}

// Stopping notifies systemd that graceful shutdown has begun.
func (w *Watchdog) Stopping() error {
	return notify(daemon.SdNotifyStopping)
}

// Interval reports how often Heartbeat must be called, and whether a
// watchdog is configured at all (false outside a systemd unit with
// WatchdogSec set).
func (w *Watchdog) Interval() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval.Milliseconds(), w.enabled
}

func notify(state string) error {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		return fmt.Errorf("sd_notify %q: %w", state, err)
	}
	if !ok {
		slog.Debug("sd_notify is a no-op outside a systemd unit", "state", state)
	}
	return nil
}

// HeartbeatInterval returns half of the watchdog's reported interval, the
// standard safety margin recommended by sd_watchdog_enabled(3) so a
// single missed tick never trips the timeout. Returns a default of two
// minutes when no watchdog is configured, matching the reference
// implementation's fallback for a heartbeat loop with nothing to notify.
func (w *Watchdog) HeartbeatInterval() time.Duration {
	intervalMillis, enabled := w.Interval()
	if !enabled {
		return 2 * time.Minute
	}
	return time.Duration(intervalMillis) * time.Millisecond / 2
}
