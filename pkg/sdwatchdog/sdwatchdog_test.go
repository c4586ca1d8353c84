package sdwatchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledOutsideSystemdUnit(t *testing.T) {
	// NOTIFY_SOCKET and WATCHDOG_USEC are unset in the test environment, so
	// go-systemd reports the watchdog as disabled.
	w := New()

	_, enabled := w.Interval()
	assert.False(t, enabled)
}

func TestHeartbeatInterval_DefaultsWhenDisabled(t *testing.T) {
	w := &Watchdog{enabled: false}

	assert.Equal(t, 2*time.Minute, w.HeartbeatInterval())
}

func TestHeartbeatInterval_HalvesConfiguredInterval(t *testing.T) {
	w := &Watchdog{enabled: true, interval: 60 * time.Second}

	assert.Equal(t, 30*time.Second, w.HeartbeatInterval())
}

func TestReadyHeartbeatStopping_NoOpWithoutNotifySocket(t *testing.T) {
	w := New()

	assert.NoError(t, w.Ready())
	assert.NoError(t, w.Heartbeat())
	assert.NoError(t, w.Stopping())
}

func TestHeartbeatLoop_StopsCleanly(t *testing.T) {
	w := &Watchdog{enabled: false}
	h := NewHeartbeat(w)

	h.Start()
	h.Stop()
}
