package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/pkg/domain"
)

type fakeMonitor struct {
	snapshots []domain.ResourceSnapshot
	calls     int
}

func (f *fakeMonitor) Snapshot(ctx context.Context) (domain.ResourceSnapshot, error) {
	i := f.calls
	f.calls++
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

type recordingMessenger struct {
	notified []string
}

func (m *recordingMessenger) AskUser(ctx context.Context, question string) (string, error) { return "", nil }
func (m *recordingMessenger) NotifyUser(ctx context.Context, message string) error {
	m.notified = append(m.notified, message)
	return nil
}
func (m *recordingMessenger) SendFile(ctx context.Context, path, caption string) error { return nil }

func testConfig() Config {
	return Config{
		MemoryLimitBytes:        1000,
		CPULimitPercent:         80,
		TemperatureLimitCelsius: 80,
		CheckInterval:           time.Millisecond,
	}
}

func TestWaitForResources_ReturnsImmediatelyWhenClear(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []domain.ResourceSnapshot{{MemoryUsedBytes: 100, CPULoadPercent: 10}}}
	throttler := New(monitor, nil, testConfig())

	err := throttler.WaitForResources(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, monitor.calls)
}

func TestWaitForResources_WaitsThenClears(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []domain.ResourceSnapshot{
		{MemoryUsedBytes: 2000, CPULoadPercent: 10},
		{MemoryUsedBytes: 2000, CPULoadPercent: 10},
		{MemoryUsedBytes: 100, CPULoadPercent: 10},
	}}
	messenger := &recordingMessenger{}
	throttler := New(monitor, messenger, testConfig())

	err := throttler.WaitForResources(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, monitor.calls)
	assert.Len(t, messenger.notified, 1, "notifies paused exactly once on the initial constraint")
}

func TestWaitForResources_StopsOnContextCancellation(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []domain.ResourceSnapshot{{MemoryUsedBytes: 2000}}}
	throttler := New(monitor, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := throttler.WaitForResources(ctx)

	require.Error(t, err)
}

func TestCheckConstraints_ChecksMemoryThenCPUThenTemperature(t *testing.T) {
	throttler := New(&fakeMonitor{}, nil, testConfig())

	assert.Contains(t, throttler.checkConstraints(domain.ResourceSnapshot{MemoryUsedBytes: 2000}), "memory")
	assert.Contains(t, throttler.checkConstraints(domain.ResourceSnapshot{CPULoadPercent: 90}), "cpu")

	temp := 90.0
	assert.Contains(t, throttler.checkConstraints(domain.ResourceSnapshot{TemperatureCelsius: &temp}), "temperature")

	assert.Empty(t, throttler.checkConstraints(domain.ResourceSnapshot{MemoryUsedBytes: 100, CPULoadPercent: 10}))
}
