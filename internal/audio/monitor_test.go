package audio

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edgeCounter struct {
	starts atomic.Int32
	ends   atomic.Int32
}

func (e *edgeCounter) callbacks() MonitorCallbacks {
	return MonitorCallbacks{
		OnSpeechStart: func() { e.starts.Add(1) },
		OnSpeechEnd:   func() { e.ends.Add(1) },
	}
}

func newTestMonitor(t *testing.T, timeout time.Duration) (*Monitor, *ManualClock, *edgeCounter, *PushDevice) {
	t.Helper()
	clock := NewManualClock(time.Unix(0, 0))
	device := NewPushDevice(clock)
	edges := &edgeCounter{}
	cfg := MonitorConfig{ThresholdDB: -50, SilenceTimeout: timeout, TickInterval: 50 * time.Millisecond}
	return NewMonitor(NewHandle(device), clock, cfg, edges.callbacks()), clock, edges, device
}

func feed(m *Monitor, clock *ManualClock, levels ...float64) {
	for _, level := range levels {
		m.Observe(level)
		clock.Advance(m.cfg.TickInterval)
	}
}

func TestMonitorEmitsSingleStartAndEnd(t *testing.T) {
	m, clock, edges, _ := newTestMonitor(t, 100*time.Millisecond)

	feed(m, clock, -60, -60, -20, -20, -60, -60, -60)

	assert.Equal(t, int32(1), edges.starts.Load())
	assert.Equal(t, int32(1), edges.ends.Load())
	assert.False(t, m.Speaking())
	assert.Zero(t, clock.PendingTimers())
}

func TestMonitorDebouncesShortDips(t *testing.T) {
	m, clock, edges, _ := newTestMonitor(t, 100*time.Millisecond)

	feed(m, clock, -20, -60, -20)
	require.Equal(t, int32(1), edges.starts.Load())
	require.Zero(t, edges.ends.Load(), "a dip shorter than the timeout must not end speech")

	feed(m, clock, -60, -60, -60)
	assert.Equal(t, int32(1), edges.starts.Load())
	assert.Equal(t, int32(1), edges.ends.Load())
}

func TestMonitorDoesNotRearmSilenceTimerEachTick(t *testing.T) {
	m, clock, edges, _ := newTestMonitor(t, 200*time.Millisecond)

	feed(m, clock, -20, -60, -60, -60)
	assert.Equal(t, 1, clock.PendingTimers())

	// armed at the first silent tick, so it fires 200ms after that tick
	feed(m, clock, -60)
	assert.Equal(t, int32(1), edges.ends.Load())
}

func TestMonitorSilenceWithoutSpeechArmsNothing(t *testing.T) {
	m, clock, edges, _ := newTestMonitor(t, 100*time.Millisecond)

	feed(m, clock, -80, -100, -51, -50)

	assert.Zero(t, edges.starts.Load())
	assert.Zero(t, clock.PendingTimers())
}

func TestMonitorStartFailsWhenDeviceUnavailable(t *testing.T) {
	m, _, _, _ := newTestMonitor(t, 100*time.Millisecond)

	err := m.Start(context.Background())

	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.False(t, m.Running())
	assert.False(t, m.Available())
}

func TestMonitorPollsPushedFrames(t *testing.T) {
	m, clock, edges, device := newTestMonitor(t, 100*time.Millisecond)
	device.SetAvailable(true)

	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Available())
	require.Equal(t, 1, m.handle.Holders())

	device.Write(loudFrame(160))
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return edges.starts.Load() == 1 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	assert.Zero(t, m.handle.Holders())
	assert.Zero(t, clock.PendingTimers())
}

func TestLevelConversions(t *testing.T) {
	assert.Equal(t, SilenceFloorDB, PCM16Level(make([]byte, 320)))
	assert.Equal(t, SilenceFloorDB, SpectrumLevel([]byte{0, 0, 0}))
	assert.InDelta(t, 0, SpectrumLevel([]byte{255, 255}), 1e-9)
	assert.InDelta(t, -6.02, DecibelLevel(127.5, 255), 0.01)
	assert.Greater(t, PCM16Level(loudFrame(160)), -50.0)
}

func loudFrame(samples int) []byte {
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(12000)
		if i%2 == 1 {
			v = -12000
		}
		binary.LittleEndian.PutUint16(frame[2*i:], uint16(v))
	}
	return frame
}
