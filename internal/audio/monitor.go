package audio

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	DefaultThresholdDB    = -50.0
	DefaultSilenceTimeout = 1500 * time.Millisecond
	DefaultTickInterval   = 50 * time.Millisecond
)

// MonitorConfig tunes voice activity detection.
type MonitorConfig struct {
	ThresholdDB    float64
	SilenceTimeout time.Duration
	TickInterval   time.Duration
}

// DefaultMonitorConfig returns the stock detection parameters.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ThresholdDB:    DefaultThresholdDB,
		SilenceTimeout: DefaultSilenceTimeout,
		TickInterval:   DefaultTickInterval,
	}
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.ThresholdDB == 0 {
		c.ThresholdDB = DefaultThresholdDB
	}
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = DefaultSilenceTimeout
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// MonitorCallbacks receive speech edges. They run on the monitor's goroutine
// (or the clock's timer goroutine) and must not block for long.
type MonitorCallbacks struct {
	OnSpeechStart func()
	OnSpeechEnd   func()
}

// Monitor samples the input level on a fixed tick and turns it into
// debounced speech start and end edges.
type Monitor struct {
	cfg       MonitorConfig
	handle    *Handle
	clock     Clock
	callbacks MonitorCallbacks

	mu        sync.Mutex
	running   bool
	available bool
	speaking  bool
	silence   Timer
	timerGen  uint64
	cancel    context.CancelFunc
	release   func()
	done      chan struct{}
}

// NewMonitor builds a stopped monitor.
func NewMonitor(handle *Handle, clock Clock, cfg MonitorConfig, callbacks MonitorCallbacks) *Monitor {
	if clock == nil {
		clock = SystemClock()
	}
	return &Monitor{
		cfg:       cfg.withDefaults(),
		handle:    handle,
		clock:     clock,
		callbacks: callbacks,
	}
}

// Start acquires the input and begins polling. It returns
// ErrDeviceUnavailable (wrapped) when the input cannot be opened, leaving the
// monitor stopped and marked unavailable.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	input, release, err := m.handle.Acquire(ctx)
	if err != nil {
		m.available = false
		log.Printf("[vad] input unavailable: %v", err)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.available = true
	m.speaking = false
	m.cancel = cancel
	m.release = release
	m.done = make(chan struct{})

	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	go m.loop(loopCtx, input, ticker, m.done)
	return nil
}

// Stop ends polling, cancels any pending silence timer and releases the input.
// A speech end edge is not emitted.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.speaking = false
	m.stopSilenceLocked()
	cancel, release, done := m.cancel, m.release, m.done
	m.cancel, m.release = nil, nil
	m.mu.Unlock()

	cancel()
	<-done
	release()
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Available reports whether the last Start acquired the input.
func (m *Monitor) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Speaking reports the debounced speech state.
func (m *Monitor) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *Monitor) loop(ctx context.Context, input Input, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.Observe(input.Level())
		}
	}
}

// Observe applies one level sample. The polling loop calls it on every tick;
// offline replays may call it directly on a stopped monitor.
func (m *Monitor) Observe(level float64) {
	m.mu.Lock()
	if level > m.cfg.ThresholdDB {
		m.stopSilenceLocked()
		if m.speaking {
			m.mu.Unlock()
			return
		}
		m.speaking = true
		m.mu.Unlock()
		if m.callbacks.OnSpeechStart != nil {
			m.callbacks.OnSpeechStart()
		}
		return
	}

	if m.speaking && m.silence == nil {
		m.timerGen++
		gen := m.timerGen
		m.silence = m.clock.AfterFunc(m.cfg.SilenceTimeout, func() { m.silenceElapsed(gen) })
	}
	m.mu.Unlock()
}

func (m *Monitor) silenceElapsed(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || m.silence == nil || !m.speaking {
		m.mu.Unlock()
		return
	}
	m.silence = nil
	m.speaking = false
	m.mu.Unlock()
	if m.callbacks.OnSpeechEnd != nil {
		m.callbacks.OnSpeechEnd()
	}
}

func (m *Monitor) stopSilenceLocked() {
	if m.silence == nil {
		return
	}
	m.silence.Stop()
	m.silence = nil
	m.timerGen++
}
