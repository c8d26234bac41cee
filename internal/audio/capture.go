package audio

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Clip is a finalized recording.
type Clip struct {
	Data       []byte
	Format     string
	SampleRate int
	Duration   time.Duration
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool { return len(c.Data) == 0 }

const (
	DefaultSampleRate = 16000
	FormatPCM16       = "pcm"
)

// Capture buffers raw frames from the shared input between Start and Stop.
type Capture struct {
	handle     *Handle
	clock      Clock
	sampleRate int

	mu      sync.Mutex
	active  bool
	buf     bytes.Buffer
	started time.Time
	untap   func()
	release func()
}

// NewCapture builds an idle capture bound to handle.
func NewCapture(handle *Handle, clock Clock, sampleRate int) *Capture {
	if clock == nil {
		clock = SystemClock()
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Capture{handle: handle, clock: clock, sampleRate: sampleRate}
}

// Start acquires the input and clears the buffer.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil
	}
	input, release, err := c.handle.Acquire(ctx)
	if err != nil {
		return err
	}
	c.buf.Reset()
	c.started = c.clock.Now()
	c.release = release
	c.untap = input.Tap(c.append)
	c.active = true
	return nil
}

// Active reports whether frames are being buffered.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Elapsed is the time since Start, zero when idle.
func (c *Capture) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0
	}
	return c.clock.Now().Sub(c.started)
}

// Stop finalizes the buffered frames and releases the input. ok is false when
// no capture was active.
func (c *Capture) Stop() (clip Clip, ok bool) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return Clip{}, false
	}
	c.active = false
	untap, release := c.untap, c.release
	c.untap, c.release = nil, nil
	data := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	elapsed := c.clock.Now().Sub(c.started)
	c.mu.Unlock()

	untap()
	release()
	return Clip{Data: data, Format: FormatPCM16, SampleRate: c.sampleRate, Duration: elapsed}, true
}

func (c *Capture) append(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.buf.Write(frame)
	}
}
