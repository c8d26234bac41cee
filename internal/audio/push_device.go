package audio

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameStaleAfter is how long the last pushed frame keeps counting
// towards the input level.
const DefaultFrameStaleAfter = 250 * time.Millisecond

// PushDevice is a Device fed by frames pushed from a remote client, such as
// PCM16 chunks arriving over a WebSocket.
type PushDevice struct {
	clock      Clock
	staleAfter time.Duration

	mu        sync.Mutex
	available bool
	input     *pushInput
}

// NewPushDevice builds an unavailable device; call SetAvailable once the
// client has announced a working microphone.
func NewPushDevice(clock Clock) *PushDevice {
	if clock == nil {
		clock = SystemClock()
	}
	return &PushDevice{clock: clock, staleAfter: DefaultFrameStaleAfter}
}

// SetAvailable toggles whether Acquire succeeds. Revoking availability
// silences any open input.
func (d *PushDevice) SetAvailable(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available = ok
	if !ok && d.input != nil {
		d.input.reset()
	}
}

// Available reports whether the client microphone is usable.
func (d *PushDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

func (d *PushDevice) Acquire(context.Context) (Input, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.available {
		return nil, ErrDeviceUnavailable
	}
	in := &pushInput{device: d, taps: make(map[int]func([]byte)), level: SilenceFloorDB}
	d.input = in
	return in, nil
}

// Write delivers one PCM16 frame to the open input. Frames written while no
// input is open are dropped.
func (d *PushDevice) Write(frame []byte) {
	d.mu.Lock()
	in := d.input
	d.mu.Unlock()
	if in == nil {
		return
	}
	in.push(frame, PCM16Level(frame), d.clock.Now())
}

func (d *PushDevice) detach(in *pushInput) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.input == in {
		d.input = nil
	}
}

type pushInput struct {
	device *PushDevice

	mu      sync.Mutex
	level   float64
	updated time.Time
	taps    map[int]func([]byte)
	nextTap int
	closed  bool
}

func (p *pushInput) push(frame []byte, level float64, at time.Time) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.level = level
	p.updated = at
	taps := make([]func([]byte), 0, len(p.taps))
	for _, fn := range p.taps {
		taps = append(taps, fn)
	}
	p.mu.Unlock()

	for _, fn := range taps {
		fn(frame)
	}
}

func (p *pushInput) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = SilenceFloorDB
}

func (p *pushInput) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updated.IsZero() || p.device.clock.Now().Sub(p.updated) > p.device.staleAfter {
		return SilenceFloorDB
	}
	return p.level
}

func (p *pushInput) Tap(fn func(frame []byte)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextTap
	p.nextTap++
	p.taps[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.taps, id)
	}
}

func (p *pushInput) Close() error {
	p.mu.Lock()
	p.closed = true
	p.taps = map[int]func([]byte){}
	p.mu.Unlock()
	p.device.detach(p)
	return nil
}
