package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDeviceUnavailable reports that the microphone could not be acquired.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// Device opens live audio inputs.
type Device interface {
	Acquire(ctx context.Context) (Input, error)
}

// Input is an open audio stream.
type Input interface {
	// Level returns the current input level in dB.
	Level() float64
	// Tap registers fn to receive every raw frame until the returned func is called.
	Tap(fn func(frame []byte)) (untap func())
	Close() error
}

// Handle shares one open Input between the activity monitor and the
// recorder. The input is opened by the first Acquire and closed when the
// last holder releases it.
type Handle struct {
	device Device

	mu    sync.Mutex
	input Input
	refs  int
}

// NewHandle wraps a device.
func NewHandle(device Device) *Handle {
	return &Handle{device: device}
}

// Acquire returns the shared input and a release func that must be called
// exactly once.
func (h *Handle) Acquire(ctx context.Context) (Input, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.input == nil {
		if h.device == nil {
			return nil, nil, ErrDeviceUnavailable
		}
		input, err := h.device.Acquire(ctx)
		if err != nil {
			if errors.Is(err, ErrDeviceUnavailable) {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		h.input = input
	}
	h.refs++

	var once sync.Once
	release := func() {
		once.Do(h.release)
	}
	return h.input, release, nil
}

// Holders reports the number of outstanding acquisitions.
func (h *Handle) Holders() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

func (h *Handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return
	}
	h.refs--
	if h.refs == 0 && h.input != nil {
		_ = h.input.Close()
		h.input = nil
	}
}
