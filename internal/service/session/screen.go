package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
)

// FrameSource yields the most recent screen capture. An empty frame is
// allowed; analyzers describe what they can.
type FrameSource interface {
	LatestFrame() []byte
}

// FrameBuffer keeps the last frame pushed by the client.
type FrameBuffer struct {
	mu   sync.RWMutex
	data []byte
}

// Push replaces the stored frame.
func (f *FrameBuffer) Push(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data[:0], frame...)
}

func (f *FrameBuffer) LatestFrame() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.data) == 0 {
		return nil
	}
	return append([]byte(nil), f.data...)
}

// ScreenController runs periodic screen analysis for a session. Each toggle
// on starts a new run; results belonging to an older run are discarded.
type ScreenController struct {
	session  *Session
	analyzer ScreenAnalyzer
	frames   FrameSource
	interval time.Duration

	mu          sync.Mutex
	state       chat.ScreenAnalysisState
	run         uint64
	stopCadence context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
}

func newScreenController(s *Session, analyzer ScreenAnalyzer, frames FrameSource, interval time.Duration) *ScreenController {
	return &ScreenController{
		session:  s,
		analyzer: analyzer,
		frames:   frames,
		interval: interval,
		state:    chat.ScreenInactive,
	}
}

// State reports the current analysis state.
func (c *ScreenController) State() chat.ScreenAnalysisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle switches analysis on or off. Switching on runs the first analysis
// cycle before returning.
func (c *ScreenController) Toggle(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}

	if c.state != chat.ScreenInactive {
		c.deactivateLocked()
		c.session.appendAssistant(screenStopText, false, false)
		c.mu.Unlock()
		return nil
	}

	c.run++
	run := c.run
	c.setStateLocked(chat.ScreenActive)
	c.session.appendAssistant(screenStartText, false, false)
	c.mu.Unlock()

	c.cycle(ctx, run)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval > 0 && c.run == run && c.state == chat.ScreenActive && !c.closed {
		c.startCadenceLocked(run)
	}
	return nil
}

// cycle captures one frame and analyzes it. It is skipped when the run is
// stale or a previous analysis is still processing.
func (c *ScreenController) cycle(ctx context.Context, run uint64) {
	c.mu.Lock()
	if c.run != run || c.state != chat.ScreenActive {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(chat.ScreenProcessing)
	c.mu.Unlock()

	var frame []byte
	if c.frames != nil {
		frame = c.frames.LatestFrame()
	}
	result, err := c.analyze(ctx, frame)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		log.Printf("[screen] discarding analysis from stopped run for session=%s", c.session.id)
		return
	}
	if err != nil {
		log.Printf("[screen] %v for session=%s", err, c.session.id)
		c.run++
		c.cancelCadenceLocked()
		c.setStateLocked(chat.ScreenInactive)
		c.session.appendAssistant(screenErrorText, true, false)
		return
	}
	c.setStateLocked(chat.ScreenActive)
	c.session.appendAssistant(result, false, true)
}

func (c *ScreenController) analyze(ctx context.Context, frame []byte) (string, error) {
	if c.analyzer == nil {
		return "", fmt.Errorf("%w: no analyzer configured", ErrScreenAnalysisFailed)
	}
	reqCtx, cancel := c.session.requestContext(ctx)
	defer cancel()
	result, err := c.analyzer.AnalyzeScreen(reqCtx, frame, c.session.game)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrScreenAnalysisFailed, err)
	}
	return result, nil
}

func (c *ScreenController) startCadenceLocked(run uint64) {
	ctx, cancel := context.WithCancel(c.session.ctx)
	c.stopCadence = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cycle(ctx, run)
			}
		}
	}()
}

func (c *ScreenController) deactivateLocked() {
	c.run++
	c.cancelCadenceLocked()
	c.setStateLocked(chat.ScreenInactive)
}

func (c *ScreenController) cancelCadenceLocked() {
	if c.stopCadence != nil {
		c.stopCadence()
		c.stopCadence = nil
	}
}

func (c *ScreenController) setStateLocked(state chat.ScreenAnalysisState) {
	if c.state == state {
		return
	}
	c.state = state
	c.session.publish(Event{Type: EventScreenState, ScreenState: state})
}

// shutdown stops analysis without appending a notice and waits for the
// cadence loop to exit.
func (c *ScreenController) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.run++
	c.cancelCadenceLocked()
	c.state = chat.ScreenInactive
	c.mu.Unlock()
	c.wg.Wait()
}
