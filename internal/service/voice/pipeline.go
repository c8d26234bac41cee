package voice

import (
	"context"
	"errors"
	"log"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
)

// Pipeline couples the activity monitor to the recorder: detected speech
// starts a recording while the conversation is idle, and sustained silence
// stops it.
type Pipeline struct {
	conv     Conversation
	monitor  *audio.Monitor
	recorder *Recorder

	ctx context.Context
}

// NewPipeline wires a monitor over handle to the recorder.
func NewPipeline(handle *audio.Handle, clock audio.Clock, cfg audio.MonitorConfig, conv Conversation, recorder *Recorder) *Pipeline {
	p := &Pipeline{conv: conv, recorder: recorder, ctx: context.Background()}
	p.monitor = audio.NewMonitor(handle, clock, cfg, audio.MonitorCallbacks{
		OnSpeechStart: p.speechStarted,
		OnSpeechEnd:   p.speechEnded,
	})
	return p
}

// Start begins monitoring. A missing input leaves voice disabled and tells
// the user text input still works.
func (p *Pipeline) Start(ctx context.Context) error {
	p.ctx = ctx
	if err := p.monitor.Start(ctx); err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			p.conv.ReportDeviceUnavailable()
		}
		return err
	}
	return nil
}

// Stop halts monitoring and drops any unfinished recording. Transcriptions
// already handed off keep running and finish on their own.
func (p *Pipeline) Stop() {
	p.monitor.Stop()
	p.recorder.Abort()
}

// Monitor exposes the underlying activity monitor.
func (p *Pipeline) Monitor() *audio.Monitor { return p.monitor }

func (p *Pipeline) speechStarted() {
	if p.conv.VoiceState() != chat.VoiceIdle || p.recorder.Recording() {
		return
	}
	if err := p.recorder.Start(p.ctx); err != nil {
		log.Printf("[voice] auto start failed: %v", err)
	}
}

func (p *Pipeline) speechEnded() {
	if !p.recorder.Recording() {
		return
	}
	if err := p.recorder.Stop(p.ctx); err != nil {
		log.Printf("[voice] auto stop failed: %v", err)
	}
}
