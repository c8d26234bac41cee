package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// DurationTick is how often the recording length is reported.
const DurationTick = 100 * time.Millisecond

// Conversation is the part of a session a recording drives.
type Conversation interface {
	VoiceState() chat.VoiceState
	BeginListening() error
	EndListening() (session.Turn, error)
	CancelListening()
	CompleteVoiceTurn(ctx context.Context, turn session.Turn, text string, err error)
	ReportDeviceUnavailable()
	// RequestContext detaches a call from ctx and bounds it to the
	// conversation's lifetime.
	RequestContext(ctx context.Context) (context.Context, context.CancelFunc)
}

// RecorderOptions tunes a Recorder.
type RecorderOptions struct {
	// OnDuration receives the elapsed recording time every DurationTick.
	OnDuration func(time.Duration)
	// TranscribeTimeout bounds the transcription call. Zero means no bound.
	TranscribeTimeout time.Duration
}

// Recorder captures one utterance at a time and hands it to the transcriber.
type Recorder struct {
	conv        Conversation
	capture     *audio.Capture
	transcriber session.Transcriber
	clock       audio.Clock
	opts        RecorderOptions

	mu        sync.Mutex
	recording bool
	stopTick  func()
	wg        sync.WaitGroup
}

// NewRecorder builds an idle recorder.
func NewRecorder(conv Conversation, capture *audio.Capture, transcriber session.Transcriber, clock audio.Clock, opts RecorderOptions) *Recorder {
	if clock == nil {
		clock = audio.SystemClock()
	}
	return &Recorder{
		conv:        conv,
		capture:     capture,
		transcriber: transcriber,
		clock:       clock,
		opts:        opts,
	}
}

// Start opens the input and moves the conversation to listening. When the
// input cannot be opened the user is told voice is unavailable and the
// wrapped audio.ErrDeviceUnavailable is returned.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return nil
	}

	if err := r.capture.Start(ctx); err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			r.conv.ReportDeviceUnavailable()
		}
		return err
	}
	if err := r.conv.BeginListening(); err != nil {
		r.capture.Stop()
		return err
	}

	r.recording = true
	r.stopTick = r.startDurationTicker()
	log.Printf("[recorder] recording started")
	return nil
}

// Stop finalizes the recording and transcribes it in the background. It is a
// no-op when nothing is being recorded. The transcription outlives ctx and is
// cancelled only when the conversation closes.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	r.stopTick()
	r.stopTick = nil
	r.mu.Unlock()

	clip, _ := r.capture.Stop()
	turn, err := r.conv.EndListening()
	if err != nil {
		return err
	}
	log.Printf("[recorder] recording stopped, %d bytes over %s", len(clip.Data), clip.Duration)

	reqCtx, cancel := r.conv.RequestContext(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		text, err := r.transcribe(reqCtx, clip)
		r.conv.CompleteVoiceTurn(reqCtx, turn, text, err)
	}()
	return nil
}

// Abort drops the current recording without transcribing it.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	r.stopTick()
	r.stopTick = nil
	r.mu.Unlock()

	r.capture.Stop()
	r.conv.CancelListening()
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Wait blocks until pending transcriptions have completed.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Empty() {
		return "", nil
	}
	if r.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", session.ErrTranscriptionFailed)
	}
	if r.opts.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.TranscribeTimeout)
		defer cancel()
	}
	text, err := r.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("%w: %v", session.ErrTranscriptionFailed, err)
	}
	return text, nil
}

func (r *Recorder) startDurationTicker() func() {
	ticker := r.clock.NewTicker(DurationTick)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				if r.opts.OnDuration != nil {
					r.opts.OnDuration(r.capture.Elapsed())
				}
			}
		}
	}()
	return func() { close(done) }
}
