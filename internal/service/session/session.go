package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
)

// Options tunes a session.
type Options struct {
	// RequestTimeout bounds every collaborator call. Zero means no bound.
	RequestTimeout time.Duration
	// AnalysisInterval re-runs screen analysis while active. Zero disables the
	// cadence so only the cycle started by a toggle runs.
	AnalysisInterval time.Duration

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Turn identifies one listening cycle handed from EndListening to
// CompleteVoiceTurn.
type Turn struct {
	epoch uint64
}

// Session is one conversation between the user and a persona about a game.
// All state is guarded by mu; collaborator calls run without holding it and
// report back through epoch-checked completions, so results that arrive
// after Close are dropped.
type Session struct {
	id        string
	game      game.Game
	persona   persona.Persona
	createdAt time.Time
	collab    Collaborators
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	events *broadcaster
	frames *FrameBuffer
	screen *ScreenController
	wg     sync.WaitGroup

	mu           sync.Mutex
	messages     []chat.Message
	voice        chat.VoiceState
	muted        bool
	inFlight     bool
	epoch        uint64
	closed       bool
	speechCtx    context.Context
	speechCancel context.CancelFunc
}

// New creates an idle session with an empty log.
func New(g game.Game, p persona.Persona, collab Collaborators, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        opts.NewID(),
		game:      g,
		persona:   p,
		createdAt: opts.Now(),
		collab:    collab,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		events:    newBroadcaster(),
		frames:    &FrameBuffer{},
		messages:  make([]chat.Message, 0, 16),
		voice:     chat.VoiceIdle,
	}
	s.speechCtx, s.speechCancel = context.WithCancel(ctx)
	s.screen = newScreenController(s, collab.Analyzer, s.frames, opts.AnalysisInterval)
	return s
}

func (s *Session) ID() string               { return s.id }
func (s *Session) Game() game.Game          { return s.game }
func (s *Session) Persona() persona.Persona { return s.persona }

// Screen returns the screen analysis controller bound to this session.
func (s *Session) Screen() *ScreenController { return s.screen }

// Frames holds the latest screen capture pushed by the client.
func (s *Session) Frames() *FrameBuffer { return s.frames }

// Subscribe streams session events until the returned cancel func is called
// or the session closes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Snapshot describes the session for API responses.
func (s *Session) Snapshot() chat.Session {
	screenState := s.screen.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.Session{
		ID:          s.id,
		GameID:      s.game.ID,
		PersonaID:   s.persona.ID,
		VoiceState:  s.voice,
		ScreenState: screenState,
		Muted:       s.muted,
		CreatedAt:   s.createdAt,
	}
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

func (s *Session) VoiceState() chat.VoiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Greet appends the persona's welcome line.
func (s *Session) Greet() {
	s.appendAssistant(fmt.Sprintf(welcomeTemplate, s.game.Name, s.persona.Name), false, true)
}

// SubmitUtterance records a user utterance and blocks until the persona's
// reply replaces the placeholder. Blank input is ignored and returns nil.
// The returned message is nil when the reply was discarded because the
// session closed in the meantime.
func (s *Session) SubmitUtterance(ctx context.Context, text string) (*chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrRequestInFlight
	}

	req := ResponseRequest{
		Utterance: text,
		Game:      s.game,
		Persona:   s.persona,
		History:   s.historyLocked(),
	}
	s.appendLocked(s.newMessage(chat.SenderUser, text))
	placeholder := s.newMessage(chat.SenderAssistant, chat.PlaceholderText)
	placeholder.IsProcessing = true
	s.appendLocked(placeholder)
	s.inFlight = true
	if s.voice != chat.VoiceListening {
		s.setVoiceLocked(chat.VoiceProcessing)
	}
	epoch := s.epoch
	s.mu.Unlock()

	reply, err := s.generate(ctx, req)
	return s.completeResponse(epoch, placeholder.ID, text, reply, err), nil
}

func (s *Session) generate(ctx context.Context, req ResponseRequest) (string, error) {
	if s.collab.Responder == nil {
		return "", fmt.Errorf("%w: no responder configured", ErrResponseGenerationFailed)
	}
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	reply, err := s.collab.Responder.GenerateResponse(reqCtx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseGenerationFailed, err)
	}
	return reply, nil
}

func (s *Session) completeResponse(epoch uint64, placeholderID, utterance, reply string, err error) *chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || epoch != s.epoch {
		log.Printf("[session] dropping late response for session=%s", s.id)
		return nil
	}
	s.inFlight = false

	final := s.newMessage(chat.SenderAssistant, reply)
	if err != nil {
		log.Printf("[session] response failed for session=%s: %v", s.id, err)
		final.Text = responseErrorText
		final.IsError = true
	}
	s.replaceLocked(placeholderID, final)
	s.settleVoiceLocked()
	if err == nil {
		s.speakLocked(reply, utterance)
	}
	return &final
}

// BeginListening moves an idle session into listening.
func (s *Session) BeginListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.voice != chat.VoiceIdle {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.voice, chat.VoiceListening)
	}
	s.setVoiceLocked(chat.VoiceListening)
	return nil
}

// EndListening moves a listening session into processing and returns the
// turn to complete once transcription finishes.
func (s *Session) EndListening() (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Turn{}, ErrSessionClosed
	}
	if s.voice != chat.VoiceListening {
		return Turn{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.voice, chat.VoiceProcessing)
	}
	s.setVoiceLocked(chat.VoiceProcessing)
	return Turn{epoch: s.epoch}, nil
}

// CancelListening returns a listening session to idle without a turn.
func (s *Session) CancelListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.voice == chat.VoiceListening {
		s.setVoiceLocked(chat.VoiceIdle)
	}
}

// CompleteVoiceTurn finishes a turn with its transcription outcome. A failed
// transcription appends an error message; an empty transcript only returns
// the session to idle.
func (s *Session) CompleteVoiceTurn(ctx context.Context, turn Turn, text string, transcribeErr error) {
	s.mu.Lock()
	if s.closed || turn.epoch != s.epoch {
		s.mu.Unlock()
		log.Printf("[session] dropping late transcription for session=%s", s.id)
		return
	}
	if transcribeErr != nil {
		log.Printf("[session] %v for session=%s", transcribeErr, s.id)
		msg := s.newMessage(chat.SenderAssistant, transcriptionErrorText)
		msg.IsError = true
		s.appendLocked(msg)
		s.settleVoiceLocked()
		s.mu.Unlock()
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.settleVoiceLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if _, err := s.SubmitUtterance(ctx, text); err != nil {
		log.Printf("[session] voice turn not submitted for session=%s: %v", s.id, err)
		s.mu.Lock()
		if errors.Is(err, ErrRequestInFlight) && !s.closed && turn.epoch == s.epoch {
			msg := s.newMessage(chat.SenderAssistant, voiceBusyText)
			msg.IsError = true
			s.appendLocked(msg)
		}
		s.settleVoiceLocked()
		s.mu.Unlock()
	}
}

// ReportDeviceUnavailable tells the user voice input is off and text input
// still works.
func (s *Session) ReportDeviceUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	msg := s.newMessage(chat.SenderAssistant, deviceUnavailableText)
	msg.IsError = true
	s.appendLocked(msg)
	if s.voice == chat.VoiceListening {
		s.setVoiceLocked(chat.VoiceIdle)
	}
}

// SetMuted toggles spoken replies. Muting cancels speech already in progress.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.muted == muted {
		return
	}
	s.muted = muted
	if muted {
		s.speechCancel()
		s.speechCtx, s.speechCancel = context.WithCancel(s.ctx)
	}
	s.publishLocked(Event{Type: EventMuteChanged, Muted: &muted})
}

// Close ends the session. Pending collaborator results are discarded and
// subscribers receive a final closed event.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.inFlight = false
	s.voice = chat.VoiceIdle
	s.mu.Unlock()

	s.cancel()
	s.screen.shutdown()
	s.wg.Wait()
	s.events.close(Event{Type: EventClosed, SessionID: s.id, At: s.opts.Now()})
}

// appendAssistant adds an assistant line and optionally speaks it.
func (s *Session) appendAssistant(text string, isError, speak bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	msg := s.newMessage(chat.SenderAssistant, text)
	msg.IsError = isError
	s.appendLocked(msg)
	if speak && !isError {
		s.speakLocked(text, "")
	}
	return true
}

func (s *Session) speakLocked(text, prompt string) {
	if s.muted || s.closed || s.collab.Synthesizer == nil || strings.TrimSpace(text) == "" {
		return
	}
	ctx, epoch := s.speechCtx, s.epoch
	req := SpeechRequest{Text: text, Persona: s.persona, Prompt: prompt, History: s.historyLocked()}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		speech, err := s.collab.Synthesizer.SynthesizeSpeech(ctx, req)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[session] speech synthesis failed for session=%s: %v", s.id, err)
			}
			return
		}
		if speech == nil {
			speech = &Speech{Text: text}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.epoch != epoch || s.muted || ctx.Err() != nil {
			return
		}
		s.publishLocked(Event{Type: EventSpeech, Speech: speech})
	}()
}

// RequestContext returns a context for a collaborator call made on behalf of
// the session, such as a transcription started by a client connection. It
// keeps the parent's values, outlives the parent and ends when the session
// closes or the request timeout passes.
func (s *Session) RequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return s.requestContext(parent)
}

// requestContext detaches a collaborator call from the caller's cancellation
// and binds it to the session lifetime instead.
func (s *Session) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(s.ctx, cancel)
	if s.opts.RequestTimeout <= 0 {
		return ctx, func() { stop(); cancel() }
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, s.opts.RequestTimeout)
	return ctx, func() {
		cancelTimeout()
		stop()
		cancel()
	}
}

func (s *Session) historyLocked() []string {
	history := make([]string, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.IsProcessing {
			continue
		}
		speaker := "User"
		if msg.Sender == chat.SenderAssistant {
			speaker = s.persona.Name
		}
		history = append(history, speaker+": "+msg.Text)
	}
	return history
}

func (s *Session) newMessage(sender chat.Sender, text string) chat.Message {
	return chat.Message{
		ID:        s.opts.NewID(),
		Sender:    sender,
		Text:      text,
		Timestamp: s.opts.Now(),
	}
}

func (s *Session) appendLocked(msg chat.Message) {
	s.messages = append(s.messages, msg)
	s.publishLocked(Event{Type: EventMessageAppended, Message: &msg})
}

func (s *Session) replaceLocked(id string, msg chat.Message) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i] = msg
			s.publishLocked(Event{Type: EventMessageReplaced, Message: &msg, ReplacedID: id})
			return
		}
	}
	s.appendLocked(msg)
}

func (s *Session) setVoiceLocked(state chat.VoiceState) {
	if s.voice == state {
		return
	}
	s.voice = state
	s.publishLocked(Event{Type: EventVoiceState, VoiceState: state})
}

// settleVoiceLocked returns processing to idle once nothing is pending.
func (s *Session) settleVoiceLocked() {
	if s.voice == chat.VoiceProcessing && !s.inFlight {
		s.setVoiceLocked(chat.VoiceIdle)
	}
}

func (s *Session) publishLocked(evt Event) {
	evt.SessionID = s.id
	if evt.At.IsZero() {
		evt.At = s.opts.Now()
	}
	s.events.publish(evt)
}

func (s *Session) publish(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.publishLocked(evt)
}
