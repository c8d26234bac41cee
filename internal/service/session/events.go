package session

import (
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
)

// EventType names a session change pushed to subscribers.
type EventType string

const (
	EventMessageAppended EventType = "message.appended"
	EventMessageReplaced EventType = "message.replaced"
	EventVoiceState      EventType = "voice.state"
	EventScreenState     EventType = "screen.state"
	EventMuteChanged     EventType = "mute.changed"
	EventSpeech          EventType = "speech"
	EventClosed          EventType = "session.closed"
)

// Event is a single change notification.
type Event struct {
	Type        EventType                `json:"type"`
	SessionID   string                   `json:"sessionId"`
	Message     *chat.Message            `json:"message,omitempty"`
	ReplacedID  string                   `json:"replacedId,omitempty"`
	VoiceState  chat.VoiceState          `json:"voiceState,omitempty"`
	ScreenState chat.ScreenAnalysisState `json:"screenState,omitempty"`
	Muted       *bool                    `json:"muted,omitempty"`
	Speech      *Speech                  `json:"speech,omitempty"`
	At          time.Time                `json:"at"`
}

const subscriberBuffer = 64

// broadcaster fans events out to subscribers. A subscriber whose buffer is
// full is closed instead of blocking the session, so it can resubscribe and
// resync from a snapshot.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *broadcaster) publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[session] subscriber %d lagging at %s event, closing it for session=%s", id, evt.Type, evt.SessionID)
			close(ch)
			delete(b.subs, id)
		}
	}
}

// close delivers a final event and closes every subscriber channel.
func (b *broadcaster) close(final Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
		delete(b.subs, id)
	}
}
