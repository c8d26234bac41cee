package session

import (
	"context"
	"log"
	"sync"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
)

// Manager owns the live sessions of the service.
type Manager struct {
	games    game.Store
	personas persona.Store
	collab   Collaborators
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager bootstraps an in-memory session registry.
func NewManager(games game.Store, personas persona.Store, collab Collaborators, opts Options) *Manager {
	return &Manager{
		games:    games,
		personas: personas,
		collab:   collab,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for a free game and a persona, and greets the user.
func (m *Manager) Create(_ context.Context, gameID, personaID string) (*Session, error) {
	g, ok := m.games.FindByID(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	if g.IsPremium {
		return nil, ErrGameLocked
	}
	p, ok := m.personas.FindByID(personaID)
	if !ok {
		return nil, ErrPersonaNotFound
	}

	s := New(g, p, m.collab, m.opts)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	s.Greet()
	log.Printf("[session] created session=%s game=%s persona=%s", s.ID(), g.ID, p.ID)
	return s, nil
}

// Get retrieves a live session by identifier.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns snapshots of every live session.
func (m *Manager) List() []chat.Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]chat.Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Close resets a session: it is removed and nothing it held survives.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	log.Printf("[session] closed session=%s", id)
	return nil
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
