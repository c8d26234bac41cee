package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
)

func newTestManager() *Manager {
	return NewManager(
		game.NewMemoryStore(game.Seed()),
		persona.NewMemoryStore(persona.Seed()),
		Collaborators{Responder: &fakeResponder{reply: "ok"}},
		Options{},
	)
}

func TestManagerCreateValidatesSelection(t *testing.T) {
	tests := []struct {
		name    string
		gameID  string
		persona string
		wantErr error
	}{
		{name: "unknown game", gameID: "tetris", persona: "luka", wantErr: ErrGameNotFound},
		{name: "premium game", gameID: "stardew", persona: "luka", wantErr: ErrGameLocked},
		{name: "unknown persona", gameID: "minesweeper", persona: "nobody", wantErr: ErrPersonaNotFound},
	}

	m := newTestManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.gameID, tt.persona)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, m.List())
}

func TestManagerCreateGreetsAndClose(t *testing.T) {
	m := newTestManager()

	s, err := m.Create(context.Background(), "tft", "mint")
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "안녕하세요! 전략적 팀 전투 (TFT)에서 당신의 AI 게임 친구 민트입니다. 어떻게 도와드릴까요?", msgs[0].Text)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, m.List(), 1)

	require.NoError(t, m.Close(s.ID()))
	assert.True(t, s.Closed())

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID()), ErrSessionNotFound)
}

func TestManagerShutdownClosesAll(t *testing.T) {
	m := newTestManager()
	a, err := m.Create(context.Background(), "minesweeper", "luka")
	require.NoError(t, err)
	b, err := m.Create(context.Background(), "tft", "monday")
	require.NoError(t, err)

	m.Shutdown()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Empty(t, m.List())
}
