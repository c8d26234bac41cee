package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	result string
	err    error
	gate   chan struct{}
	frames [][]byte
}

func (f *fakeAnalyzer) AnalyzeScreen(ctx context.Context, image []byte, _ game.Game) (string, error) {
	f.mu.Lock()
	f.frames = append(f.frames, image)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestScreenToggleOnThenOff(t *testing.T) {
	analyzer := &fakeAnalyzer{result: "왼쪽 위 모서리가 안전해 보입니다."}
	synth := &fakeSynthesizer{}
	s := newTestSession(t, Collaborators{Analyzer: analyzer, Synthesizer: synth})
	s.Frames().Push([]byte("png"))

	require.NoError(t, s.Screen().Toggle(context.Background()))
	assert.Equal(t, chat.ScreenActive, s.Screen().State())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, screenStartText, msgs[0].Text)
	assert.Equal(t, "왼쪽 위 모서리가 안전해 보입니다.", msgs[1].Text)

	require.NoError(t, s.Screen().Toggle(context.Background()))
	assert.Equal(t, chat.ScreenInactive, s.Screen().State())

	msgs = s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, screenStopText, msgs[2].Text)

	s.wg.Wait()
	assert.Equal(t, 1, synth.count(), "only the analysis result is spoken")
	assert.Equal(t, []byte("png"), analyzer.frames[0])
}

func TestScreenAnalysisFailureDeactivates(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("vision model offline")}
	s := newTestSession(t, Collaborators{Analyzer: analyzer})

	require.NoError(t, s.Screen().Toggle(context.Background()))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.Equal(t, screenErrorText, msgs[1].Text)
	assert.Equal(t, chat.ScreenInactive, s.Screen().State())
}

func TestScreenToggleOffDiscardsInFlightResult(t *testing.T) {
	analyzer := &fakeAnalyzer{result: "stale", gate: make(chan struct{})}
	s := newTestSession(t, Collaborators{Analyzer: analyzer})

	done := make(chan error, 1)
	go func() { done <- s.Screen().Toggle(context.Background()) }()
	require.Eventually(t, func() bool { return s.Screen().State() == chat.ScreenProcessing }, time.Second, time.Millisecond)

	require.NoError(t, s.Screen().Toggle(context.Background()))
	close(analyzer.gate)
	require.NoError(t, <-done)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, screenStartText, msgs[0].Text)
	assert.Equal(t, screenStopText, msgs[1].Text)
	assert.Equal(t, chat.ScreenInactive, s.Screen().State())
}

func TestScreenCadenceRepeatsWhileActive(t *testing.T) {
	analyzer := &fakeAnalyzer{result: "계속 진행 중"}
	s := New(minesweeper, luka, Collaborators{Analyzer: analyzer}, Options{AnalysisInterval: 5 * time.Millisecond})
	defer s.Close()

	require.NoError(t, s.Screen().Toggle(context.Background()))
	require.Eventually(t, func() bool { return analyzer.calls() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, s.Screen().Toggle(context.Background()))
	assert.Equal(t, chat.ScreenInactive, s.Screen().State())
}

func TestScreenToggleAfterCloseFails(t *testing.T) {
	s := newTestSession(t, Collaborators{Analyzer: &fakeAnalyzer{}})
	s.Close()

	assert.ErrorIs(t, s.Screen().Toggle(context.Background()), ErrSessionClosed)
}
