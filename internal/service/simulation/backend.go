// Package simulation provides canned stand-ins for the transcription,
// response, vision and speech services so the product runs without
// credentials.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// Delays mimic the latency of the real services.
type Delays struct {
	Transcribe time.Duration
	Respond    time.Duration
	Analyze    time.Duration
}

// DefaultDelays matches the latency the product was tuned against.
func DefaultDelays() Delays {
	return Delays{
		Transcribe: 1500 * time.Millisecond,
		Respond:    2000 * time.Millisecond,
		Analyze:    2000 * time.Millisecond,
	}
}

// Backend implements every session collaborator with canned content.
type Backend struct {
	delays Delays

	mu  sync.Mutex
	rnd *rand.Rand
}

// New builds a Backend. A zero seed picks a random one.
func New(delays Delays, seed uint64) *Backend {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Backend{delays: delays, rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var (
	_ session.Transcriber       = (*Backend)(nil)
	_ session.Responder         = (*Backend)(nil)
	_ session.ScreenAnalyzer    = (*Backend)(nil)
	_ session.SpeechSynthesizer = (*Backend)(nil)
)

// Transcribe returns one of the stock player questions.
func (b *Backend) Transcribe(ctx context.Context, _ audio.Clip) (string, error) {
	if err := sleep(ctx, b.delays.Transcribe); err != nil {
		return "", err
	}
	return b.pick(transcriptionPhrases), nil
}

// GenerateResponse answers in the style of the selected persona.
func (b *Backend) GenerateResponse(ctx context.Context, req session.ResponseRequest) (string, error) {
	if err := sleep(ctx, b.delays.Respond); err != nil {
		return "", err
	}

	name := req.Game.Name
	switch req.Persona.ID {
	case "luka":
		return fmt.Sprintf("%s에 대한 분석 결과, 다음 전략을 추천합니다: %s %s. 이 접근 방식은 %s에서 더 높은 성공률을 보입니다.",
			name, b.pick(analyticalFindings), b.pick(analyticalStrategies), name), nil
	case "monday":
		return fmt.Sprintf("%s %s 할 때 %s. %s 어떻게 되는지 알려줘!",
			b.pick(casualIntros), name, b.pick(casualReactions), b.pick(casualAdvice)), nil
	case "mint":
		return fmt.Sprintf("정말 잘하고 있어요! %s %s %s을(를) 플레이할 때, %s.",
			b.pick(encouragements), b.pick(positivity), name, b.pick(positiveTips)), nil
	default:
		return fmt.Sprintf("%s에 대해 도움이 필요하신가요? 무엇을 알고 싶으신가요?", name), nil
	}
}

// AnalyzeScreen returns a stock observation for the game.
func (b *Backend) AnalyzeScreen(ctx context.Context, _ []byte, g game.Game) (string, error) {
	if err := sleep(ctx, b.delays.Analyze); err != nil {
		return "", err
	}
	observations, ok := screenObservations[g.ID]
	if !ok {
		return unknownScreenObservation, nil
	}
	return b.pick(observations), nil
}

// SynthesizeSpeech leaves playback to the client's own speech engine.
func (b *Backend) SynthesizeSpeech(context.Context, session.SpeechRequest) (*session.Speech, error) {
	return nil, nil
}

func (b *Backend) pick(items []string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return items[b.rnd.IntN(len(items))]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
