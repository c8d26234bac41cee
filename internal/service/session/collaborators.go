package session

import (
	"context"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
)

// Transcriber turns a recorded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

// ResponseRequest carries everything a responder needs for one reply.
type ResponseRequest struct {
	Utterance string
	Game      game.Game
	Persona   persona.Persona
	// History holds prior turns formatted as "<speaker>: <text>".
	History []string
}

// Responder produces the persona's reply to an utterance.
type Responder interface {
	GenerateResponse(ctx context.Context, req ResponseRequest) (string, error)
}

// ScreenAnalyzer describes a captured game screen.
type ScreenAnalyzer interface {
	AnalyzeScreen(ctx context.Context, image []byte, g game.Game) (string, error)
}

// SpeechRequest asks for text to be spoken in a persona's voice.
type SpeechRequest struct {
	Text    string
	Persona persona.Persona
	// Prompt is the user utterance the text answers, empty for notices.
	Prompt string
	// History holds the conversation so far, formatted like ResponseRequest.History.
	History []string
}

// Speech is synthesized audio ready to be played by the client.
type Speech struct {
	Text   string `json:"text"`
	Audio  []byte `json:"audio,omitempty"`
	Format string `json:"format,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// SpeechSynthesizer speaks text. A nil Speech with a nil error means the
// client should voice the text itself.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*Speech, error)
}

// Collaborators bundles the external services a session depends on.
type Collaborators struct {
	Transcriber Transcriber
	Responder   Responder
	Analyzer    ScreenAnalyzer
	Synthesizer SpeechSynthesizer
}
