package chat

import "time"

// VoiceState tracks the voice input lifecycle of a session.
type VoiceState string

const (
	VoiceIdle       VoiceState = "idle"
	VoiceListening  VoiceState = "listening"
	VoiceProcessing VoiceState = "processing"
)

// ScreenAnalysisState tracks the screen analysis mode of a session.
type ScreenAnalysisState string

const (
	ScreenInactive   ScreenAnalysisState = "inactive"
	ScreenActive     ScreenAnalysisState = "active"
	ScreenProcessing ScreenAnalysisState = "processing"
)

// Session captures a transient game friend conversation.
type Session struct {
	ID          string              `json:"id"`
	GameID      string              `json:"gameId"`
	PersonaID   string              `json:"personaId"`
	VoiceState  VoiceState          `json:"voiceState"`
	ScreenState ScreenAnalysisState `json:"screenState"`
	Muted       bool                `json:"muted"`
	CreatedAt   time.Time           `json:"createdAt"`
}
