package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single entry of a session's conversation log.
type Message struct {
	ID           string    `json:"id"`
	Sender       Sender    `json:"sender"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	IsProcessing bool      `json:"isProcessing,omitempty"`
	IsError      bool      `json:"isError,omitempty"`
}

// PlaceholderText is shown while an assistant reply is still being generated.
const PlaceholderText = "..."
