package model

import "time"

// ChatMessage is one exchange with the inbox assistant.
type ChatMessage struct {
	Timestamp     time.Time
	UserMessage   string
	AgentResponse string
	Context       string
	ID            int64
}
