package model

import "time"

// PromptKind tags the purpose of a prompt template.
type PromptKind string

// Prompt kinds used by the extractors.
const (
	PromptCategorization   PromptKind = "categorization"
	PromptActionExtraction PromptKind = "action_extraction"
	PromptAutoReply        PromptKind = "auto_reply"
	PromptUrgency          PromptKind = "urgency_analysis"
)

// Template slot markers substituted verbatim with email fields.
const (
	SlotSender  = "{sender}"
	SlotSubject = "{subject}"
	SlotBody    = "{body}"
)

// PromptTemplate is a named, versioned template. One template per kind is active.
type PromptTemplate struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Description string
	Template    string
	Kind        PromptKind
	Version     string
	ID          int64
	Active      bool
}
