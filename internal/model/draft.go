package model

import "time"

// DraftKind describes how a draft relates to existing mail.
type DraftKind string

// Draft kinds.
const (
	DraftKindReply   DraftKind = "reply"
	DraftKindNew     DraftKind = "new"
	DraftKindForward DraftKind = "forward"
)

// Draft is a composed message. Drafts are never sent.
type Draft struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	EmailID   string // Empty for freestanding drafts
	Subject   string
	Body      string
	Tone      string
	Kind      DraftKind
	ID        int64
}
