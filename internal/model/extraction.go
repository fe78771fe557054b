package model

// ExtractedTask is a task as produced by the action item extractor, before persistence.
type ExtractedTask struct {
	Task     string
	Deadline string
	Priority Priority
}

// ReplyDraft is a generated reply, always fully populated.
type ReplyDraft struct {
	Subject string
	Body    string
	Tone    string
}

// Urgency is the urgency assessment for an email.
type Urgency struct {
	Reason                string
	SuggestedResponseTime string
	Score                 int
}
