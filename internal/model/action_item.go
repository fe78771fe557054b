package model

import (
	"strings"
	"time"
)

// Priority ranks an action item.
type Priority string

// Priority levels.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority maps free-form priority text onto a known level, defaulting to medium.
func NormalizePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ActionItem is a task extracted from an email.
type ActionItem struct {
	CreatedAt time.Time
	EmailID   string
	Task      string
	Deadline  string // Free-form, empty when none was given
	Priority  Priority
	ID        int64
	Completed bool
}
