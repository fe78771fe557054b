package model

import (
	"strings"
	"time"
)

// Category is the label assigned to an email by the categorization stage.
type Category string

// Fixed category set.
const (
	CategoryImportant  Category = "Important"
	CategoryNewsletter Category = "Newsletter"
	CategorySpam       Category = "Spam"
	CategoryToDo       Category = "To-Do"
)

// ValidCategories lists every category in match priority order.
var ValidCategories = []Category{
	CategoryImportant,
	CategoryNewsletter,
	CategorySpam,
	CategoryToDo,
}

// IsValid reports whether c belongs to the fixed category set.
func (c Category) IsValid() bool {
	for _, valid := range ValidCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// NeedsReply reports whether emails of this category get a reply draft.
func (c Category) NeedsReply() bool {
	return c == CategoryImportant || c == CategoryToDo
}

// ParseCategory resolves a user-supplied category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, valid := range ValidCategories {
		if strings.EqualFold(s, string(valid)) {
			return valid, true
		}
	}
	return "", false
}

// CategoryResult is the categorization outcome for one email.
// There is at most one per email; re-categorization overwrites it.
type CategoryResult struct {
	CreatedAt  time.Time
	EmailID    string
	Category   Category
	Confidence string
	ID         int64
}
