// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/mailflow/internal/model"
)

// EmailFilter defines filtering options for email queries.
// Results are ordered most recent first.
type EmailFilter struct {
	Processed *bool
	Category  model.Category
	Limit     int
}

// InboxStats contains aggregate counts over the whole store.
type InboxStats struct {
	Categories       map[model.Category]int
	TotalEmails      int
	ProcessedEmails  int
	TotalActionItems int
	PendingActions   int
}

// UnprocessedEmails returns the number of emails not yet processed.
func (s InboxStats) UnprocessedEmails() int {
	return s.TotalEmails - s.ProcessedEmails
}

// Storage defines the contract for the record store.
type Storage interface {
	// Email operations
	SaveEmail(ctx context.Context, email *model.Email) error
	GetEmail(ctx context.Context, id string) (*model.Email, error)
	GetEmails(ctx context.Context, filter EmailFilter) ([]model.Email, error)
	GetUnprocessedEmails(ctx context.Context) ([]model.Email, error)
	SearchEmails(ctx context.Context, query string, limit int) ([]model.Email, error)
	MarkEmailProcessed(ctx context.Context, id string, processed bool) error
	ClearEmails(ctx context.Context) error
	GetInboxStats(ctx context.Context) (*InboxStats, error)

	// Category operations
	UpsertCategory(ctx context.Context, emailID string, category model.Category, confidence string) (*model.CategoryResult, error)
	GetCategory(ctx context.Context, emailID string) (*model.CategoryResult, error)

	// Action item operations
	AddActionItem(ctx context.Context, item *model.ActionItem) error
	GetActionItemsByEmail(ctx context.Context, emailID string) ([]model.ActionItem, error)
	GetActionItems(ctx context.Context, completed *bool) ([]model.ActionItem, error)
	SetActionItemCompleted(ctx context.Context, id int64, completed bool) error

	// Draft operations
	SaveDraft(ctx context.Context, draft *model.Draft) error
	GetDraft(ctx context.Context, id int64) (*model.Draft, error)
	GetDraftsByEmail(ctx context.Context, emailID string) ([]model.Draft, error)
	GetDrafts(ctx context.Context) ([]model.Draft, error)
	UpdateDraft(ctx context.Context, id int64, subject, body string) error
	DeleteDraft(ctx context.Context, id int64) error

	// Prompt template operations
	SavePrompt(ctx context.Context, prompt *model.PromptTemplate) error
	GetActivePrompt(ctx context.Context, kind model.PromptKind) (*model.PromptTemplate, error)
	GetPrompts(ctx context.Context) ([]model.PromptTemplate, error)
	UpdatePromptTemplate(ctx context.Context, kind model.PromptKind, template string) error

	// Chat history operations
	AddChatMessage(ctx context.Context, msg *model.ChatMessage) error
	GetChatHistory(ctx context.Context, limit int) ([]model.ChatMessage, error)
	ClearChatHistory(ctx context.Context) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
