package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/llm"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

// HistoryContextLength is how much of a query's context is kept in chat history.
const HistoryContextLength = 500

// DefaultTone is used when a draft is composed without a tone.
const DefaultTone = "professional"

// RecentImportantLimit caps the important emails listed in an inbox summary.
const RecentImportantLimit = 5

// Agent answers inbox questions and composes freestanding drafts.
type Agent struct {
	client  llm.Client
	storage service.Storage
	router  *Router
	inbox   *inbox.Service
	logger  *slog.Logger
}

// NewAgent creates a chat agent.
func NewAgent(client llm.Client, storage service.Storage, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	inboxService := inbox.NewService(storage)
	return &Agent{
		client:  client,
		storage: storage,
		router:  NewRouter(storage, inboxService),
		inbox:   inboxService,
		logger:  logger,
	}
}

// Ask answers query using context from the inbox, or from one email when
// emailID is set, and records the exchange in chat history.
func (a *Agent) Ask(ctx context.Context, query, emailID string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query cannot be empty", common.ErrValidation)
	}

	inboxContext, err := a.router.BuildContext(ctx, query, emailID)
	if err != nil {
		return "", err
	}

	response, err := a.client.Complete(ctx, chatPrompt(query, inboxContext), llm.ChatTemperature, llm.ChatMaxTokens)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	msg := &model.ChatMessage{
		UserMessage:   query,
		AgentResponse: response,
		Context:       Truncate(inboxContext, HistoryContextLength),
	}
	if err := a.storage.AddChatMessage(ctx, msg); err != nil {
		return response, fmt.Errorf("failed to save chat message: %w", err)
	}

	return response, nil
}

func chatPrompt(query, inboxContext string) string {
	return fmt.Sprintf(`You are an intelligent email assistant. Help the user with their email-related query.

Context:
%s

User Query: %s

Provide a helpful, concise response. If the query involves summarizing emails, extracting information, or drafting responses, do so clearly and professionally.`, inboxContext, query)
}

// ComposeDraft writes a new email that is not a reply and saves it as a draft.
func (a *Agent) ComposeDraft(ctx context.Context, subject, instructions, tone string) (*model.Draft, error) {
	if tone == "" {
		tone = DefaultTone
	}

	prompt := fmt.Sprintf(`Generate a professional email with the following requirements:

Subject: %s
Context/Purpose: %s
Tone: %s

Write a complete, well-structured email body. Be concise and professional.`, subject, instructions, tone)

	body, err := a.client.Complete(ctx, prompt, llm.ComposeTemperature, llm.ComposeMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("draft composition failed: %w", err)
	}

	draft := &model.Draft{
		Subject: subject,
		Body:    body,
		Tone:    tone,
		Kind:    model.DraftKindNew,
	}
	if err := a.storage.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	a.logger.Info("Composed draft", "draft_id", draft.ID, "tone", tone)
	return draft, nil
}

// InboxSummary is an overview of the inbox.
type InboxSummary struct {
	Stats           *service.InboxStats
	RecentImportant []model.Email
	ImportantCount  int
	TodoCount       int
	PendingActions  int
}

// InboxSummary gathers statistics and highlights.
func (a *Agent) InboxSummary(ctx context.Context) (*InboxSummary, error) {
	stats, err := a.inbox.Stats(ctx)
	if err != nil {
		return nil, err
	}

	important, err := a.storage.GetEmails(ctx, service.EmailFilter{Category: model.CategoryImportant})
	if err != nil {
		return nil, fmt.Errorf("failed to list important emails: %w", err)
	}
	todo, err := a.storage.GetEmails(ctx, service.EmailFilter{Category: model.CategoryToDo})
	if err != nil {
		return nil, fmt.Errorf("failed to list to-do emails: %w", err)
	}

	return &InboxSummary{
		Stats:           stats,
		ImportantCount:  len(important),
		TodoCount:       len(todo),
		PendingActions:  stats.PendingActions,
		RecentImportant: important[:min(len(important), RecentImportantLimit)],
	}, nil
}

// History returns recent exchanges, newest first.
func (a *Agent) History(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	return a.storage.GetChatHistory(ctx, limit)
}

// ClearHistory deletes every recorded exchange.
func (a *Agent) ClearHistory(ctx context.Context) error {
	return a.storage.ClearChatHistory(ctx)
}
