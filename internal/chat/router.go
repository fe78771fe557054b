// Package chat answers free-form questions about the inbox.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

// Context size limits, in characters.
const (
	MaxContextLength  = 4000
	EmailBodyPreview  = 500
	RecentSummaryCap  = 1000
	ContextItemsLimit = 10
)

// Route names the strategy used to build a chat context.
type Route string

// Context routes in evaluation order.
const (
	RouteEmail   Route = "email"
	RouteUrgent  Route = "urgent"
	RouteTasks   Route = "tasks"
	RouteMeeting Route = "meeting"
	RouteGeneral Route = "general"
)

var keywordRoutes = []struct {
	route    Route
	keywords []string
}{
	{RouteUrgent, []string{"urgent", "important"}},
	{RouteTasks, []string{"task", "to-do", "action"}},
	{RouteMeeting, []string{"meeting"}},
}

// Router builds the inbox context injected into chat prompts.
type Router struct {
	storage service.Storage
	inbox   *inbox.Service
}

// NewRouter creates a context router.
func NewRouter(storage service.Storage, inboxService *inbox.Service) *Router {
	return &Router{storage: storage, inbox: inboxService}
}

// Classify picks the route for query. An explicit email ID always wins,
// then the first keyword group found in the lower-cased query.
func Classify(query, emailID string) Route {
	if emailID != "" {
		return RouteEmail
	}
	lower := strings.ToLower(query)
	for _, kr := range keywordRoutes {
		for _, keyword := range kr.keywords {
			if strings.Contains(lower, keyword) {
				return kr.route
			}
		}
	}
	return RouteGeneral
}

// BuildContext renders the context for query, at most MaxContextLength characters.
func (r *Router) BuildContext(ctx context.Context, query, emailID string) (string, error) {
	var (
		text string
		err  error
	)
	switch Classify(query, emailID) {
	case RouteEmail:
		text, err = r.emailContext(ctx, emailID)
	case RouteUrgent:
		text, err = r.inbox.Summary(ctx, model.CategoryImportant, 0)
	case RouteTasks:
		text, err = r.taskContext(ctx)
	case RouteMeeting:
		text, err = r.meetingContext(ctx)
	default:
		text, err = r.generalContext(ctx)
	}
	if err != nil {
		return "", err
	}
	return Truncate(text, MaxContextLength), nil
}

func (r *Router) emailContext(ctx context.Context, emailID string) (string, error) {
	email, err := r.storage.GetEmail(ctx, emailID)
	if err != nil {
		return "", fmt.Errorf("failed to load email %s: %w", emailID, err)
	}
	category, err := r.inbox.CategoryName(ctx, emailID)
	if err != nil {
		return "", err
	}
	items, err := r.storage.GetActionItemsByEmail(ctx, emailID)
	if err != nil {
		return "", fmt.Errorf("failed to get action items: %w", err)
	}

	var b strings.Builder
	b.WriteString("Email Details:\n")
	fmt.Fprintf(&b, "From: %s (%s)\n", email.DisplaySender(), email.Sender)
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	fmt.Fprintf(&b, "Body: %s...\n", Truncate(email.Body, EmailBodyPreview))
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Action Items: %d\n", len(items))
	return b.String(), nil
}

func (r *Router) taskContext(ctx context.Context) (string, error) {
	summary, err := r.inbox.Summary(ctx, model.CategoryToDo, 0)
	if err != nil {
		return "", err
	}

	pending := false
	items, err := r.storage.GetActionItems(ctx, &pending)
	if err != nil {
		return "", fmt.Errorf("failed to get pending action items: %w", err)
	}
	if len(items) == 0 {
		return summary, nil
	}

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nPending Action Items:\n")
	for _, item := range items[:min(len(items), ContextItemsLimit)] {
		b.WriteString("- " + item.Task)
		if item.Deadline != "" {
			fmt.Fprintf(&b, " (Due: %s)", item.Deadline)
		}
		fmt.Fprintf(&b, " [Priority: %s]\n", item.Priority)
	}
	return b.String(), nil
}

func (r *Router) meetingContext(ctx context.Context) (string, error) {
	emails, err := r.inbox.Search(ctx, "meeting", ContextItemsLimit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Meeting-related emails:\n")
	for i := range emails {
		fmt.Fprintf(&b, "- %s (From: %s)\n", emails[i].Subject, emails[i].DisplaySender())
	}
	return b.String(), nil
}

func (r *Router) generalContext(ctx context.Context) (string, error) {
	stats, err := r.inbox.Stats(ctx)
	if err != nil {
		return "", err
	}
	recent, err := r.inbox.Summary(ctx, "", 0)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Inbox Statistics:\n")
	fmt.Fprintf(&b, "- Total emails: %d\n", stats.TotalEmails)
	fmt.Fprintf(&b, "- Processed: %d\n", stats.ProcessedEmails)
	fmt.Fprintf(&b, "- Categories: %s\n", inbox.FormatCategories(stats.Categories))
	fmt.Fprintf(&b, "- Pending action items: %d\n", stats.PendingActions)
	b.WriteString("\nRecent emails:\n")
	b.WriteString(Truncate(recent, RecentSummaryCap))
	b.WriteString("\n")
	return b.String(), nil
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
