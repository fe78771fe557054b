// Package inbox loads emails into the record store and renders inbox views.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

// SummaryLimit caps the number of lines in an email summary.
const SummaryLimit = 50

// NoEmails is the summary text for an empty selection.
const NoEmails = "No emails found."

// Service wraps the record store with inbox level operations.
type Service struct {
	storage service.Storage
}

// NewService creates an inbox service.
func NewService(storage service.Storage) *Service {
	return &Service{storage: storage}
}

// LoadResult reports the outcome of a bulk load.
type LoadResult struct {
	Errors []string
	Loaded int
	Failed int
}

type mockInbox struct {
	Emails []mockEmail `json:"emails"`
}

type mockEmail struct {
	ID             string   `json:"id"`
	Sender         string   `json:"sender"`
	SenderName     string   `json:"sender_name"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	Timestamp      string   `json:"timestamp"`
	Labels         []string `json:"labels"`
	HasAttachments bool     `json:"has_attachments"`
}

// LoadFile loads a mock inbox JSON file.
func (s *Service) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied inbox path
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return s.LoadJSON(ctx, f)
}

// LoadJSON loads emails from a mock inbox document. Emails that fail to
// parse or already exist are counted as failed and do not stop the load.
func (s *Service) LoadJSON(ctx context.Context, r io.Reader) (*LoadResult, error) {
	var doc mockInbox
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse inbox: %w", err)
	}

	result := &LoadResult{}
	for _, entry := range doc.Emails {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.loadOne(ctx, entry); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to load email %s: %v", entry.ID, err))
			slog.Warn("Failed to load email", "id", entry.ID, "error", err)
			continue
		}
		result.Loaded++
	}

	slog.Info("Loaded inbox", "loaded", result.Loaded, "failed", result.Failed)
	return result, nil
}

func (s *Service) loadOne(ctx context.Context, entry mockEmail) error {
	ts, err := ParseTimestamp(entry.Timestamp)
	if err != nil {
		return err
	}
	if err := s.ensureNew(ctx, entry.ID); err != nil {
		return err
	}

	email := model.Email{
		ID:             entry.ID,
		Sender:         entry.Sender,
		SenderName:     entry.SenderName,
		Subject:        entry.Subject,
		Body:           entry.Body,
		Timestamp:      ts,
		Labels:         entry.Labels,
		HasAttachments: entry.HasAttachments,
	}
	return s.storage.SaveEmail(ctx, &email)
}

// ensureNew rejects IDs already in the store so a reload never rewrites content.
func (s *Service) ensureNew(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	_, err := s.storage.GetEmail(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: email %s already exists", common.ErrDuplicateEntry, id)
	case errors.Is(err, common.ErrNotFound):
		return nil
	default:
		return err
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts ISO 8601 timestamps with or without an offset.
// Timestamps without an offset are taken as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", common.ErrValidation, value)
}

// Summary renders one line per email, most recent first. An empty category
// selects every email and a non-positive limit uses SummaryLimit.
func (s *Service) Summary(ctx context.Context, category model.Category, limit int) (string, error) {
	if limit <= 0 {
		limit = SummaryLimit
	}
	emails, err := s.storage.GetEmails(ctx, service.EmailFilter{Category: category, Limit: limit})
	if err != nil {
		return "", fmt.Errorf("failed to list emails: %w", err)
	}
	if len(emails) == 0 {
		return NoEmails, nil
	}

	lines := make([]string, 0, len(emails))
	for i := range emails {
		name, err := s.CategoryName(ctx, emails[i].ID)
		if err != nil {
			return "", err
		}
		lines = append(lines, SummaryLine(&emails[i], name))
	}
	return strings.Join(lines, "\n"), nil
}

// SummaryLine renders a single email for a summary.
func SummaryLine(email *model.Email, category string) string {
	return fmt.Sprintf("[%s] From: %s | Subject: %s | Date: %s",
		category, email.DisplaySender(), email.Subject, email.Timestamp.Format("2006-01-02 15:04"))
}

// CategoryName returns the category label for an email, "Uncategorized" when none is recorded.
func (s *Service) CategoryName(ctx context.Context, emailID string) (string, error) {
	result, err := s.storage.GetCategory(ctx, emailID)
	if errors.Is(err, common.ErrNotFound) {
		return "Uncategorized", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get category for %s: %w", emailID, err)
	}
	return string(result.Category), nil
}

// Stats returns aggregate inbox statistics.
func (s *Service) Stats(ctx context.Context) (*service.InboxStats, error) {
	stats, err := s.storage.GetInboxStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox statistics: %w", err)
	}
	return stats, nil
}

// FormatCategories renders per-category counts in category order.
func FormatCategories(counts map[model.Category]int) string {
	parts := make([]string, 0, len(counts))
	for _, category := range model.ValidCategories {
		if n, ok := counts[category]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", category, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// Search matches query against subject, body and sender.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]model.Email, error) {
	emails, err := s.storage.SearchEmails(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	return emails, nil
}

// Clear removes every email and its derived records.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.storage.ClearEmails(ctx); err != nil {
		return fmt.Errorf("failed to clear inbox: %w", err)
	}
	return nil
}
