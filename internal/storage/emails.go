package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

const emailColumns = `e.id, e.sender, e.sender_name, e.subject, e.body, e.timestamp,
	e.has_attachments, e.labels, e.processed, e.created_at`

// SaveEmail inserts an email or refreshes its content when the ID already exists.
// The processed flag of an existing email is left untouched.
func (s *SQLiteStorage) SaveEmail(ctx context.Context, email *model.Email) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}

	labels := email.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emails (id, sender, sender_name, subject, body, timestamp, has_attachments, labels, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sender = excluded.sender,
			sender_name = excluded.sender_name,
			subject = excluded.subject,
			body = excluded.body,
			timestamp = excluded.timestamp,
			has_attachments = excluded.has_attachments,
			labels = excluded.labels
	`,
		email.ID,
		email.Sender,
		nullString(email.SenderName),
		email.Subject,
		email.Body,
		email.Timestamp.UTC(),
		email.HasAttachments,
		string(labelsJSON),
		email.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to save email %s: %w", email.ID, translateConstraintError(err, "email"))
	}

	slog.Debug("Saved email", "id", email.ID, "sender", email.Sender)
	return nil
}

// GetEmail retrieves a single email by ID.
func (s *SQLiteStorage) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails e WHERE e.id = ?`, id)
	email, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: email %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return email, nil
}

// GetEmails lists emails most recent first, optionally filtered.
func (s *SQLiteStorage) GetEmails(ctx context.Context, filter service.EmailFilter) ([]model.Email, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + emailColumns + ` FROM emails e`
	var conditions []string
	var args []any

	if filter.Category != "" {
		if err := validateCategory(filter.Category); err != nil {
			return nil, err
		}
		query += ` JOIN categories c ON c.email_id = e.id`
		conditions = append(conditions, "c.category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Processed != nil {
		conditions = append(conditions, "e.processed = ?")
		args = append(args, *filter.Processed)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.timestamp DESC, e.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryEmails(ctx, s.db, query, args...)
}

// GetUnprocessedEmails returns every email not yet processed, oldest first.
func (s *SQLiteStorage) GetUnprocessedEmails(ctx context.Context) ([]model.Email, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryEmails(ctx, s.db,
		`SELECT `+emailColumns+` FROM emails e WHERE e.processed = 0 ORDER BY e.timestamp ASC, e.id`)
}

// SearchEmails matches query case-insensitively against subject, body and sender.
func (s *SQLiteStorage) SearchEmails(ctx context.Context, query string, limit int) ([]model.Email, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query, "query"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return s.queryEmails(ctx, s.db, `
		SELECT `+emailColumns+` FROM emails e
		WHERE LOWER(e.subject) LIKE ? ESCAPE '\'
		   OR LOWER(e.body) LIKE ? ESCAPE '\'
		   OR LOWER(e.sender) LIKE ? ESCAPE '\'
		   OR LOWER(COALESCE(e.sender_name, '')) LIKE ? ESCAPE '\'
		ORDER BY e.timestamp DESC, e.id
		LIMIT ?
	`, pattern, pattern, pattern, pattern, limit)
}

// MarkEmailProcessed sets the processed flag on an email.
func (s *SQLiteStorage) MarkEmailProcessed(ctx context.Context, id string, processed bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE emails SET processed = ? WHERE id = ?`, processed, id)
	if err != nil {
		return fmt.Errorf("failed to mark email processed: %w", err)
	}
	return requireAffected(res, "email "+id)
}

// ClearEmails removes every email together with its categories, action items and drafts.
// Freestanding drafts are kept.
func (s *SQLiteStorage) ClearEmails(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM emails`)
	if err != nil {
		return fmt.Errorf("failed to clear emails: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		slog.Info("Cleared emails", "count", n)
	}
	return nil
}

// GetInboxStats computes aggregate counts over the store.
func (s *SQLiteStorage) GetInboxStats(ctx context.Context) (*service.InboxStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	stats := &service.InboxStats{Categories: make(map[model.Category]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM emails
	`).Scan(&stats.TotalEmails, &stats.ProcessedEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed = 0 THEN 1 ELSE 0 END), 0) FROM action_items
	`).Scan(&stats.TotalActionItems, &stats.PendingActions)
	if err != nil {
		return nil, fmt.Errorf("failed to count action items: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM categories GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.Categories[model.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}

	return stats, nil
}

func (s *SQLiteStorage) queryEmails(ctx context.Context, q queryable, query string, args ...any) ([]model.Email, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var emails []model.Email
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, *email)
	}
	return emails, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (*model.Email, error) {
	var email model.Email
	var senderName sql.NullString
	var labelsJSON string
	var createdAt sql.NullTime

	err := row.Scan(
		&email.ID,
		&email.Sender,
		&senderName,
		&email.Subject,
		&email.Body,
		&email.Timestamp,
		&email.HasAttachments,
		&labelsJSON,
		&email.Processed,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	email.SenderName = senderName.String
	if createdAt.Valid {
		email.CreatedAt = createdAt.Time
	}
	if labelsJSON != "" {
		if err := json.Unmarshal([]byte(labelsJSON), &email.Labels); err != nil {
			slog.Warn("Failed to parse labels JSON", "error", err, "email_id", email.ID)
		}
	}
	return &email, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
