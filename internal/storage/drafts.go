package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
)

const draftColumns = `id, email_id, subject, body, tone, draft_type, created_at, updated_at`

// SaveDraft stores a new draft and sets its ID.
func (s *SQLiteStorage) SaveDraft(ctx context.Context, draft *model.Draft) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if draft != nil && draft.Kind == "" {
		draft.Kind = model.DraftKindReply
	}
	if err := validateDraft(draft); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (email_id, subject, body, tone, draft_type)
		VALUES (?, ?, ?, ?, ?)
	`, nullString(draft.EmailID), draft.Subject, draft.Body, nullString(draft.Tone), string(draft.Kind))
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", translateConstraintError(err, "draft"))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get draft id: %w", err)
	}
	draft.ID = id
	return nil
}

// GetDraft retrieves a draft by ID.
func (s *SQLiteStorage) GetDraft(ctx context.Context, id int64) (*model.Draft, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: draft %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return draft, nil
}

// GetDraftsByEmail returns the drafts attached to an email, oldest first.
func (s *SQLiteStorage) GetDraftsByEmail(ctx context.Context, emailID string) ([]model.Draft, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(emailID, "emailID"); err != nil {
		return nil, err
	}
	return s.queryDrafts(ctx, s.db, `SELECT `+draftColumns+` FROM drafts WHERE email_id = ? ORDER BY id`, emailID)
}

// GetDrafts lists every draft, most recent first.
func (s *SQLiteStorage) GetDrafts(ctx context.Context) ([]model.Draft, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryDrafts(ctx, s.db, `SELECT `+draftColumns+` FROM drafts ORDER BY created_at DESC, id DESC`)
}

// UpdateDraft replaces the subject and/or body of a draft. Empty values are left unchanged.
func (s *SQLiteStorage) UpdateDraft(ctx context.Context, id int64, subject, body string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any
	if subject != "" {
		sets = append(sets, "subject = ?")
		args = append(args, subject)
	}
	if body != "" {
		sets = append(sets, "body = ?")
		args = append(args, body)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE drafts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("draft %d", id))
}

// DeleteDraft removes a draft.
func (s *SQLiteStorage) DeleteDraft(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("draft %d", id))
}

func (s *SQLiteStorage) queryDrafts(ctx context.Context, q queryable, query string, args ...any) ([]model.Draft, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var drafts []model.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *draft)
	}
	return drafts, rows.Err()
}

func scanDraft(row rowScanner) (*model.Draft, error) {
	var draft model.Draft
	var emailID, tone sql.NullString
	var kind string
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&draft.ID, &emailID, &draft.Subject, &draft.Body, &tone, &kind, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	draft.EmailID = emailID.String
	draft.Tone = tone.String
	draft.Kind = model.DraftKind(kind)
	if createdAt.Valid {
		draft.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		draft.UpdatedAt = updatedAt.Time
	}
	return &draft, nil
}
