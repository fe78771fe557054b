package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/mailflow/internal/model"
)

// AddActionItem appends an action item. Existing items for the email are never replaced.
func (s *SQLiteStorage) AddActionItem(ctx context.Context, item *model.ActionItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateActionItem(item); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO action_items (email_id, task, deadline, priority, completed)
		VALUES (?, ?, ?, ?, ?)
	`, item.EmailID, item.Task, nullString(item.Deadline), string(item.Priority), item.Completed)
	if err != nil {
		return fmt.Errorf("failed to add action item: %w", translateConstraintError(err, "action item for email "+item.EmailID))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get action item id: %w", err)
	}
	item.ID = id
	return nil
}

// GetActionItemsByEmail returns the action items of one email in insertion order.
func (s *SQLiteStorage) GetActionItemsByEmail(ctx context.Context, emailID string) ([]model.ActionItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(emailID, "emailID"); err != nil {
		return nil, err
	}
	return s.queryActionItems(ctx, s.db, `
		SELECT id, email_id, task, deadline, priority, completed, created_at
		FROM action_items
		WHERE email_id = ?
		ORDER BY id
	`, emailID)
}

// GetActionItems lists action items, optionally filtered by completion.
func (s *SQLiteStorage) GetActionItems(ctx context.Context, completed *bool) ([]model.ActionItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, email_id, task, deadline, priority, completed, created_at FROM action_items`
	var args []any
	if completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, *completed)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return s.queryActionItems(ctx, s.db, query, args...)
}

// SetActionItemCompleted marks an action item done or pending.
func (s *SQLiteStorage) SetActionItemCompleted(ctx context.Context, id int64, completed bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE action_items SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("failed to update action item: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("action item %d", id))
}

func (s *SQLiteStorage) queryActionItems(ctx context.Context, q queryable, query string, args ...any) ([]model.ActionItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query action items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.ActionItem
	for rows.Next() {
		var item model.ActionItem
		var deadline sql.NullString
		var priority string
		var createdAt sql.NullTime

		if err := rows.Scan(&item.ID, &item.EmailID, &item.Task, &deadline, &priority, &item.Completed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		item.Deadline = deadline.String
		item.Priority = model.Priority(priority)
		if createdAt.Valid {
			item.CreatedAt = createdAt.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
