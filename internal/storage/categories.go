package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
)

// UpsertCategory records the category for an email, replacing any previous result.
func (s *SQLiteStorage) UpsertCategory(ctx context.Context, emailID string, category model.Category, confidence string) (*model.CategoryResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(emailID, "emailID"); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO categories (email_id, category, confidence)
		VALUES (?, ?, ?)
		ON CONFLICT(email_id) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			created_at = CURRENT_TIMESTAMP
	`, emailID, string(category), nullString(confidence))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert category: %w", translateConstraintError(err, "category for email "+emailID))
	}

	result, err := s.getCategoryTx(ctx, tx, emailID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category: %w", err)
	}

	slog.Debug("Categorized email", "email_id", emailID, "category", category)
	return result, nil
}

// GetCategory returns the category recorded for an email.
func (s *SQLiteStorage) GetCategory(ctx context.Context, emailID string) (*model.CategoryResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(emailID, "emailID"); err != nil {
		return nil, err
	}
	return s.getCategoryTx(ctx, s.db, emailID)
}

func (s *SQLiteStorage) getCategoryTx(ctx context.Context, q queryable, emailID string) (*model.CategoryResult, error) {
	var result model.CategoryResult
	var category string
	var confidence sql.NullString
	var createdAt sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT id, email_id, category, confidence, created_at
		FROM categories
		WHERE email_id = ?
	`, emailID).Scan(&result.ID, &result.EmailID, &category, &confidence, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category for email %s", common.ErrNotFound, emailID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	result.Category = model.Category(category)
	result.Confidence = confidence.String
	if createdAt.Valid {
		result.CreatedAt = createdAt.Time
	}
	return &result, nil
}
