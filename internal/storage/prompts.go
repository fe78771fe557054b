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

const promptColumns = `id, name, prompt_type, template, description, version, is_active, created_at, updated_at`

// SavePrompt inserts or updates a template by name. An active template
// deactivates any other active template of the same kind.
func (s *SQLiteStorage) SavePrompt(ctx context.Context, prompt *model.PromptTemplate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePrompt(prompt); err != nil {
		return err
	}
	if prompt.Version == "" {
		prompt.Version = "1.0"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if prompt.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE prompts SET is_active = 0, updated_at = CURRENT_TIMESTAMP
			WHERE prompt_type = ? AND name != ? AND is_active = 1
		`, string(prompt.Kind), prompt.Name); err != nil {
			return fmt.Errorf("failed to deactivate prompts: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO prompts (name, prompt_type, template, description, version, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			prompt_type = excluded.prompt_type,
			template = excluded.template,
			description = excluded.description,
			version = excluded.version,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP
	`, prompt.Name, string(prompt.Kind), prompt.Template, nullString(prompt.Description), prompt.Version, prompt.Active)
	if err != nil {
		return fmt.Errorf("failed to save prompt: %w", translateConstraintError(err, "prompt "+prompt.Name))
	}

	if err := tx.QueryRowContext(ctx, `SELECT id FROM prompts WHERE name = ?`, prompt.Name).Scan(&prompt.ID); err != nil {
		return fmt.Errorf("failed to read prompt id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prompt: %w", err)
	}

	slog.Debug("Saved prompt", "name", prompt.Name, "kind", prompt.Kind, "active", prompt.Active)
	return nil
}

// GetActivePrompt returns the active template of a kind.
func (s *SQLiteStorage) GetActivePrompt(ctx context.Context, kind model.PromptKind) (*model.PromptTemplate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(string(kind), "kind"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE prompt_type = ? AND is_active = 1`, string(kind))
	prompt, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: active prompt for %s", common.ErrNotFound, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return prompt, nil
}

// GetPrompts lists every template ordered by kind and name.
func (s *SQLiteStorage) GetPrompts(ctx context.Context) ([]model.PromptTemplate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY prompt_type, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prompts []model.PromptTemplate
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, *prompt)
	}
	return prompts, rows.Err()
}

// UpdatePromptTemplate replaces the text of the active template of a kind.
func (s *SQLiteStorage) UpdatePromptTemplate(ctx context.Context, kind model.PromptKind, template string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(template, "template"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE prompts SET template = ?, updated_at = CURRENT_TIMESTAMP
		WHERE prompt_type = ? AND is_active = 1
	`, template, string(kind))
	if err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}
	return requireAffected(res, "active prompt for "+string(kind))
}

func scanPrompt(row rowScanner) (*model.PromptTemplate, error) {
	var prompt model.PromptTemplate
	var kind string
	var description sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&prompt.ID, &prompt.Name, &kind, &prompt.Template, &description,
		&prompt.Version, &prompt.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	prompt.Kind = model.PromptKind(kind)
	prompt.Description = description.String
	if createdAt.Valid {
		prompt.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		prompt.UpdatedAt = updatedAt.Time
	}
	return &prompt, nil
}
