package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/mailflow/internal/model"
)

// AddChatMessage records one assistant exchange.
func (s *SQLiteStorage) AddChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: chat message", ErrNilParameter)
	}
	if err := validateString(msg.UserMessage, "userMessage"); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_message, agent_response, context, timestamp)
		VALUES (?, ?, ?, ?)
	`, msg.UserMessage, msg.AgentResponse, nullString(msg.Context), msg.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get chat message id: %w", err)
	}
	msg.ID = id
	return nil
}

// GetChatHistory returns up to limit exchanges, most recent first.
func (s *SQLiteStorage) GetChatHistory(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_message, agent_response, context, timestamp
		FROM chat_history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var chatContext sql.NullString
		if err := rows.Scan(&msg.ID, &msg.UserMessage, &msg.AgentResponse, &chatContext, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msg.Context = chatContext.String
		history = append(history, msg)
	}
	return history, rows.Err()
}

// ClearChatHistory deletes every recorded exchange.
func (s *SQLiteStorage) ClearChatHistory(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_history`); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
