package sqlite

import (
	"context"
	"fmt"

	"github.com/hrygo/groupmate/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	result, err := d.db.ExecContext(ctx,
		"INSERT INTO messages (chat_id, user_id, text, ts) VALUES (?, ?, ?, ?)",
		create.ChatID,
		create.UserID,
		create.Text,
		create.Ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}
	create.ID = id
	return create, nil
}

func (d *DB) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*store.Message, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, chat_id, user_id, text, ts FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?",
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var message store.Message
		if err := rows.Scan(
			&message.ID,
			&message.ChatID,
			&message.UserID,
			&message.Text,
			&message.Ts,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (d *DB) ListChatIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT chat_id FROM messages")
	if err != nil {
		return nil, fmt.Errorf("failed to list chat ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat ids: %w", err)
	}
	return ids, nil
}
