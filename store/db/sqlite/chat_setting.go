package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/groupmate/store"
)

const settingColumnsList = "chat_id, mode, threshold, personality, language_style, response_length, last_mention_time"

func (d *DB) GetChatSetting(ctx context.Context, chatID string) (*store.ChatSetting, error) {
	var setting store.ChatSetting
	err := d.db.QueryRowContext(ctx,
		"SELECT "+settingColumnsList+" FROM settings WHERE chat_id = ?", chatID,
	).Scan(
		&setting.ChatID,
		&setting.Mode,
		&setting.Threshold,
		&setting.Personality,
		&setting.LanguageStyle,
		&setting.ResponseLength,
		&setting.LastMentionTime,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat setting: %w", err)
	}
	return &setting, nil
}

func (d *DB) UpsertChatSetting(ctx context.Context, upsert *store.ChatSetting) (*store.ChatSetting, error) {
	query := `
		INSERT INTO settings (` + settingColumnsList + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			mode = excluded.mode,
			threshold = excluded.threshold,
			personality = excluded.personality,
			language_style = excluded.language_style,
			response_length = excluded.response_length,
			last_mention_time = excluded.last_mention_time
	`
	if _, err := d.db.ExecContext(ctx, query,
		upsert.ChatID,
		upsert.Mode,
		upsert.Threshold,
		upsert.Personality,
		upsert.LanguageStyle,
		upsert.ResponseLength,
		upsert.LastMentionTime,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert chat setting: %w", err)
	}
	return d.GetChatSetting(ctx, upsert.ChatID)
}

func (d *DB) UpdateChatSetting(ctx context.Context, update *store.UpdateChatSetting) (*store.ChatSetting, error) {
	set, args := []string{}, []any{}
	if update.Mode != nil {
		set, args = append(set, "mode = ?"), append(args, *update.Mode)
	}
	if update.Threshold != nil {
		set, args = append(set, "threshold = ?"), append(args, *update.Threshold)
	}
	if update.Personality != nil {
		set, args = append(set, "personality = ?"), append(args, *update.Personality)
	}
	if update.LanguageStyle != nil {
		set, args = append(set, "language_style = ?"), append(args, *update.LanguageStyle)
	}
	if update.ResponseLength != nil {
		set, args = append(set, "response_length = ?"), append(args, *update.ResponseLength)
	}
	if update.LastMentionTime != nil {
		set, args = append(set, "last_mention_time = ?"), append(args, *update.LastMentionTime)
	}
	if len(set) == 0 {
		return d.GetChatSetting(ctx, update.ChatID)
	}

	args = append(args, update.ChatID)
	query := fmt.Sprintf("UPDATE settings SET %s WHERE chat_id = ?", strings.Join(set, ", "))
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update chat setting: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("chat setting not found: %s", update.ChatID)
	}
	return d.GetChatSetting(ctx, update.ChatID)
}
