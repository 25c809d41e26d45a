package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/groupmate/store"
)

const settingColumnsList = "chat_id, mode, threshold, personality, language_style, response_length, last_mention_time"

func scanSetting(row interface{ Scan(...any) error }) (*store.ChatSetting, error) {
	var setting store.ChatSetting
	if err := row.Scan(
		&setting.ChatID,
		&setting.Mode,
		&setting.Threshold,
		&setting.Personality,
		&setting.LanguageStyle,
		&setting.ResponseLength,
		&setting.LastMentionTime,
	); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (d *DB) GetChatSetting(ctx context.Context, chatID string) (*store.ChatSetting, error) {
	query := "SELECT " + settingColumnsList + " FROM settings WHERE chat_id = $1"
	setting, err := scanSetting(d.db.QueryRowContext(ctx, query, chatID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat setting: %w", err)
	}
	return setting, nil
}

func (d *DB) UpsertChatSetting(ctx context.Context, upsert *store.ChatSetting) (*store.ChatSetting, error) {
	query := `
		INSERT INTO settings (` + settingColumnsList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			threshold = EXCLUDED.threshold,
			personality = EXCLUDED.personality,
			language_style = EXCLUDED.language_style,
			response_length = EXCLUDED.response_length,
			last_mention_time = EXCLUDED.last_mention_time
		RETURNING ` + settingColumnsList
	setting, err := scanSetting(d.db.QueryRowContext(ctx, query,
		upsert.ChatID,
		upsert.Mode,
		upsert.Threshold,
		upsert.Personality,
		upsert.LanguageStyle,
		upsert.ResponseLength,
		upsert.LastMentionTime,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chat setting: %w", err)
	}
	return setting, nil
}

func (d *DB) UpdateChatSetting(ctx context.Context, update *store.UpdateChatSetting) (*store.ChatSetting, error) {
	set, args := []string{}, []any{}
	if update.Mode != nil {
		args = append(args, *update.Mode)
		set = append(set, fmt.Sprintf("mode = $%d", len(args)))
	}
	if update.Threshold != nil {
		args = append(args, *update.Threshold)
		set = append(set, fmt.Sprintf("threshold = $%d", len(args)))
	}
	if update.Personality != nil {
		args = append(args, *update.Personality)
		set = append(set, fmt.Sprintf("personality = $%d", len(args)))
	}
	if update.LanguageStyle != nil {
		args = append(args, *update.LanguageStyle)
		set = append(set, fmt.Sprintf("language_style = $%d", len(args)))
	}
	if update.ResponseLength != nil {
		args = append(args, *update.ResponseLength)
		set = append(set, fmt.Sprintf("response_length = $%d", len(args)))
	}
	if update.LastMentionTime != nil {
		args = append(args, *update.LastMentionTime)
		set = append(set, fmt.Sprintf("last_mention_time = $%d", len(args)))
	}
	if len(set) == 0 {
		return d.GetChatSetting(ctx, update.ChatID)
	}

	args = append(args, update.ChatID)
	query := fmt.Sprintf("UPDATE settings SET %s WHERE chat_id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), settingColumnsList)
	setting, err := scanSetting(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update chat setting: %w", err)
	}
	return setting, nil
}
