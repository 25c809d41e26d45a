package postgres

import (
	"context"
	"fmt"
	"strings"
)

// Columns added after the initial schema. ADD COLUMN IF NOT EXISTS makes
// the migration repeatable; "already exists" from older servers is also
// tolerated.
var settingColumns = []struct {
	name string
	spec string
}{
	{"personality", "VARCHAR(32) NOT NULL DEFAULT 'chill'"},
	{"language_style", "VARCHAR(32) NOT NULL DEFAULT 'casual'"},
	{"response_length", "VARCHAR(16) NOT NULL DEFAULT 'normal'"},
	{"last_mention_time", "DOUBLE PRECISION NOT NULL DEFAULT 0"},
}

// Migrate creates the schema and applies column additions.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			ts BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id_id ON messages (chat_id, id DESC)`,
		`CREATE TABLE IF NOT EXISTS settings (
			chat_id TEXT PRIMARY KEY,
			mode VARCHAR(16) NOT NULL DEFAULT 'normal',
			threshold DOUBLE PRECISION NOT NULL DEFAULT 0.65
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	for _, col := range settingColumns {
		stmt := fmt.Sprintf("ALTER TABLE settings ADD COLUMN IF NOT EXISTS %s %s", col.name, col.spec)
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			if isColumnExists(err) {
				continue
			}
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
	}
	return nil
}

func isColumnExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
