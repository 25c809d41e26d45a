package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database specified by its database driver name and a
// driver-specific data source name, usually consisting of at least a
// database name and connection information.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode prevents reader/writer locking issues; busy_timeout
	// covers the remaining write contention. Each pragma must be prefixed
	// with `_pragma=` for the modernc.org/sqlite driver.
	separator := "?"
	if strings.Contains(profile.DSN, "?") {
		separator = "&"
	}
	sqliteDB, err := sql.Open("sqlite", profile.DSN+separator+"_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema and applies column additions. SQLite has no
// ADD COLUMN IF NOT EXISTS, so "duplicate column name" is tolerated.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id_id ON messages (chat_id, id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			chat_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL DEFAULT 'normal',
			threshold REAL NOT NULL DEFAULT 0.65
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	columns := []string{
		`ALTER TABLE settings ADD COLUMN personality TEXT NOT NULL DEFAULT 'chill'`,
		`ALTER TABLE settings ADD COLUMN language_style TEXT NOT NULL DEFAULT 'casual'`,
		`ALTER TABLE settings ADD COLUMN response_length TEXT NOT NULL DEFAULT 'normal'`,
		`ALTER TABLE settings ADD COLUMN last_mention_time REAL NOT NULL DEFAULT 0`,
	}
	for _, stmt := range columns {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				continue
			}
			return fmt.Errorf("failed to add settings column: %w", err)
		}
	}
	return nil
}
