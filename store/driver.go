package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates tables and adds columns introduced after the
	// initial schema. It must be safe to run repeatedly.
	Migrate(ctx context.Context) error

	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*Message, error)
	ListChatIDs(ctx context.Context) ([]string, error)

	GetChatSetting(ctx context.Context, chatID string) (*ChatSetting, error)
	UpsertChatSetting(ctx context.Context, setting *ChatSetting) (*ChatSetting, error)
	UpdateChatSetting(ctx context.Context, update *UpdateChatSetting) (*ChatSetting, error)
}
