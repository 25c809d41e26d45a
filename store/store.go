package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hrygo/groupmate/internal/profile"
)

// Store provides database access to all raw objects. A nil driver runs
// the store in pure-memory mode: settings live in the cache only and
// message history falls back to the in-memory ring kept by the bot.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// settings cache: chat_id -> latest known row. Never older than the
	// last successful write.
	mu       sync.Mutex
	settings map[string]*ChatSetting
}

// New creates a new instance of Store. driver may be nil.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:   driver,
		profile:  profile,
		settings: make(map[string]*ChatSetting),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// HasPersistence reports whether a database backs this store.
func (s *Store) HasPersistence() bool {
	return s.driver != nil
}

func (s *Store) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close()
}

// Migrate runs schema migration when a database is configured.
func (s *Store) Migrate(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Migrate(ctx)
}

// CreateMessage persists a chat message. Persistence failures degrade to
// the in-memory ring; the error is logged and swallowed.
func (s *Store) CreateMessage(ctx context.Context, create *Message) {
	if s.driver == nil {
		return
	}
	if _, err := s.driver.CreateMessage(ctx, create); err != nil {
		slog.Warn("failed to persist message, memory ring only",
			"chat_id", create.ChatID, "error", err)
	}
}

// ListRecentMessages returns up to limit most recent messages in
// chronological order. Returns nil when unbacked or on failure.
func (s *Store) ListRecentMessages(ctx context.Context, chatID string, limit int) []*Message {
	if s.driver == nil {
		return nil
	}
	messages, err := s.driver.ListRecentMessages(ctx, chatID, limit)
	if err != nil {
		slog.Warn("failed to list messages", "chat_id", chatID, "error", err)
		return nil
	}
	return messages
}

// ListChatIDs returns the distinct chat IDs with persisted history.
func (s *Store) ListChatIDs(ctx context.Context) []string {
	if s.driver == nil {
		return nil
	}
	ids, err := s.driver.ListChatIDs(ctx)
	if err != nil {
		slog.Warn("failed to list chat ids", "error", err)
		return nil
	}
	return ids
}

// GetOrCreateSetting returns the chat's settings, inserting defaults on
// first sight. The cache satisfies repeat reads without a query.
func (s *Store) GetOrCreateSetting(ctx context.Context, chatID string) *ChatSetting {
	s.mu.Lock()
	if cached, ok := s.settings[chatID]; ok {
		out := *cached
		s.mu.Unlock()
		return &out
	}
	s.mu.Unlock()

	setting := NewChatSetting(chatID, s.defaultThreshold())
	if s.driver != nil {
		found, err := s.driver.GetChatSetting(ctx, chatID)
		if err != nil {
			slog.Warn("failed to read chat setting, using defaults", "chat_id", chatID, "error", err)
		} else if found != nil {
			setting = found
		} else if created, err := s.driver.UpsertChatSetting(ctx, setting); err != nil {
			slog.Warn("failed to insert default chat setting", "chat_id", chatID, "error", err)
		} else {
			setting = created
		}
	}

	s.mu.Lock()
	s.settings[chatID] = setting
	out := *setting
	s.mu.Unlock()
	return &out
}

func (s *Store) defaultThreshold() float64 {
	if s.profile != nil && s.profile.EngageDefaultThreshold > 0 {
		return s.profile.EngageDefaultThreshold
	}
	return DefaultThreshold
}

// SetThreshold persists a new proactive threshold, clamped to [0,1].
func (s *Store) SetThreshold(ctx context.Context, chatID string, threshold float64) float64 {
	if threshold < 0 {
		threshold = 0
	} else if threshold > 1 {
		threshold = 1
	}
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, Threshold: &threshold})
	return threshold
}

// SetMode persists a new participation mode.
func (s *Store) SetMode(ctx context.Context, chatID, mode string) {
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, Mode: &mode})
}

// SetPersonality persists a new personality.
func (s *Store) SetPersonality(ctx context.Context, chatID, personality string) {
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, Personality: &personality})
}

// SetLanguageStyle persists a new language style.
func (s *Store) SetLanguageStyle(ctx context.Context, chatID, style string) {
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, LanguageStyle: &style})
}

// SetResponseLength persists a new response length.
func (s *Store) SetResponseLength(ctx context.Context, chatID, length string) {
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, ResponseLength: &length})
}

// SetLastMentionTime records when the bot was last mentioned in the chat.
func (s *Store) SetLastMentionTime(ctx context.Context, chatID string, ts float64) {
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, LastMentionTime: &ts})
}

// ResetSetting restores the chat's defaults (threshold and mode).
func (s *Store) ResetSetting(ctx context.Context, chatID string) {
	threshold := s.defaultThreshold()
	mode := ModeNormal
	s.applyUpdate(ctx, &UpdateChatSetting{ChatID: chatID, Threshold: &threshold, Mode: &mode})
}

// applyUpdate writes through the driver and refreshes the cache. On a
// failed update it retries once as a full-row upsert.
func (s *Store) applyUpdate(ctx context.Context, update *UpdateChatSetting) {
	current := s.GetOrCreateSetting(ctx, update.ChatID)
	merge(current, update)

	if s.driver != nil {
		updated, err := s.driver.UpdateChatSetting(ctx, update)
		if err != nil {
			slog.Warn("chat setting update failed, retrying as upsert",
				"chat_id", update.ChatID, "error", err)
			updated, err = s.driver.UpsertChatSetting(ctx, current)
		}
		if err != nil {
			slog.Warn("chat setting write failed, cache only",
				"chat_id", update.ChatID, "error", err)
		} else if updated != nil {
			current = updated
		}
	}

	s.mu.Lock()
	s.settings[update.ChatID] = current
	s.mu.Unlock()
}

func merge(setting *ChatSetting, update *UpdateChatSetting) {
	if update.Mode != nil {
		setting.Mode = *update.Mode
	}
	if update.Threshold != nil {
		setting.Threshold = *update.Threshold
	}
	if update.Personality != nil {
		setting.Personality = *update.Personality
	}
	if update.LanguageStyle != nil {
		setting.LanguageStyle = *update.LanguageStyle
	}
	if update.ResponseLength != nil {
		setting.ResponseLength = *update.ResponseLength
	}
	if update.LastMentionTime != nil {
		setting.LastMentionTime = *update.LastMentionTime
	}
}
