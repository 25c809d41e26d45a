package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeDriver keeps rows in maps and can be told to fail updates.
type fakeDriver struct {
	settings    map[string]*ChatSetting
	messages    []*Message
	getCalls    int
	failUpdates bool
	upserts     int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{settings: make(map[string]*ChatSetting)}
}

func (d *fakeDriver) GetDB() *sql.DB                    { return nil }
func (d *fakeDriver) Close() error                      { return nil }
func (d *fakeDriver) Migrate(ctx context.Context) error { return nil }

func (d *fakeDriver) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	create.ID = int64(len(d.messages) + 1)
	d.messages = append(d.messages, create)
	return create, nil
}

func (d *fakeDriver) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*Message, error) {
	var out []*Message
	for _, m := range d.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (d *fakeDriver) ListChatIDs(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, m := range d.messages {
		if !seen[m.ChatID] {
			seen[m.ChatID] = true
			ids = append(ids, m.ChatID)
		}
	}
	return ids, nil
}

func (d *fakeDriver) GetChatSetting(ctx context.Context, chatID string) (*ChatSetting, error) {
	d.getCalls++
	if s, ok := d.settings[chatID]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (d *fakeDriver) UpsertChatSetting(ctx context.Context, setting *ChatSetting) (*ChatSetting, error) {
	d.upserts++
	saved := *setting
	d.settings[setting.ChatID] = &saved
	out := saved
	return &out, nil
}

func (d *fakeDriver) UpdateChatSetting(ctx context.Context, update *UpdateChatSetting) (*ChatSetting, error) {
	if d.failUpdates {
		return nil, errors.New("connection reset")
	}
	s, ok := d.settings[update.ChatID]
	if !ok {
		return nil, errors.New("no such row")
	}
	merge(s, update)
	out := *s
	return &out, nil
}

func TestGetOrCreateSettingInsertsDefaults(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)

	setting := s.GetOrCreateSetting(ctx, "oc_1")
	require.Equal(t, ModeNormal, setting.Mode)
	require.Equal(t, DefaultThreshold, setting.Threshold)
	require.Equal(t, DefaultPersonality, setting.Personality)
	require.Equal(t, 1, driver.upserts)

	// Second read comes from the cache.
	_ = s.GetOrCreateSetting(ctx, "oc_1")
	require.Equal(t, 1, driver.getCalls)
}

func TestSetThresholdClamps(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeDriver(), nil)

	require.Equal(t, 1.0, s.SetThreshold(ctx, "oc_1", 1.5))
	require.Equal(t, 0.0, s.SetThreshold(ctx, "oc_1", -0.2))
	require.Equal(t, 0.3, s.SetThreshold(ctx, "oc_1", 0.3))
	require.Equal(t, 0.3, s.GetOrCreateSetting(ctx, "oc_1").Threshold)
}

func TestUpdateRetriesAsUpsert(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)

	_ = s.GetOrCreateSetting(ctx, "oc_1")
	driver.failUpdates = true

	s.SetMode(ctx, "oc_1", ModeQuiet)

	// The write landed via the upsert retry, and the cache agrees.
	require.Equal(t, ModeQuiet, driver.settings["oc_1"].Mode)
	require.Equal(t, ModeQuiet, s.GetOrCreateSetting(ctx, "oc_1").Mode)
}

func TestResetSetting(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeDriver(), nil)

	s.SetThreshold(ctx, "oc_1", 0.9)
	s.SetMode(ctx, "oc_1", ModeActive)
	s.ResetSetting(ctx, "oc_1")

	setting := s.GetOrCreateSetting(ctx, "oc_1")
	require.Equal(t, DefaultThreshold, setting.Threshold)
	require.Equal(t, ModeNormal, setting.Mode)
}

func TestMemoryModeWithoutDriver(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	require.False(t, s.HasPersistence())
	s.CreateMessage(ctx, &Message{ChatID: "oc_1", UserID: "u", Text: "hi"})
	require.Nil(t, s.ListRecentMessages(ctx, "oc_1", 10))

	// Settings still work from the cache.
	s.SetMode(ctx, "oc_1", ModeActive)
	require.Equal(t, ModeActive, s.GetOrCreateSetting(ctx, "oc_1").Mode)
}

func TestListRecentMessages(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)

	for _, text := range []string{"a", "b", "c"} {
		s.CreateMessage(ctx, &Message{ChatID: "oc_1", UserID: "u", Text: text})
	}
	s.CreateMessage(ctx, &Message{ChatID: "oc_2", UserID: "u", Text: "other"})

	msgs := s.ListRecentMessages(ctx, "oc_1", 2)
	require.Len(t, msgs, 2)
	require.Equal(t, "b", msgs[0].Text)
	require.Equal(t, "c", msgs[1].Text)

	require.ElementsMatch(t, []string{"oc_1", "oc_2"}, s.ListChatIDs(ctx))
}
