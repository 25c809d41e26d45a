package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{DSN: filepath.Join(t.TempDir(), "groupmate_test.db")}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func TestMigrateIsRepeatable(t *testing.T) {
	driver := newTestDriver(t)
	// Second run hits "duplicate column" paths and must still succeed.
	require.NoError(t, driver.Migrate(context.Background()))
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i, text := range []string{"你好", "在吗？", "[图片x2]"} {
		created, err := driver.CreateMessage(ctx, &store.Message{
			ChatID: "oc_1",
			UserID: "ou_user01",
			Text:   text,
			Ts:     int64(1700000000 + i),
		})
		require.NoError(t, err)
		require.NotZero(t, created.ID)
	}
	_, err := driver.CreateMessage(ctx, &store.Message{ChatID: "oc_2", UserID: "u", Text: "x", Ts: 1})
	require.NoError(t, err)

	messages, err := driver.ListRecentMessages(ctx, "oc_1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "在吗？", messages[0].Text)
	require.Equal(t, "[图片x2]", messages[1].Text)

	ids, err := driver.ListChatIDs(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"oc_1", "oc_2"}, ids)
}

func TestChatSettingLifecycle(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	missing, err := driver.GetChatSetting(ctx, "oc_1")
	require.NoError(t, err)
	require.Nil(t, missing)

	created, err := driver.UpsertChatSetting(ctx, store.NewChatSetting("oc_1", 0.65))
	require.NoError(t, err)
	require.Equal(t, store.ModeNormal, created.Mode)
	require.Equal(t, "chill", created.Personality)

	mode := store.ModeQuiet
	threshold := 0.8
	updated, err := driver.UpdateChatSetting(ctx, &store.UpdateChatSetting{
		ChatID:    "oc_1",
		Mode:      &mode,
		Threshold: &threshold,
	})
	require.NoError(t, err)
	require.Equal(t, store.ModeQuiet, updated.Mode)
	require.Equal(t, 0.8, updated.Threshold)

	// Update of a missing row fails so callers can fall back to upsert.
	_, err = driver.UpdateChatSetting(ctx, &store.UpdateChatSetting{ChatID: "oc_missing", Mode: &mode})
	require.Error(t, err)
}
