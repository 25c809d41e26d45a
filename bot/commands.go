package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hrygo/groupmate/store"
)

const (
	periodWeekly  = "weekly"
	periodMonthly = "monthly"

	summaryFetchLimit  = 400
	summaryRenderLimit = 120
	welcomeFetchLimit  = 80
	welcomeRenderLimit = 40
)

// ParseCommand splits a "/command arg arg" message. Non-command text
// returns ok=false.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return "", nil, false
	}
	fields := strings.Fields(t)
	cmd = strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if cmd == "" {
		return "", nil, false
	}
	return cmd, fields[1:], true
}

// HandleCommand dispatches a slash command. Unknown commands and
// malformed /settings invocations are dropped silently, matching the
// behavior users expect from other chat bots.
func (b *Bot) HandleCommand(ctx context.Context, chatID, userID, cmd string, args []string) {
	switch cmd {
	case "help":
		b.send(ctx, chatID, helpText)
		b.metrics.RecordReply("command")
	case "summary":
		period := periodWeekly
		if len(args) > 0 {
			period = strings.ToLower(args[0])
		}
		b.SummarizeChat(ctx, chatID, period)
	case "settings":
		if len(args) >= 2 {
			b.handleSettings(ctx, chatID, args[0], args[1])
		}
	case "optout":
		slog.Info("/optout", "chat_id", chatID, "user_id", userID)
		b.send(ctx, chatID, msgOptoutConfirmed)
		b.metrics.RecordReply("command")
	case "reset":
		b.handleReset(ctx, chatID)
	default:
		slog.Debug("unknown command ignored", "chat_id", chatID, "command", cmd)
	}
}

func (b *Bot) handleSettings(ctx context.Context, chatID, key, val string) {
	key = strings.ToLower(key)
	val = strings.ToLower(val)
	switch {
	case key == "threshold":
		t, err := strconv.ParseFloat(val, 64)
		if err != nil {
			slog.Warn("threshold parse error", "chat_id", chatID, "value", val)
			b.send(ctx, chatID, msgThresholdError)
			return
		}
		t = b.store.SetThreshold(ctx, chatID, t)
		slog.Info("/settings threshold", "chat_id", chatID, "threshold", t)
		b.send(ctx, chatID, fmt.Sprintf(msgThresholdSet, t))
		b.metrics.RecordReply("command")
	case key == "mode" && store.IsValidMode(val):
		b.store.SetMode(ctx, chatID, val)
		slog.Info("/settings mode", "chat_id", chatID, "mode", val)
		b.send(ctx, chatID, fmt.Sprintf(msgModeSet, val))
		b.metrics.RecordReply("command")
	default:
		slog.Warn("unknown settings key or value", "chat_id", chatID, "key", key, "value", val)
		b.send(ctx, chatID, msgSettingsUnknown)
	}
}

func (b *Bot) handleReset(ctx context.Context, chatID string) {
	slog.Info("/reset", "chat_id", chatID)
	b.state.ClearConversation(chatID)
	b.store.ResetSetting(ctx, chatID)
	b.send(ctx, chatID, msgReset)
	b.metrics.RecordReply("command")
}

// SummarizeChat generates and posts a weekly or monthly chat digest.
// Invalid periods fall back to weekly.
func (b *Bot) SummarizeChat(ctx context.Context, chatID, period string) {
	if period != periodWeekly && period != periodMonthly {
		period = periodWeekly
	}
	slog.Info("/summary", "chat_id", chatID, "period", period)

	messages := b.store.ListRecentMessages(ctx, chatID, summaryFetchLimit)
	if len(messages) == 0 {
		slog.Info("no messages to summarize", "chat_id", chatID, "period", period)
		b.send(ctx, chatID, fmt.Sprintf(msgNoMessagesForSummary, period))
		return
	}

	prompt := fmt.Sprintf(promptTemplateSummary, period, renderMessages(messages, summaryRenderLimit))
	report, err := b.model.Chat(ctx, systemPromptSummary, prompt, temperatureSummary)
	if err != nil {
		slog.Warn("summary generation failed", "chat_id", chatID, "error", err)
		b.metrics.RecordModelError("summary")
		b.send(ctx, chatID, msgLLMError)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("%s总结：\n%s", period, report))
	b.metrics.RecordReply("command")
}

// HandleMemberJoined greets a new chat member with a generated welcome
// line grounded in the chat's recent messages.
func (b *Bot) HandleMemberJoined(ctx context.Context, ev *MemberJoined) {
	name := strings.TrimSpace(ev.UserName)
	if name == "" {
		name = "新同学"
	}
	slog.Info("member joined", "chat_id", ev.ChatID, "name", name)

	messages := b.store.ListRecentMessages(ctx, ev.ChatID, welcomeFetchLimit)
	chatCtx := renderMessages(messages, welcomeRenderLimit)
	prompt := fmt.Sprintf(promptTemplateWelcome, chatCtx)
	reply, err := b.model.Chat(ctx, systemPromptWelcome, prompt, temperatureWelcome)
	if err != nil {
		slog.Warn("welcome generation failed", "chat_id", ev.ChatID, "error", err)
		b.metrics.RecordModelError("welcome")
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf(msgWelcomePrefix, name)+reply+msgWelcomeSuffix)
	b.metrics.RecordReply("welcome")
}

// RunPeriodicSummaries posts a weekly digest to every known chat. Kept
// as a scheduled alternative to user-triggered /summary.
func (b *Bot) RunPeriodicSummaries(ctx context.Context) {
	chatIDs := b.store.ListChatIDs(ctx)
	slog.Info("periodic summaries started", "chats", len(chatIDs))
	for _, chatID := range chatIDs {
		b.SummarizeChat(ctx, chatID, periodWeekly)
	}
}
