package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/groupmate/ai/intent"
	"github.com/hrygo/groupmate/ai/websearch"
	"github.com/hrygo/groupmate/bot/state"
	"github.com/hrygo/groupmate/feishu"
	"github.com/hrygo/groupmate/store"
)

const (
	proactiveContextSize = 12
	maxQuestionURLs      = 2
	maxSearchResults     = 3
)

// HandleMessage runs the decision tree for one inbound message.
func (b *Bot) HandleMessage(ctx context.Context, msg *IncomingMessage) {
	// Only human messages are considered.
	if msg.SenderType != "" && msg.SenderType != "user" {
		slog.Debug("ignore non-user message", "sender_type", msg.SenderType, "user_id", msg.UserID)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if msg.ChatID == "" || (text == "" && len(msg.ImageKeys) == 0) {
		slog.Debug("message missing chat_id or content, ignore")
		return
	}

	// Remember the message before deciding anything.
	textForStore := text
	if n := len(msg.ImageKeys); n > 0 {
		suffix := fmt.Sprintf("[图片x%d]", n)
		if textForStore == "" {
			textForStore = suffix
		} else {
			textForStore += " " + suffix
		}
	}
	b.store.CreateMessage(ctx, &store.Message{
		ChatID: msg.ChatID,
		UserID: msg.UserID,
		Text:   textForStore,
		Ts:     b.now().Unix(),
	})
	b.state.AppendLog(msg.ChatID, msg.UserID, textForStore)

	if cmd, args, ok := ParseCommand(text); ok {
		slog.Info("command detected", "chat_id", msg.ChatID, "command", cmd, "args", args)
		b.HandleCommand(ctx, msg.ChatID, msg.UserID, cmd, args)
		return
	}

	if feishu.MentionsBot(msg.Mentions, text, b.profile.FeishuAppID, b.profile.BotName) {
		slog.Info("mentioned", "chat_id", msg.ChatID, "user_id", msg.UserID)
		b.state.MarkActive(msg.ChatID)
		b.store.SetLastMentionTime(ctx, msg.ChatID, float64(b.now().Unix()))
		b.respond(ctx, msg, textForStore, "mention")
		return
	}

	sticky := msg.ChatType == "group" &&
		b.state.IsActive(msg.ChatID) &&
		!feishu.MentionsSomeoneElse(msg.Mentions, b.profile.FeishuAppID, b.profile.BotName)
	if sticky {
		slog.Info("sticky conversation", "chat_id", msg.ChatID, "user_id", msg.UserID)
		if ShouldZipReply(text) {
			b.send(ctx, msg.ChatID, msgZipReply)
			b.metrics.RecordReply("sticky")
			b.state.MarkActive(msg.ChatID)
			return
		}
		b.respond(ctx, msg, textForStore, "sticky")
		return
	}

	b.maybeProactiveEngage(ctx, msg, text)
}

// respond answers a message the bot is addressed by, either directly
// mentioned or inside the sticky window. kind labels the reply counter.
func (b *Bot) respond(ctx context.Context, msg *IncomingMessage, textForStore, kind string) {
	text := strings.TrimSpace(msg.Text)
	chatCtx := b.buildContext(ctx, msg.ChatID, b.maxContext)
	question := b.questionWithQuote(ctx, msg, textForStore)
	images, mimes := b.fetchImages(ctx, msg)

	// The classifier is the sole draw decider.
	result := b.classifier.Classify(ctx, text, len(images) > 0)
	if result.TaskType == intent.TaskDraw {
		slog.Info("draw request", "chat_id", msg.ChatID, "confidence", result.Confidence)
		b.handleDrawRequest(ctx, msg.ChatID, text, images, mimes)
		b.state.MarkActive(msg.ChatID)
		return
	}

	setting := b.store.GetOrCreateSetting(ctx, msg.ChatID)
	system := b.chatSystemPrompt(setting)
	prompt := b.buildChatPrompt(ctx, chatCtx, question)

	reply, err := b.withThinking(ctx, msg.ChatID, len(images) > 0, func() (string, error) {
		if len(images) > 0 {
			return b.model.ChatVision(ctx, system, prompt, images, mimes, temperatureChat)
		}
		return b.model.Chat(ctx, system, prompt, temperatureChat)
	})
	if err != nil {
		slog.Warn("reply generation failed", "chat_id", msg.ChatID, "error", err)
		b.metrics.RecordModelError("chat")
		b.send(ctx, msg.ChatID, msgLLMError)
		return
	}
	b.send(ctx, msg.ChatID, reply)
	b.metrics.RecordReply(kind)
	b.state.MarkActive(msg.ChatID)
}

// buildChatPrompt assembles the model prompt, enriching it with webpage
// content for quoted URLs or search results for fresh-information asks.
func (b *Bot) buildChatPrompt(ctx context.Context, chatCtx, question string) string {
	webContext := b.webContext(ctx, question)
	if webContext == "" {
		return fmt.Sprintf(promptTemplateChat, chatCtx, question)
	}
	return fmt.Sprintf("群上下文：\n%s%s\n\n用户问题：%s\n请用简短要点直接回答。",
		chatCtx, webContext, question)
}

func (b *Bot) webContext(ctx context.Context, question string) string {
	urls := websearch.ExtractURLs(question)
	if len(urls) > maxQuestionURLs {
		urls = urls[:maxQuestionURLs]
	}

	if len(urls) > 0 && b.fetcher != nil {
		var block strings.Builder
		for _, u := range urls {
			content, err := b.fetcher.FetchMainContent(ctx, u)
			if err != nil {
				slog.Warn("webpage fetch failed", "url", u, "error", err)
				continue
			}
			if r := []rune(content); len(r) > 1000 {
				content = string(r[:1000])
			}
			fmt.Fprintf(&block, "来自 %s:\n%s\n\n", u, content)
		}
		if block.Len() > 0 {
			return "\n\n【网页内容】\n" + block.String()
		}
		return ""
	}

	if b.searcher != nil && needsWebSearch(question) {
		results, err := b.searcher.Search(ctx, question, maxSearchResults)
		if err != nil {
			slog.Warn("web search failed", "error", err)
			return ""
		}
		if formatted := websearch.FormatResults(results); formatted != "" {
			return "\n\n【搜索结果】\n" + formatted
		}
	}
	return ""
}

// questionWithQuote prepends the quoted message, when the inbound
// message replies to one, so the model sees what is being answered.
func (b *Bot) questionWithQuote(ctx context.Context, msg *IncomingMessage, question string) string {
	if msg.ParentID == "" {
		return question
	}
	quoted := b.chat.GetMessageText(ctx, msg.ParentID)
	if quoted == "" {
		return question
	}
	return fmt.Sprintf("（当前这条消息是对下面这句话的回复/引用：%s）\n%s", quoted, question)
}

// fetchImages downloads the attached images, capped per message.
func (b *Bot) fetchImages(ctx context.Context, msg *IncomingMessage) ([][]byte, []string) {
	if len(msg.ImageKeys) == 0 || msg.MessageID == "" {
		return nil, nil
	}
	keys := msg.ImageKeys
	if len(keys) > b.maxImages {
		keys = keys[:b.maxImages]
	}
	var images [][]byte
	var mimes []string
	for _, key := range keys {
		data, mime, err := b.chat.GetMessageMedia(ctx, msg.MessageID, key)
		if err != nil {
			slog.Warn("image download failed", "message_id", msg.MessageID, "key", key, "error", err)
			continue
		}
		if mime == "" {
			mime = "image/jpeg"
		}
		images = append(images, data)
		mimes = append(mimes, mime)
	}
	return images, mimes
}

// handleDrawRequest renders an image for the prompt and delivers it.
func (b *Bot) handleDrawRequest(ctx context.Context, chatID, text string, images [][]byte, mimes []string) {
	if b.imageGen == nil || !b.imageGen.Configured() {
		b.send(ctx, chatID, msgDrawNoConfig)
		return
	}
	b.send(ctx, chatID, msgDrawing)

	var reference []byte
	var referenceMime string
	if len(images) > 0 && !hasNoReferenceIntent(text) {
		reference = images[0]
		if len(mimes) > 0 {
			referenceMime = mimes[0]
		}
	}

	cleaned := feishu.StripLeadingMention(text)
	var prompt string
	if reference != nil {
		prompt = fmt.Sprintf(promptTemplateImageToImage, cleaned)
	} else {
		prompt = fmt.Sprintf(promptTemplateImageGen, cleaned)
	}

	image, err := b.imageGen.Generate(ctx, prompt, reference, referenceMime)
	if err != nil {
		slog.Warn("image generation failed", "chat_id", chatID, "error", err)
		b.metrics.RecordModelError("draw")
		b.send(ctx, chatID, fmt.Sprintf("绘图失败: %v", err))
		return
	}
	if len(image) == 0 {
		b.metrics.RecordModelError("draw")
		b.send(ctx, chatID, msgDrawFailed)
		return
	}
	if err := b.chat.SendImage(ctx, chatID, image, msgDrawSuccess); err != nil {
		slog.Warn("image delivery failed", "chat_id", chatID, "error", err)
		b.send(ctx, chatID, fmt.Sprintf("图片发送失败: %v", err))
		return
	}
	b.metrics.RecordReply("draw")
}

// maybeProactiveEngage replies without being addressed when the message
// looks engaging enough for this chat's settings.
func (b *Bot) maybeProactiveEngage(ctx context.Context, msg *IncomingMessage, text string) {
	setting := b.store.GetOrCreateSetting(ctx, msg.ChatID)
	if setting.Mode == store.ModeQuiet {
		slog.Debug("quiet mode, skip proactive", "chat_id", msg.ChatID)
		return
	}

	score := BasicEngageScore(text)
	triggered := score >= setting.Threshold
	if !triggered && setting.Mode == store.ModeActive {
		// Active chats also engage on conversation heat.
		heat := b.messageHeat(msg.ChatID, setting)
		triggered = heat.IsHot()
	}
	if !triggered {
		slog.Debug("proactive skipped", "chat_id", msg.ChatID, "score", score, "threshold", setting.Threshold)
		return
	}

	slog.Debug("proactive triggered", "chat_id", msg.ChatID, "score", score, "threshold", setting.Threshold)
	chatCtx := b.buildContext(ctx, msg.ChatID, proactiveContextSize)
	prompt := fmt.Sprintf(promptTemplateProactive, chatCtx, text)
	reply, err := b.model.Chat(ctx, b.proactiveSystemPrompt(setting), prompt, temperatureProactive)
	if err != nil {
		slog.Warn("proactive reply failed", "chat_id", msg.ChatID, "error", err)
		b.metrics.RecordModelError("proactive")
		return
	}
	b.send(ctx, msg.ChatID, reply)
	b.metrics.RecordReply("proactive")
}

// messageHeat derives conversation heat from the in-memory ring and the
// chat's last-mention time.
func (b *Bot) messageHeat(chatID string, setting *store.ChatSetting) Heat {
	logs := b.state.RecentLogs(chatID, 5)
	times := make([]time.Time, 0, len(logs))
	for _, l := range logs {
		times = append(times, l.Ts)
	}
	now := b.now()
	sinceLast := time.Hour
	// The current message is the last log entry; the gap is to the one
	// before it.
	if len(times) >= 2 {
		sinceLast = times[len(times)-1].Sub(times[len(times)-2])
	}
	var lastMention time.Time
	if setting.LastMentionTime > 0 {
		lastMention = time.Unix(int64(setting.LastMentionTime), 0)
	}
	afterMention := !lastMention.IsZero() && now.Sub(lastMention) < 2*time.Minute
	return CalculateHeat(now, lastMention, times, sinceLast, afterMention)
}

// buildContext renders recent chat history for the model, preferring the
// database and falling back to the in-memory ring.
func (b *Bot) buildContext(ctx context.Context, chatID string, limit int) string {
	messages := b.store.ListRecentMessages(ctx, chatID, limit)
	if len(messages) > 0 {
		return renderMessages(messages, limit)
	}

	logs := b.state.RecentLogs(chatID, limit)
	lines := make([]string, 0, len(logs))
	for _, l := range logs {
		lines = append(lines, l.Render())
	}
	return strings.Join(lines, "\n")
}

// renderMessages formats the newest limit messages one per line.
func renderMessages(messages []*store.Message, limit int) string {
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		ts := time.Unix(m.Ts, 0).Format(state.TimeFormatMessage)
		lines = append(lines, ts+"-"+state.UserSuffix(m.UserID)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

// withThinking runs compute while a companion timer waits. If compute is
// still running after the delay, a "thinking" hint is sent first; the
// reply is returned only after the timer goroutine settles, so the hint
// can never follow the answer.
func (b *Bot) withThinking(ctx context.Context, chatID string, enabled bool, compute func() (string, error)) (string, error) {
	done := make(chan struct{})
	settled := make(chan struct{})
	go func() {
		defer close(settled)
		select {
		case <-done:
		case <-time.After(b.thinkingDelay):
			if enabled {
				b.send(ctx, chatID, msgThinking)
			}
		}
	}()

	reply, err := compute()
	close(done)
	<-settled
	return reply, err
}

func (b *Bot) send(ctx context.Context, chatID, text string) {
	if text == "" {
		return
	}
	if err := b.chat.SendText(ctx, chatID, text); err != nil {
		slog.Warn("message delivery failed", "chat_id", chatID, "error", err)
	}
}
