package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/groupmate/ai/intent"
	"github.com/hrygo/groupmate/ai/websearch"
	"github.com/hrygo/groupmate/bot/state"
	"github.com/hrygo/groupmate/feishu"
	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/store"
)

type sentEvent struct {
	kind string // text or image
	text string
}

type fakeChat struct {
	mu     sync.Mutex
	events []sentEvent
	quoted map[string]string
	media  map[string][]byte
}

func (f *fakeChat) SendText(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{kind: "text", text: text})
	return nil
}

func (f *fakeChat) SendImage(_ context.Context, _ string, _ []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{kind: "image", text: caption})
	return nil
}

func (f *fakeChat) GetMessageText(_ context.Context, messageID string) string {
	return f.quoted[messageID]
}

func (f *fakeChat) GetMessageMedia(_ context.Context, _, key string) ([]byte, string, error) {
	if data, ok := f.media[key]; ok {
		return data, "image/png", nil
	}
	return nil, "", errors.New("no such media")
}

func (f *fakeChat) sent() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeChat) texts() []string {
	var out []string
	for _, e := range f.sent() {
		out = append(out, e.text)
	}
	return out
}

type fakeModel struct {
	mu         sync.Mutex
	reply      string
	err        error
	delay      time.Duration
	lastSystem string
	lastPrompt string
	visionCall bool
}

func (f *fakeModel) Chat(_ context.Context, system, prompt string, _ float32) (string, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSystem, f.lastPrompt = system, prompt
	return f.reply, f.err
}

func (f *fakeModel) ChatVision(_ context.Context, system, prompt string, _ [][]byte, _ []string, _ float32) (string, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSystem, f.lastPrompt = system, prompt
	f.visionCall = true
	return f.reply, f.err
}

type fakeClassifier struct {
	result intent.Intent
}

func (f *fakeClassifier) Classify(context.Context, string, bool) intent.Intent {
	return f.result
}

type fakeGenerator struct {
	configured bool
	image      []byte
	err        error
	lastPrompt string
	gotRef     bool
}

func (f *fakeGenerator) Configured() bool { return f.configured }

func (f *fakeGenerator) Generate(_ context.Context, prompt string, reference []byte, _ string) ([]byte, error) {
	f.lastPrompt = prompt
	f.gotRef = reference != nil
	return f.image, f.err
}

type fakeRecorder struct {
	mu     sync.Mutex
	kinds  []string
	errOps []string
}

func (f *fakeRecorder) RecordReply(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func (f *fakeRecorder) RecordModelError(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errOps = append(f.errOps, op)
}

func (f *fakeRecorder) replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.kinds))
	copy(out, f.kinds)
	return out
}

func (f *fakeRecorder) modelErrors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.errOps))
	copy(out, f.errOps)
	return out
}

type fakeSearcher struct {
	results []websearch.SearchResult
	query   string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]websearch.SearchResult, error) {
	f.query = query
	return f.results, nil
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		FeishuAppID:            "cli_bot",
		BotName:                "托兰",
		EngageDefaultThreshold: 0.65,
		ThinkingDelaySeconds:   5,
	}
}

type testRig struct {
	bot        *Bot
	chat       *fakeChat
	model      *fakeModel
	classifier *fakeClassifier
	gen        *fakeGenerator
	recorder   *fakeRecorder
	store      *store.Store
	state      *state.StateStore
}

func newTestRig(t *testing.T, mutate func(*Options)) *testRig {
	t.Helper()
	p := testProfile()
	chat := &fakeChat{quoted: map[string]string{}, media: map[string][]byte{}}
	model := &fakeModel{reply: "好的，明白了"}
	classifier := &fakeClassifier{result: intent.Intent{TaskType: intent.TaskChat, Confidence: 0.9}}
	gen := &fakeGenerator{}
	recorder := &fakeRecorder{}
	st := store.New(nil, p)
	ring := state.New(100, 10*time.Minute, time.Now)
	opts := Options{
		Chat:       chat,
		Model:      model,
		Classifier: classifier,
		ImageGen:   gen,
		Store:      st,
		State:      ring,
		Metrics:    recorder,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testRig{
		bot:        New(p, opts),
		chat:       chat,
		model:      model,
		classifier: classifier,
		gen:        gen,
		recorder:   recorder,
		store:      st,
		state:      ring,
	}
}

func groupMsg(text string) *IncomingMessage {
	return &IncomingMessage{
		ChatID:     "oc_1",
		ChatType:   "group",
		MessageID:  "om_1",
		UserID:     "ou_user_123456",
		SenderType: "user",
		MsgType:    "text",
		Text:       text,
	}
}

func botMention() []feishu.Mention {
	return []feishu.Mention{{
		Key:  "@_user_1",
		ID:   feishu.MentionID{AppID: "cli_bot"},
		Name: "托兰",
	}}
}

func TestHandleMessageIgnoresNonUserSenders(t *testing.T) {
	rig := newTestRig(t, nil)
	msg := groupMsg("hello")
	msg.SenderType = "app"

	rig.bot.HandleMessage(context.Background(), msg)

	assert.Empty(t, rig.chat.sent())
	chats, _ := rig.state.Stats()
	assert.Zero(t, chats)
}

func TestHandleMessageIgnoresEmpty(t *testing.T) {
	rig := newTestRig(t, nil)
	msg := groupMsg("   ")

	rig.bot.HandleMessage(context.Background(), msg)

	assert.Empty(t, rig.chat.sent())
}

func TestMentionAnswersWithModelReply(t *testing.T) {
	rig := newTestRig(t, nil)
	msg := groupMsg("@托兰 今天部署流程是什么")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "好的，明白了", texts[0])
	assert.True(t, rig.state.IsActive("oc_1"))
	assert.Contains(t, rig.model.lastPrompt, "今天部署流程是什么")
}

func TestMentionExpandsQuotedMessage(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.chat.quoted["om_parent"] = "周五发布 v2"
	msg := groupMsg("@托兰 这个确定了吗")
	msg.Mentions = botMention()
	msg.ParentID = "om_parent"

	rig.bot.HandleMessage(context.Background(), msg)

	assert.Contains(t, rig.model.lastPrompt, "（当前这条消息是对下面这句话的回复/引用：周五发布 v2）")
}

func TestMentionWithImagesUsesVision(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.chat.media["img_1"] = []byte{1, 2, 3}
	msg := groupMsg("@托兰 这张图是什么")
	msg.Mentions = botMention()
	msg.ImageKeys = []string{"img_1"}

	rig.bot.HandleMessage(context.Background(), msg)

	assert.True(t, rig.model.visionCall)
}

func TestStickyZipReply(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.state.MarkActive("oc_1")

	rig.bot.HandleMessage(context.Background(), groupMsg("你先别说话"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "🤐", texts[0])
	assert.True(t, rig.state.IsActive("oc_1"))
}

func TestStickyRepliesWithoutMention(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.state.MarkActive("oc_1")

	rig.bot.HandleMessage(context.Background(), groupMsg("那接下来呢"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "好的，明白了", texts[0])
}

func TestStickySkippedWhenSomeoneElseMentioned(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.state.MarkActive("oc_1")
	msg := groupMsg("@小李 你来看下")
	msg.Mentions = []feishu.Mention{{
		Key:  "@_user_1",
		ID:   feishu.MentionID{OpenID: "ou_other"},
		Name: "小李",
	}}

	rig.bot.HandleMessage(context.Background(), msg)

	// Falls through to the proactive path, which this text does not trigger.
	assert.Empty(t, rig.chat.sent())
}

func TestProactiveEngageOnQuestion(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("这个报错怎么办？"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "好的，明白了", texts[0])
}

func TestProactiveSkippedBelowThreshold(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("午饭吃了牛肉面"))

	assert.Empty(t, rig.chat.sent())
}

func TestQuietModeSuppressesProactive(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.SetMode(context.Background(), "oc_1", store.ModeQuiet)

	rig.bot.HandleMessage(context.Background(), groupMsg("这个报错怎么办？"))

	assert.Empty(t, rig.chat.sent())
}

func TestThinkingHintBeforeSlowVisionReply(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.bot.thinkingDelay = 20 * time.Millisecond
	rig.model.delay = 80 * time.Millisecond
	rig.chat.media["img_1"] = []byte{1}
	msg := groupMsg("@托兰 分析下这张截图")
	msg.Mentions = botMention()
	msg.ImageKeys = []string{"img_1"}

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, msgThinking, texts[0])
	assert.Equal(t, "好的，明白了", texts[1])
}

func TestNoThinkingHintWithoutImages(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.bot.thinkingDelay = 20 * time.Millisecond
	rig.model.delay = 80 * time.Millisecond
	msg := groupMsg("@托兰 说说看")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "好的，明白了", texts[0])
}

func TestDrawPipelineOrder(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	rig.gen.configured = true
	rig.gen.image = []byte{0x89, 0x50}
	msg := groupMsg("@托兰 画一只橘猫")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	events := rig.chat.sent()
	require.Len(t, events, 2)
	assert.Equal(t, sentEvent{kind: "text", text: msgDrawing}, events[0])
	assert.Equal(t, sentEvent{kind: "image", text: msgDrawSuccess}, events[1])
	assert.Contains(t, rig.gen.lastPrompt, "画一只橘猫")
	assert.False(t, rig.gen.gotRef)
}

func TestDrawUsesAttachedReference(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	rig.gen.configured = true
	rig.gen.image = []byte{1}
	rig.chat.media["img_1"] = []byte{9, 9}
	msg := groupMsg("@托兰 把这张图改成水彩风")
	msg.Mentions = botMention()
	msg.ImageKeys = []string{"img_1"}

	rig.bot.HandleMessage(context.Background(), msg)

	assert.True(t, rig.gen.gotRef)
}

func TestDrawIgnoresReferenceOnRequest(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	rig.gen.configured = true
	rig.gen.image = []byte{1}
	rig.chat.media["img_1"] = []byte{9, 9}
	msg := groupMsg("@托兰 不用参考图片，独立创作一幅山水画")
	msg.Mentions = botMention()
	msg.ImageKeys = []string{"img_1"}

	rig.bot.HandleMessage(context.Background(), msg)

	assert.False(t, rig.gen.gotRef)
}

func TestDrawNotConfigured(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	msg := groupMsg("@托兰 画个logo")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgDrawNoConfig, texts[0])
}

func TestDrawFailureReported(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	rig.gen.configured = true
	rig.gen.err = errors.New("backend busy")
	msg := groupMsg("@托兰 画个logo")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, msgDrawing, texts[0])
	assert.Contains(t, texts[1], "绘图失败")
}

func TestModelErrorSendsFallback(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.model.err = errors.New("upstream 500")
	rig.model.reply = ""
	msg := groupMsg("@托兰 在吗")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgLLMError, texts[0])
}

func TestSearchEnrichmentForFreshQuestions(t *testing.T) {
	searcher := &fakeSearcher{results: []websearch.SearchResult{
		{Title: "Go 1.25 发布", URL: "https://example.com", Content: "新版本说明"},
	}}
	rig := newTestRig(t, func(o *Options) { o.Searcher = searcher })
	msg := groupMsg("@托兰 Go 最新版本有哪些变化")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	assert.NotEmpty(t, searcher.query)
	assert.Contains(t, rig.model.lastPrompt, "【搜索结果】")
	assert.Contains(t, rig.model.lastPrompt, "Go 1.25 发布")
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"/help", "help", []string{}, true},
		{"  /Summary weekly ", "summary", []string{"weekly"}, true},
		{"/settings threshold 0.8", "settings", []string{"threshold", "0.8"}, true},
		{"你好", "", nil, false},
		{"/", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := ParseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		if tt.ok {
			assert.Equal(t, tt.args, args, tt.text)
		}
	}
}

func TestHelpCommand(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/help"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/summary weekly|monthly")
	assert.Contains(t, texts[0], "/reset")
}

func TestSettingsThreshold(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.bot.HandleMessage(ctx, groupMsg("/settings threshold 0.8"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "已将主动发言阈值设置为 0.8", texts[0])
	assert.InDelta(t, 0.8, rig.store.GetOrCreateSetting(ctx, "oc_1").Threshold, 1e-9)
}

func TestSettingsThresholdClamped(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/settings threshold 1.5"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "已将主动发言阈值设置为 1", texts[0])
}

func TestSettingsThresholdInvalid(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/settings threshold abc"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgThresholdError, texts[0])
}

func TestSettingsMode(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.bot.HandleMessage(ctx, groupMsg("/settings mode quiet"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "已切换模式为 quiet", texts[0])
	assert.Equal(t, store.ModeQuiet, rig.store.GetOrCreateSetting(ctx, "oc_1").Mode)
}

func TestSettingsUnknownKey(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/settings color blue"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgSettingsUnknown, texts[0])
}

func TestSettingsTooFewArgsSilent(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/settings threshold"))

	assert.Empty(t, rig.chat.sent())
}

func TestUnknownCommandSilent(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/dance"))

	assert.Empty(t, rig.chat.sent())
}

func TestOptoutCommand(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.HandleMessage(context.Background(), groupMsg("/optout"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgOptoutConfirmed, texts[0])
}

func TestResetCommand(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()
	rig.state.MarkActive("oc_1")
	rig.store.SetThreshold(ctx, "oc_1", 0.9)
	rig.store.SetMode(ctx, "oc_1", store.ModeActive)

	rig.bot.HandleMessage(ctx, groupMsg("/reset"))

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "已重置 Bot 状态")
	assert.False(t, rig.state.IsActive("oc_1"))
	setting := rig.store.GetOrCreateSetting(ctx, "oc_1")
	assert.InDelta(t, 0.65, setting.Threshold, 1e-9)
	assert.Equal(t, store.ModeNormal, setting.Mode)
}

func TestSummaryNoMessages(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.bot.SummarizeChat(context.Background(), "oc_1", "bogus")

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, fmt.Sprintf(msgNoMessagesForSummary, "weekly"), texts[0])
}

func TestWelcomeNewMember(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.model.reply = "欢迎一起搞事情"

	rig.bot.HandleMemberJoined(context.Background(), &MemberJoined{ChatID: "oc_1", UserName: "小王"})

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "欢迎 小王 加入！\n欢迎一起搞事情\n可使用 /help 查看指令。", texts[0])
}

func TestWelcomeFallbackName(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.model.reply = "你好呀"

	rig.bot.HandleMemberJoined(context.Background(), &MemberJoined{ChatID: "oc_1"})

	texts := rig.chat.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "欢迎 新同学 加入！")
}

func TestPersistedTextCarriesImageSuffix(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.chat.media["img_1"] = []byte{1}
	msg := groupMsg("看这两张")
	msg.ImageKeys = []string{"img_1", "img_2"}

	rig.bot.HandleMessage(context.Background(), msg)

	logs := rig.state.RecentLogs("oc_1", 10)
	require.Len(t, logs, 1)
	assert.Equal(t, "看这两张 [图片x2]", logs[0].Text)
}

func TestReplyCounterKinds(t *testing.T) {
	tests := []struct {
		name string
		run  func(rig *testRig)
		want string
	}{
		{"mention", func(rig *testRig) {
			msg := groupMsg("@托兰 在吗")
			msg.Mentions = botMention()
			rig.bot.HandleMessage(context.Background(), msg)
		}, "mention"},
		{"sticky", func(rig *testRig) {
			rig.state.MarkActive("oc_1")
			rig.bot.HandleMessage(context.Background(), groupMsg("那接下来呢"))
		}, "sticky"},
		{"sticky zip", func(rig *testRig) {
			rig.state.MarkActive("oc_1")
			rig.bot.HandleMessage(context.Background(), groupMsg("你先别说话"))
		}, "sticky"},
		{"proactive", func(rig *testRig) {
			rig.bot.HandleMessage(context.Background(), groupMsg("这个报错怎么办？"))
		}, "proactive"},
		{"draw", func(rig *testRig) {
			rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
			rig.gen.configured = true
			rig.gen.image = []byte{1}
			msg := groupMsg("@托兰 画一只橘猫")
			msg.Mentions = botMention()
			rig.bot.HandleMessage(context.Background(), msg)
		}, "draw"},
		{"command", func(rig *testRig) {
			rig.bot.HandleMessage(context.Background(), groupMsg("/help"))
		}, "command"},
		{"welcome", func(rig *testRig) {
			rig.bot.HandleMemberJoined(context.Background(), &MemberJoined{ChatID: "oc_1", UserName: "小王"})
		}, "welcome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t, nil)
			tt.run(rig)
			assert.Equal(t, []string{tt.want}, rig.recorder.replies())
		})
	}
}

func TestModelErrorCounted(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.model.err = errors.New("upstream 500")
	rig.model.reply = ""
	msg := groupMsg("@托兰 在吗")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	assert.Equal(t, []string{"chat"}, rig.recorder.modelErrors())
	assert.Empty(t, rig.recorder.replies())
}

func TestDrawErrorCounted(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.classifier.result = intent.Intent{TaskType: intent.TaskDraw, Confidence: 0.95}
	rig.gen.configured = true
	rig.gen.err = errors.New("backend busy")
	msg := groupMsg("@托兰 画个logo")
	msg.Mentions = botMention()

	rig.bot.HandleMessage(context.Background(), msg)

	assert.Equal(t, []string{"draw"}, rig.recorder.modelErrors())
}

func TestBasicEngageScoreTable(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"这个报错怎么办？", 0.8},
		{"午饭吃了牛肉面", 0.0},
		{"谁知道进展如何? 有链接吗? 怎么搞? 为什么?", 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, BasicEngageScore(tt.text), 1e-9, tt.text)
	}
}
