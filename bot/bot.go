// Package bot implements the conversation engine: it decides whether an
// inbound group message deserves a reply and produces it through the
// model, image and web gateways.
package bot

import (
	"context"
	"time"

	"github.com/hrygo/groupmate/ai/intent"
	"github.com/hrygo/groupmate/ai/websearch"
	"github.com/hrygo/groupmate/bot/state"
	"github.com/hrygo/groupmate/feishu"
	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/store"
)

// ChatSender delivers messages back to the platform.
type ChatSender interface {
	SendText(ctx context.Context, chatID, text string) error
	SendImage(ctx context.Context, chatID string, image []byte, caption string) error
	GetMessageText(ctx context.Context, messageID string) string
	GetMessageMedia(ctx context.Context, messageID, key string) ([]byte, string, error)
}

// ModelGateway produces text replies.
type ModelGateway interface {
	Chat(ctx context.Context, system, prompt string, temperature float32) (string, error)
	ChatVision(ctx context.Context, system, prompt string, images [][]byte, mimes []string, temperature float32) (string, error)
}

// IntentClassifier decides what the user wants from the bot.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, hasImages bool) intent.Intent
}

// ImageGenerator renders images from prompts.
type ImageGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string, reference []byte, referenceMime string) ([]byte, error)
}

// PageFetcher extracts readable content from URLs in questions.
type PageFetcher interface {
	FetchMainContent(ctx context.Context, url string) (string, error)
}

// Searcher runs web searches for questions that need fresh information.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]websearch.SearchResult, error)
}

// ReplyRecorder counts delivered replies and model failures for the
// metrics endpoint.
type ReplyRecorder interface {
	RecordReply(kind string)
	RecordModelError(op string)
}

type noopRecorder struct{}

func (noopRecorder) RecordReply(string)      {}
func (noopRecorder) RecordModelError(string) {}

// IncomingMessage is a normalized inbound chat message event.
type IncomingMessage struct {
	EventID    string
	ChatID     string
	ChatType   string // group or p2p
	MessageID  string
	UserID     string
	SenderType string // user, app or system
	MsgType    string
	Text       string
	ImageKeys  []string
	Mentions   []feishu.Mention
	ParentID   string // quoted/replied message, when present
}

// MemberJoined is a normalized member-join event.
type MemberJoined struct {
	ChatID   string
	UserName string
}

// Bot is the conversation engine. All state is held on the value; the
// zero value is not usable, construct with New.
type Bot struct {
	profile    *profile.Profile
	chat       ChatSender
	model      ModelGateway
	classifier IntentClassifier
	imageGen   ImageGenerator
	fetcher    PageFetcher
	searcher   Searcher
	store      *store.Store
	state      *state.StateStore
	metrics    ReplyRecorder

	now           state.Clock
	thinkingDelay time.Duration
	maxContext    int
	maxImages     int
}

// Options carries the gateways the bot talks through. Searcher and
// Fetcher may be nil (web enrichment disabled); ImageGen may be nil
// (draw requests answer with the not-configured message).
type Options struct {
	Chat       ChatSender
	Model      ModelGateway
	Classifier IntentClassifier
	ImageGen   ImageGenerator
	Fetcher    PageFetcher
	Searcher   Searcher
	Store      *store.Store
	State      *state.StateStore
	Metrics    ReplyRecorder
	Clock      state.Clock
}

func New(p *profile.Profile, opts Options) *Bot {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = noopRecorder{}
	}
	delay := time.Duration(p.ThinkingDelaySeconds * float64(time.Second))
	if delay <= 0 {
		delay = 5 * time.Second
	}
	maxContext := p.MaxContextMessages
	if maxContext <= 0 {
		maxContext = 20
	}
	maxImages := p.MaxImagesPerMessage
	if maxImages <= 0 {
		maxImages = 4
	}
	return &Bot{
		profile:       p,
		chat:          opts.Chat,
		model:         opts.Model,
		classifier:    opts.Classifier,
		imageGen:      opts.ImageGen,
		fetcher:       opts.Fetcher,
		searcher:      opts.Searcher,
		store:         opts.Store,
		state:         opts.State,
		metrics:       recorder,
		now:           clock,
		thinkingDelay: delay,
		maxContext:    maxContext,
		maxImages:     maxImages,
	}
}

// chatSystemPrompt picks the persona prompt: customized chats get the
// personality-built prompt, default chats keep the stock persona.
func (b *Bot) chatSystemPrompt(setting *store.ChatSetting) string {
	if isDefaultPersonality(setting) {
		return systemPromptChat
	}
	return personalitySystemPrompt(setting)
}

func (b *Bot) proactiveSystemPrompt(setting *store.ChatSetting) string {
	if isDefaultPersonality(setting) {
		return systemPromptProactive
	}
	return proactivePersonalityPrompt(setting)
}

func isDefaultPersonality(setting *store.ChatSetting) bool {
	return setting.Personality == store.DefaultPersonality &&
		setting.LanguageStyle == store.DefaultLanguageStyle &&
		setting.ResponseLength == store.DefaultResponseLength
}
