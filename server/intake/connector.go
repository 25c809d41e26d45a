// Package intake receives Feishu webhook callbacks: URL challenge,
// token verification, event dedup and routing to the bot handlers.
package intake

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/hrygo/groupmate/bot"
	"github.com/hrygo/groupmate/feishu"
	"github.com/hrygo/groupmate/plugin/metrics"
)

const defaultDedupCapacity = 5000

// EventTypeMessage is the Feishu inbound message event.
const EventTypeMessage = "im.message.receive_v1"

// Response is the body returned to the Feishu push server. A challenge
// reply echoes only the challenge; every other outcome serializes as
// {"code": 0}.
type Response struct {
	Code      int
	Challenge string
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.Challenge != "" {
		return json.Marshal(struct {
			Challenge string `json:"challenge"`
		}{r.Challenge})
	}
	return json.Marshal(struct {
		Code int `json:"code"`
	}{r.Code})
}

// ErrInvalidToken is returned when the verification token does not match.
var ErrInvalidToken = errInvalidToken{}

type errInvalidToken struct{}

func (errInvalidToken) Error() string { return "invalid verification token" }

// Connector validates and routes webhook envelopes. Handlers run on the
// caller's goroutine; wire them through a dispatcher to keep the
// endpoint fast.
type Connector struct {
	token          string
	onMessage      func(ctx context.Context, msg *bot.IncomingMessage)
	onMemberJoined func(ctx context.Context, ev *bot.MemberJoined)
	exporter       *metrics.Exporter

	// dedup remembers recently handled event ids.
	mu       sync.Mutex
	recent   []string
	recentAt int
	seen     map[string]struct{}
}

// Options wires the connector. Exporter may be nil; a non-positive
// DedupCapacity falls back to the default.
type Options struct {
	VerificationToken string
	OnMessage         func(ctx context.Context, msg *bot.IncomingMessage)
	OnMemberJoined    func(ctx context.Context, ev *bot.MemberJoined)
	Exporter          *metrics.Exporter
	DedupCapacity     int
}

func NewConnector(opts Options) *Connector {
	capacity := opts.DedupCapacity
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &Connector{
		token:          opts.VerificationToken,
		onMessage:      opts.OnMessage,
		onMemberJoined: opts.OnMemberJoined,
		exporter:       opts.Exporter,
		recent:         make([]string, capacity),
		seen:           make(map[string]struct{}, capacity),
	}
}

type envelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	Token     string          `json:"token"`
	EventID   string          `json:"event_id"`
	Header    envelopeHeader  `json:"header"`
	Event     json.RawMessage `json:"event"`
}

type envelopeHeader struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Token     string `json:"token"`
}

// Handle processes one webhook body. It returns ErrInvalidToken when the
// verification token does not match; any other body resolves to a
// success response so Feishu stops redelivering.
func (c *Connector) Handle(ctx context.Context, body []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Debug("unparseable webhook body ignored", "error", err)
		return &Response{Code: 0}, nil
	}

	if !c.verifyToken(&env) {
		slog.Warn("webhook token verification failed")
		return nil, ErrInvalidToken
	}

	if env.Type == "url_verification" && env.Challenge != "" {
		slog.Info("received url_verification challenge")
		return &Response{Challenge: env.Challenge}, nil
	}

	eventType := env.Header.EventType
	if eventType == "" {
		eventType = env.Type
	}
	eventID := env.Header.EventID
	if eventID == "" {
		eventID = env.EventID
	}
	slog.Debug("webhook event", "event_type", eventType, "event_id", eventID)

	if c.isDuplicate(eventID) {
		if c.exporter != nil {
			c.exporter.RecordDedupHit()
		}
		return &Response{Code: 0}, nil
	}
	if c.exporter != nil {
		c.exporter.RecordEvent(eventType)
	}

	switch {
	case eventType == EventTypeMessage:
		if msg := parseMessageEvent(env.Event, eventID); msg != nil && c.onMessage != nil {
			c.onMessage(ctx, msg)
		}
	case isMemberAddEvent(eventType):
		if ev := parseMemberJoined(env.Event); ev != nil && c.onMemberJoined != nil {
			c.onMemberJoined(ctx, ev)
		}
	default:
		slog.Debug("unhandled event type", "event_type", eventType)
	}
	return &Response{Code: 0}, nil
}

func (c *Connector) verifyToken(env *envelope) bool {
	headerOK := subtle.ConstantTimeCompare([]byte(env.Header.Token), []byte(c.token)) == 1
	flatOK := subtle.ConstantTimeCompare([]byte(env.Token), []byte(c.token)) == 1
	return headerOK || flatOK
}

// isDuplicate marks the event id as seen and reports whether it already
// was. The FIFO evicts the oldest id once full.
func (c *Connector) isDuplicate(eventID string) bool {
	if eventID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[eventID]; ok {
		slog.Debug("skip duplicated event", "event_id", eventID)
		return true
	}
	if evicted := c.recent[c.recentAt]; evicted != "" {
		delete(c.seen, evicted)
	}
	c.recent[c.recentAt] = eventID
	c.recentAt = (c.recentAt + 1) % len(c.recent)
	c.seen[eventID] = struct{}{}
	return false
}

func isMemberAddEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "im.chat.member") &&
		(strings.Contains(eventType, "add") || strings.Contains(eventType, "user_added"))
}

type messageEvent struct {
	Sender struct {
		SenderType string `json:"sender_type"`
		Type       string `json:"type"`
		SenderID   struct {
			OpenID string `json:"open_id"`
			UserID string `json:"user_id"`
		} `json:"sender_id"`
	} `json:"sender"`
	Message struct {
		MessageID   string           `json:"message_id"`
		ChatID      string           `json:"chat_id"`
		ChatType    string           `json:"chat_type"`
		MessageType string           `json:"message_type"`
		Content     string           `json:"content"`
		ParentID    string           `json:"parent_id"`
		RootID      string           `json:"root_id"`
		Mentions    []feishu.Mention `json:"mentions"`
	} `json:"message"`
}

func parseMessageEvent(raw json.RawMessage, eventID string) *bot.IncomingMessage {
	var ev messageEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		slog.Debug("unparseable message event ignored", "error", err)
		return nil
	}

	senderType := ev.Sender.SenderType
	if senderType == "" {
		senderType = ev.Sender.Type
	}
	userID := ev.Sender.SenderID.OpenID
	if userID == "" {
		userID = ev.Sender.SenderID.UserID
	}

	text, imageKeys := feishu.ExtractContent(ev.Message.MessageType, ev.Message.Content)
	text = feishu.ReplaceMentionKeys(text, ev.Message.Mentions)

	parentID := ev.Message.ParentID
	if parentID == "" {
		parentID = ev.Message.RootID
	}

	return &bot.IncomingMessage{
		EventID:    eventID,
		ChatID:     ev.Message.ChatID,
		ChatType:   ev.Message.ChatType,
		MessageID:  ev.Message.MessageID,
		UserID:     userID,
		SenderType: senderType,
		MsgType:    ev.Message.MessageType,
		Text:       text,
		ImageKeys:  imageKeys,
		Mentions:   ev.Message.Mentions,
		ParentID:   parentID,
	}
}

type memberEvent struct {
	ChatID string `json:"chat_id"`
	Chat   struct {
		ChatID string `json:"chat_id"`
	} `json:"chat"`
	Users   []memberUser `json:"users"`
	Members []memberUser `json:"members"`
}

type memberUser struct {
	Name string `json:"name"`
}

func parseMemberJoined(raw json.RawMessage) *bot.MemberJoined {
	var ev memberEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		slog.Debug("unparseable member event ignored", "error", err)
		return nil
	}
	chatID := ev.ChatID
	if chatID == "" {
		chatID = ev.Chat.ChatID
	}
	members := ev.Users
	if len(members) == 0 {
		members = ev.Members
	}
	if chatID == "" || len(members) == 0 {
		return nil
	}
	name := members[0].Name
	slog.Info("new member event", "chat_id", chatID, "name", name, "members", len(members))
	return &bot.MemberJoined{ChatID: chatID, UserName: name}
}
