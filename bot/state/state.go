// Package state holds the in-memory conversation state for the bot:
// a bounded ring of recent messages per chat and the sticky-conversation
// activity map. All state lives on the StateStore value, never in globals.
package state

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests inject a frozen clock.
type Clock func() time.Time

// TimeFormatMessage is the timestamp layout used when rendering
// conversation context for the model.
const TimeFormatMessage = "01-02 15:04"

// LogEntry is one remembered chat message.
type LogEntry struct {
	UserID string
	Text   string
	Ts     time.Time
}

// Render returns the context line "MM-DD HH:MM-suffix: text" where
// suffix is the last 6 characters of the user ID.
func (e LogEntry) Render() string {
	return e.Ts.Format(TimeFormatMessage) + "-" + UserSuffix(e.UserID) + ": " + e.Text
}

// UserSuffix shortens a platform user ID to its last 6 characters.
func UserSuffix(userID string) string {
	if len(userID) <= 6 {
		return userID
	}
	return userID[len(userID)-6:]
}

type chatLog struct {
	entries []LogEntry // ring buffer
	next    int
	full    bool
}

// StateStore keeps per-chat recent messages and sticky-conversation
// deadlines. It is safe for concurrent use.
type StateStore struct {
	mu          sync.Mutex
	logs        map[string]*chatLog
	activeUntil map[string]time.Time
	capacity    int
	ttl         time.Duration
	now         Clock
}

// New creates a StateStore. capacity bounds the per-chat ring, ttl is the
// sticky window length. A nil clock uses time.Now.
func New(capacity int, ttl time.Duration, clock Clock) *StateStore {
	if capacity <= 0 {
		capacity = 2000
	}
	if clock == nil {
		clock = time.Now
	}
	return &StateStore{
		logs:        make(map[string]*chatLog),
		activeUntil: make(map[string]time.Time),
		capacity:    capacity,
		ttl:         ttl,
		now:         clock,
	}
}

// AppendLog remembers a message in the chat's ring, evicting the oldest
// entry once the ring is full.
func (s *StateStore) AppendLog(chatID, userID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl := s.logs[chatID]
	if cl == nil {
		cl = &chatLog{entries: make([]LogEntry, 0, 16)}
		s.logs[chatID] = cl
	}
	entry := LogEntry{UserID: userID, Text: text, Ts: s.now()}
	if len(cl.entries) < s.capacity && !cl.full {
		cl.entries = append(cl.entries, entry)
		if len(cl.entries) == s.capacity {
			cl.full = true
		}
		return
	}
	cl.entries[cl.next] = entry
	cl.next = (cl.next + 1) % s.capacity
}

// RecentLogs returns up to limit most recent entries in chronological order.
func (s *StateStore) RecentLogs(chatID string, limit int) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl := s.logs[chatID]
	if cl == nil || limit <= 0 {
		return nil
	}
	var ordered []LogEntry
	if cl.full {
		ordered = make([]LogEntry, 0, s.capacity)
		ordered = append(ordered, cl.entries[cl.next:]...)
		ordered = append(ordered, cl.entries[:cl.next]...)
	} else {
		ordered = make([]LogEntry, len(cl.entries))
		copy(ordered, cl.entries)
	}
	if len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// MarkActive opens or refreshes the sticky window for a chat.
func (s *StateStore) MarkActive(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeUntil[chatID] = s.now().Add(s.ttl)
}

// IsActive reports whether the chat's sticky window is open. Expired
// entries are removed on read.
func (s *StateStore) IsActive(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.activeUntil[chatID]
	if !ok {
		return false
	}
	if s.now().After(deadline) {
		delete(s.activeUntil, chatID)
		return false
	}
	return true
}

// ClearConversation closes the sticky window for a chat.
func (s *StateStore) ClearConversation(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeUntil, chatID)
}

// Stats reports counts for diagnostics.
func (s *StateStore) Stats() (chats int, activeConversations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, deadline := range s.activeUntil {
		if !now.After(deadline) {
			activeConversations++
		}
	}
	return len(s.logs), activeConversations
}
