package store

// Chat participation modes.
const (
	ModeQuiet  = "quiet"
	ModeNormal = "normal"
	ModeActive = "active"
)

// Personality defaults.
const (
	DefaultPersonality    = "chill"
	DefaultLanguageStyle  = "casual"
	DefaultResponseLength = "normal"
	DefaultThreshold      = 0.65
)

// ChatSetting is the per-chat behavior configuration.
type ChatSetting struct {
	ChatID          string
	Mode            string  // quiet, normal or active
	Threshold       float64 // proactive engage threshold in [0,1]
	Personality     string  // chill, professional or humorous
	LanguageStyle   string  // casual, formal or technical
	ResponseLength  string  // brief, normal or detailed
	LastMentionTime float64 // unix seconds of the last direct mention
}

// NewChatSetting returns a setting row with documented defaults.
func NewChatSetting(chatID string, threshold float64) *ChatSetting {
	return &ChatSetting{
		ChatID:         chatID,
		Mode:           ModeNormal,
		Threshold:      threshold,
		Personality:    DefaultPersonality,
		LanguageStyle:  DefaultLanguageStyle,
		ResponseLength: DefaultResponseLength,
	}
}

// UpdateChatSetting updates only the non-nil fields.
type UpdateChatSetting struct {
	ChatID          string
	Mode            *string
	Threshold       *float64
	Personality     *string
	LanguageStyle   *string
	ResponseLength  *string
	LastMentionTime *float64
}

// IsValidMode reports whether mode is one of the accepted values.
func IsValidMode(mode string) bool {
	return mode == ModeQuiet || mode == ModeNormal || mode == ModeActive
}
