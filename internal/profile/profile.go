package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Feishu application credentials
	FeishuAppID             string // Feishu application ID
	FeishuAppSecret         string // Feishu application secret
	FeishuVerificationToken string // Webhook verification token
	FeishuAPIBase           string // Feishu open API base URL

	// Bot identity used for mention detection
	BotName string

	// Main LLM configuration (OpenAI-compatible protocol)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout int // LLM request timeout in seconds (default: 60)

	// Small model for intent classification. Falls back to the main
	// LLM configuration when unset.
	SmallModelBaseURL string
	SmallModelAPIKey  string
	SmallModel        string
	SmallModelTimeout int // default: 30

	// Image model configuration (chat-completions multimodal endpoint)
	ImageModelBaseURL string
	ImageModelAPIKey  string
	ImageModel        string
	ImageMaxSize      int // longest edge in pixels (default: 1024)
	ImageTimeout      int // default: 120

	// Conversation behavior
	ConversationTTLSeconds int     // sticky window length (default: 600)
	EngageDefaultThreshold float64 // proactive reply threshold (default: 0.65)
	ThinkingDelaySeconds   float64 // delay before the thinking hint (default: 5)

	// Memory bounds
	ChatLogsMaxLen     int // recent-message ring per chat (default: 2000)
	RecentEventsMaxLen int // webhook dedup FIFO capacity (default: 5000)

	// Message processing
	MaxContextMessages  int // default: 20
	MaxSummaryMessages  int // default: 400
	MaxImagesPerMessage int // default: 4

	// Web enrichment
	SearxngURL     string
	SearxngTimeout int // default: 10

	// Other configurations
	Mode     string
	Addr     string
	Data     string
	DSN      string
	Driver   string
	Version  string
	LogLevel string
	Port     int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if the main LLM endpoint is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" && p.LLMBaseURL != ""
}

// IsSmallModelEnabled returns true if a dedicated classifier model is
// configured. When false, intent classification routes to the main LLM.
func (p *Profile) IsSmallModelEnabled() bool {
	return p.SmallModelAPIKey != "" && p.SmallModelBaseURL != "" && p.SmallModel != ""
}

// IsImageModelEnabled returns true if the image generation endpoint is configured.
func (p *Profile) IsImageModelEnabled() bool {
	return p.ImageModelAPIKey != "" && p.ImageModelBaseURL != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.FeishuAppID = getEnvOrDefault("FEISHU_APP_ID", "")
	p.FeishuAppSecret = getEnvOrDefault("FEISHU_APP_SECRET", "")
	p.FeishuVerificationToken = getEnvOrDefault("FEISHU_VERIFICATION_TOKEN", "")
	p.FeishuAPIBase = getEnvOrDefault("FEISHU_API_BASE", "https://open.feishu.cn/open-apis")

	p.BotName = getEnvOrDefault("BOT_NAME", "群助手")

	p.LLMBaseURL = getEnvOrDefault("LLM_BASE_URL", "")
	p.LLMAPIKey = getEnvOrDefault("LLM_API_KEY", "")
	p.LLMModel = getEnvOrDefault("LLM_MODEL", "gpt-4o-mini")
	p.LLMTimeout = getEnvOrDefaultInt("LLM_TIMEOUT", getEnvOrDefaultInt("LLM_TIMEOUT_SECONDS", 60))

	p.SmallModelBaseURL = getEnvOrDefault("SMALL_MODEL_BASE_URL", "")
	p.SmallModelAPIKey = getEnvOrDefault("SMALL_MODEL_API_KEY", "")
	p.SmallModel = getEnvOrDefault("SMALL_MODEL", "")
	p.SmallModelTimeout = getEnvOrDefaultInt("SMALL_MODEL_TIMEOUT", getEnvOrDefaultInt("SMALL_MODEL_TIMEOUT_SECONDS", 30))

	p.ImageModelBaseURL = getEnvOrDefault("IMAGE_MODEL_BASE_URL", "")
	p.ImageModelAPIKey = getEnvOrDefault("IMAGE_MODEL_API_KEY", "")
	p.ImageModel = getEnvOrDefault("IMAGE_MODEL", "gemini-2.5-flash-image")
	p.ImageMaxSize = getEnvOrDefaultInt("IMAGE_MAX_SIZE", 1024)
	p.ImageTimeout = getEnvOrDefaultInt("IMAGE_TIMEOUT", getEnvOrDefaultInt("IMAGE_TIMEOUT_SECONDS", 120))

	p.ConversationTTLSeconds = getEnvOrDefaultInt("CONVERSATION_TTL_SECONDS", 600)
	p.EngageDefaultThreshold = getEnvOrDefaultFloat("ENGAGE_DEFAULT_THRESHOLD", 0.65)
	p.ThinkingDelaySeconds = getEnvOrDefaultFloat("THINKING_MESSAGE_DELAY", 5)

	p.ChatLogsMaxLen = getEnvOrDefaultInt("CHAT_LOGS_MAXLEN", 2000)
	p.RecentEventsMaxLen = getEnvOrDefaultInt("RECENT_EVENTS_MAXLEN", 5000)

	p.MaxContextMessages = getEnvOrDefaultInt("MAX_CONTEXT_MESSAGES", 20)
	p.MaxSummaryMessages = getEnvOrDefaultInt("MAX_SUMMARY_MESSAGES", 400)
	p.MaxImagesPerMessage = getEnvOrDefaultInt("MAX_IMAGES_PER_MESSAGE", 4)

	p.SearxngURL = getEnvOrDefault("SEARXNG_URL", "")
	p.SearxngTimeout = getEnvOrDefaultInt("SEARXNG_TIMEOUT", getEnvOrDefaultInt("SEARXNG_TIMEOUT_SECONDS", 10))

	p.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")
}

// MissingRequired returns the names of required configuration keys that
// are unset. Only the Feishu credentials are hard requirements; LLM and
// database configuration degrade gracefully when absent.
func (p *Profile) MissingRequired() []string {
	var missing []string
	if p.FeishuAppID == "" {
		missing = append(missing, "FEISHU_APP_ID")
	}
	if p.FeishuAppSecret == "" {
		missing = append(missing, "FEISHU_APP_SECRET")
	}
	if p.FeishuVerificationToken == "" {
		missing = append(missing, "FEISHU_VERIFICATION_TOKEN")
	}
	return missing
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if missing := p.MissingRequired(); len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if p.EngageDefaultThreshold < 0 || p.EngageDefaultThreshold > 1 {
		slog.Warn("engage threshold out of range, using default", "value", p.EngageDefaultThreshold)
		p.EngageDefaultThreshold = 0.65
	}
	if p.ChatLogsMaxLen <= 0 {
		p.ChatLogsMaxLen = 2000
	}
	if p.RecentEventsMaxLen <= 0 {
		p.RecentEventsMaxLen = 5000
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "groupmate")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/groupmate"
		}
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("groupmate_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile) + "?_loc=auto"
		}
	}

	return nil
}

// SlogLevel maps the configured LOG_LEVEL to a slog.Level.
func (p *Profile) SlogLevel() slog.Level {
	switch strings.ToUpper(p.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
