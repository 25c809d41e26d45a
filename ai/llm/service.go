// Package llm wraps OpenAI-compatible chat completion endpoints behind a
// small service used by the bot's reply pipelines.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when the endpoint lacks a base URL or key.
var ErrNotConfigured = errors.New("llm endpoint not configured")

// Config represents one chat-completions endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout int // request timeout in seconds
}

// Configured reports whether the endpoint can be used.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// Service is a single configured chat-completions endpoint.
type Service struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewService creates a Service. Returns nil when cfg is incomplete;
// callers treat a nil Service as not configured.
func NewService(cfg Config) *Service {
	if !cfg.Configured() {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}
	return &Service{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: time.Duration(timeout) * time.Second,
	}
}

// newHTTPClient creates an HTTP client tuned for LLM latency profiles.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
		},
	}
}

// Chat performs a synchronous system+user completion.
func (s *Service) Chat(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		slog.Warn("llm chat failed", "model", s.model, "error", err)
		return "", fmt.Errorf("llm chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm chat returned no choices")
	}
	slog.Debug("llm chat done", "model", s.model, "duration_ms", time.Since(start).Milliseconds())
	return resp.Choices[0].Message.Content, nil
}

// ChatVision performs a completion with image parts. Images are passed as
// data URLs, preserving order, before the text part.
func (s *Service) ChatVision(ctx context.Context, system, prompt string, images [][]byte, mimes []string, temperature float32) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	for i, img := range images {
		mime := "image/png"
		if i < len(mimes) && mimes[i] != "" {
			mime = mimes[i]
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: DataURL(img, mime),
			},
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		slog.Warn("llm vision chat failed", "model", s.model, "error", err)
		return "", fmt.Errorf("llm vision chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm vision chat returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// DataURL encodes raw image bytes as a data URL for multimodal parts.
func DataURL(data []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Gateway bundles the main model and the optional small model used for
// intent classification.
type Gateway struct {
	Main  *Service
	Small *Service
}

// NewGateway builds the gateway. An unconfigured small endpoint routes to
// the main service.
func NewGateway(main, small Config) *Gateway {
	g := &Gateway{Main: NewService(main)}
	if small.Configured() {
		g.Small = NewService(small)
	} else {
		g.Small = g.Main
	}
	return g
}

// Chat calls the main model.
func (g *Gateway) Chat(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	return g.Main.Chat(ctx, system, prompt, temperature)
}

// ChatVision calls the main model with images.
func (g *Gateway) ChatVision(ctx context.Context, system, prompt string, images [][]byte, mimes []string, temperature float32) (string, error) {
	return g.Main.ChatVision(ctx, system, prompt, images, mimes, temperature)
}

// SmallChat calls the classifier model, falling back to the main model
// when no dedicated one is configured.
func (g *Gateway) SmallChat(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	return g.Small.Chat(ctx, system, prompt, temperature)
}
