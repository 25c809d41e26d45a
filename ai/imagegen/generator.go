// Package imagegen generates and modifies images through an
// OpenAI-compatible chat-completions endpoint with image modalities.
// The modalities field and multi_mod_content response shape are outside
// go-openai's schema, so the request is built by hand over net/http.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the image endpoint is unset.
var ErrNotConfigured = errors.New("image endpoint not configured")

// Config for the image generation endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	MaxSize int // longest output edge
	Timeout int // seconds
}

// Generator produces images from prompts, optionally guided by a
// reference image.
type Generator struct {
	cfg        Config
	httpClient *http.Client
}

func NewGenerator(cfg Config) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1024
	}
	return &Generator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// Configured reports whether the endpoint can be used.
func (g *Generator) Configured() bool {
	return g.cfg.BaseURL != "" && g.cfg.APIKey != ""
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type genMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type genRequest struct {
	Model      string       `json:"model"`
	Messages   []genMessage `json:"messages"`
	Modalities []string     `json:"modalities"`
}

type genResponse struct {
	Choices []struct {
		Message struct {
			Content         string `json:"content"`
			MultiModContent []struct {
				InlineData *struct {
					MimeType string `json:"mime_type"`
					Data     string `json:"data"`
				} `json:"inline_data"`
			} `json:"multi_mod_content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate renders an image for the prompt. A non-nil reference image is
// sent before the text so the model treats it as the edit source; its
// aspect ratio also drives the output ratio.
func (g *Generator) Generate(ctx context.Context, prompt string, reference []byte, referenceMime string) ([]byte, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	_, _, ratio := ResolveSize(prompt, reference, g.cfg.MaxSize)

	var userContent []contentPart
	if len(reference) > 0 {
		mime := referenceMime
		if mime == "" {
			mime = "image/png"
		}
		userContent = append(userContent, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(reference)},
		})
	}
	userContent = append(userContent, contentPart{Type: "text", Text: prompt})

	reqBody := genRequest{
		Model: g.cfg.Model,
		Messages: []genMessage{
			{Role: "system", Content: "aspect_ratio=" + ratio},
			{Role: "user", Content: userContent},
		},
		Modalities: []string{"text", "image"},
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image request: %w", err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}
	defer resp.Body.Close()

	var result genResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("image generation failed: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("image generation returned no choices")
	}

	for _, part := range result.Choices[0].Message.MultiModContent {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		slog.Debug("image generated",
			"model", g.cfg.Model,
			"ratio", ratio,
			"bytes", len(data),
			"duration_ms", time.Since(start).Milliseconds())
		return data, nil
	}
	return nil, fmt.Errorf("image generation response contained no image")
}
