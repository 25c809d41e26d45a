package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// tokenEarlyRefresh is how long before expiry a cached tenant token is
// considered stale.
const tokenEarlyRefresh = 60 * time.Second

// Client talks to the Feishu open platform on behalf of one application.
// It is safe for concurrent use.
type Client struct {
	apiBase    string
	appID      string
	appSecret  string
	httpClient *http.Client

	// outbound message rate limit; Feishu caps bot QPS per app
	limiter *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	sf          singleflight.Group

	now func() time.Time
}

// NewClient creates a Feishu client. apiBase is the open API root, e.g.
// https://open.feishu.cn/open-apis.
func NewClient(apiBase, appID, appSecret string) *Client {
	return &Client{
		apiBase:    apiBase,
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		now:        time.Now,
	}
}

// tenantToken returns a valid tenant access token, refreshing it when it
// is within tokenEarlyRefresh of expiry. Concurrent refreshes collapse
// into a single request.
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.appSecret == "" {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	if c.token != "" && c.now().Add(tokenEarlyRefresh).Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	result, err, _ := c.sf.Do("tenant_token", func() (any, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	defer resp.Body.Close()

	var result struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	if result.Code != 0 {
		return "", &APIError{Code: result.Code, Msg: result.Msg, Op: "tenant_access_token"}
	}

	c.mu.Lock()
	c.token = result.TenantAccessToken
	c.tokenExpiry = c.now().Add(time.Duration(result.Expire) * time.Second)
	c.mu.Unlock()

	slog.Debug("tenant token refreshed", "expire_s", result.Expire)
	return result.TenantAccessToken, nil
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// doJSON performs an authenticated JSON request and decodes the envelope.
func (c *Client) doJSON(ctx context.Context, method, url string, payload any, op string) (json.RawMessage, error) {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if envelope.Code != 0 {
		return nil, &APIError{Code: envelope.Code, Msg: envelope.Msg, Op: op}
	}
	return envelope.Data, nil
}

// SendText sends a plain text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	content, _ := json.Marshal(map[string]string{"text": text})
	_, err := c.doJSON(ctx, http.MethodPost,
		c.apiBase+"/im/v1/messages?receive_id_type=chat_id",
		map[string]string{
			"receive_id": chatID,
			"msg_type":   "text",
			"content":    string(content),
		}, "send_text")
	if err != nil {
		slog.Warn("failed to send text message", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// UploadImage uploads image bytes for use in messages and returns the
// image key.
func (c *Client) UploadImage(ctx context.Context, image []byte) (string, error) {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("image_type", "message"); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/im/v1/images", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			ImageKey string `json:"image_key"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if envelope.Code != 0 {
		return "", &APIError{Code: envelope.Code, Msg: envelope.Msg, Op: "upload_image"}
	}
	return envelope.Data.ImageKey, nil
}

// SendImage uploads and sends an image. A non-empty caption is delivered
// as a follow-up text message.
func (c *Client) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	imageKey, err := c.UploadImage(ctx, image)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	content, _ := json.Marshal(map[string]string{"image_key": imageKey})
	if _, err := c.doJSON(ctx, http.MethodPost,
		c.apiBase+"/im/v1/messages?receive_id_type=chat_id",
		map[string]string{
			"receive_id": chatID,
			"msg_type":   "image",
			"content":    string(content),
		}, "send_image"); err != nil {
		return err
	}

	if caption != "" {
		return c.SendText(ctx, chatID, caption)
	}
	return nil
}

// GetMessageText fetches a message by ID and returns its flattened text.
// Returns "" on any failure; quoted-message expansion is best effort.
func (c *Client) GetMessageText(ctx context.Context, messageID string) string {
	if messageID == "" {
		return ""
	}
	data, err := c.doJSON(ctx, http.MethodGet,
		c.apiBase+"/im/v1/messages/"+messageID, nil, "get_message")
	if err != nil {
		slog.Debug("failed to fetch quoted message", "message_id", messageID, "error", err)
		return ""
	}

	var result struct {
		Items []struct {
			MsgType string `json:"msg_type"`
			Body    struct {
				Content string `json:"content"`
			} `json:"body"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &result); err != nil || len(result.Items) == 0 {
		return ""
	}
	item := result.Items[0]
	text, _ := ExtractContent(item.MsgType, item.Body.Content)
	return text
}

// GetMessageMedia downloads an image attached to a message. Both the
// message ID and the resource key are required.
func (c *Client) GetMessageMedia(ctx context.Context, messageID, key string) ([]byte, string, error) {
	if messageID == "" || key == "" {
		return nil, "", fmt.Errorf("message id and resource key required")
	}
	token, err := c.tenantToken(ctx)
	if err != nil {
		return nil, "", err
	}

	url := fmt.Sprintf("%s/im/v1/messages/%s/resources/%s?type=image", c.apiBase, messageID, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("media download failed: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}
