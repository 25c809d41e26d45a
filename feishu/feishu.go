// Package feishu is a minimal client for the Feishu open platform REST
// API: tenant token management, message send/fetch, image upload and
// download, plus inbound payload decoding.
package feishu

import (
	"errors"
	"fmt"
)

// Sentinel errors for callers that branch on failure class.
var (
	ErrNotConfigured = errors.New("feishu credentials not configured")
	ErrTokenRefresh  = errors.New("tenant token refresh failed")
)

// APIError is a non-zero code in a Feishu API response envelope.
type APIError struct {
	Code int
	Msg  string
	Op   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu %s failed: code=%d msg=%s", e.Op, e.Code, e.Msg)
}

// Mention is one @-reference inside an inbound message.
type Mention struct {
	Key  string    `json:"key"`
	ID   MentionID `json:"id"`
	Name string    `json:"name"`
}

type MentionID struct {
	AppID  string `json:"app_id"`
	OpenID string `json:"open_id"`
	UserID string `json:"user_id"`
}
