// Package intent classifies inbound messages with a small model so the
// bot can decide between drawing, chatting and command handling.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Task types produced by the classifier.
const (
	TaskDraw    = "draw"
	TaskChat    = "chat"
	TaskCommand = "command"
	TaskOther   = "other"
)

// Intent is the classification result.
type Intent struct {
	TaskType            string  `json:"task_type"`
	Confidence          float64 `json:"confidence"`
	IsImageModification bool    `json:"is_image_modification"`
	NeedsReferenceImage bool    `json:"needs_reference_image"`
	Reason              string  `json:"reason"`
}

const classifySystemPrompt = `你是一个意图分类器。根据用户在群聊里发给助手的消息，判断用户想让助手做什么。
只输出一个 JSON 对象，不要输出其他内容，格式：
{"task_type": "draw|chat|command|other", "confidence": 0.0-1.0, "is_image_modification": true|false, "needs_reference_image": true|false, "reason": "一句话理由"}
规则：
- 画图、生成图片、修改图片等请求 task_type 为 draw；
- 修改已有图片时 is_image_modification 为 true；
- 需要参考消息附带的图片时 needs_reference_image 为 true；
- 以 / 开头的指令为 command；
- 普通提问或聊天为 chat；无法判断为 other。`

// ChatFunc is the model call used by the classifier, satisfied by the
// llm gateway's SmallChat.
type ChatFunc func(ctx context.Context, system, prompt string, temperature float32) (string, error)

// Classifier decides task types for inbound messages.
type Classifier struct {
	chat ChatFunc
}

func NewClassifier(chat ChatFunc) *Classifier {
	return &Classifier{chat: chat}
}

// Classify asks the model for an intent. Any model or parse failure
// degrades to the conservative default {other, 0.5}.
func (c *Classifier) Classify(ctx context.Context, text string, hasImages bool) Intent {
	prompt := fmt.Sprintf("消息内容：%s\n消息是否附带图片：%t", text, hasImages)
	raw, err := c.chat(ctx, classifySystemPrompt, prompt, 0.1)
	if err != nil {
		slog.Warn("intent classification failed, using default", "error", err)
		return defaultIntent()
	}
	intent, err := ParseIntent(raw)
	if err != nil {
		slog.Debug("intent response unparseable, using default", "raw", raw, "error", err)
		return defaultIntent()
	}
	return intent
}

func defaultIntent() Intent {
	return Intent{TaskType: TaskOther, Confidence: 0.5, Reason: "分类失败，使用保守默认值"}
}

// ParseIntent recovers an Intent from model output. Tries strict JSON
// first, then fence stripping plus outermost-brace extraction, then
// jsonrepair as the last resort.
func ParseIntent(raw string) (Intent, error) {
	candidates := []string{raw}
	if cleaned := extractJSONObject(stripCodeFences(raw)); cleaned != "" && cleaned != raw {
		candidates = append(candidates, cleaned)
	}

	for _, candidate := range candidates {
		var intent Intent
		if err := json.Unmarshal([]byte(candidate), &intent); err == nil {
			return normalize(intent), nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(candidates[len(candidates)-1])
	if err != nil {
		return Intent{}, fmt.Errorf("failed to repair intent json: %w", err)
	}
	var intent Intent
	if err := json.Unmarshal([]byte(repaired), &intent); err != nil {
		return Intent{}, fmt.Errorf("repaired intent json still invalid: %w", err)
	}
	return normalize(intent), nil
}

func normalize(intent Intent) Intent {
	switch intent.TaskType {
	case TaskDraw, TaskChat, TaskCommand, TaskOther:
	default:
		intent.TaskType = TaskOther
	}
	if intent.Confidence < 0 {
		intent.Confidence = 0
	} else if intent.Confidence > 1 {
		intent.Confidence = 1
	}
	return intent
}

// stripCodeFences removes markdown code fences around the payload.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// Drop the language tag line, e.g. "json".
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the outermost balanced {...} block, honoring
// strings and escapes. Returns "" when no balanced object exists.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
