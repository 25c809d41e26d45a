package feishu

import (
	"encoding/json"
	"strings"
)

// postBody is the rich-text message layout. Post content is a grid of
// runs; text runs are flattened, image runs contribute their keys.
type postBody struct {
	Title   string      `json:"title"`
	Content [][]postRun `json:"content"`
}

type postRun struct {
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	ImageKey string `json:"image_key"`
}

// ExtractContent decodes an inbound message's content JSON into plain
// text and the image keys it carries. Unknown message types yield empty
// results.
func ExtractContent(msgType, content string) (string, []string) {
	switch msgType {
	case "text":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(content), &body); err != nil {
			return "", nil
		}
		return strings.TrimSpace(body.Text), nil

	case "image":
		var body struct {
			ImageKey string `json:"image_key"`
		}
		if err := json.Unmarshal([]byte(content), &body); err != nil {
			return "", nil
		}
		if body.ImageKey == "" {
			return "", nil
		}
		return "", []string{body.ImageKey}

	case "post":
		return extractPost(content)

	default:
		return "", nil
	}
}

// extractPost handles both the language-wrapped form {"zh_cn": {...}} and
// the bare form {"title": ..., "content": [...]}.
func extractPost(content string) (string, []string) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return "", nil
	}

	var body postBody
	if raw, ok := wrapped["zh_cn"]; ok {
		_ = json.Unmarshal(raw, &body)
	} else if raw, ok := wrapped["en_us"]; ok {
		_ = json.Unmarshal(raw, &body)
	} else if err := json.Unmarshal([]byte(content), &body); err != nil {
		return "", nil
	}

	var parts []string
	var imageKeys []string
	if body.Title != "" {
		parts = append(parts, body.Title)
	}
	for _, line := range body.Content {
		for _, run := range line {
			switch run.Tag {
			case "text", "a":
				if run.Text != "" {
					parts = append(parts, run.Text)
				}
			case "img":
				if run.ImageKey != "" {
					imageKeys = append(imageKeys, run.ImageKey)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), imageKeys
}

// MentionsBot reports whether the message addresses this bot: by app ID,
// by mention name, or by a literal "@<bot name>" in the text.
func MentionsBot(mentions []Mention, text, appID, botName string) bool {
	for _, m := range mentions {
		if appID != "" && m.ID.AppID == appID {
			return true
		}
		if botName != "" && m.Name == botName {
			return true
		}
	}
	return botName != "" && strings.Contains(text, "@"+botName)
}

// MentionsSomeoneElse reports whether the message @-mentions any user
// other than the bot.
func MentionsSomeoneElse(mentions []Mention, appID, botName string) bool {
	for _, m := range mentions {
		if appID != "" && m.ID.AppID == appID {
			continue
		}
		if botName != "" && m.Name == botName {
			continue
		}
		return true
	}
	return false
}

// ReplaceMentionKeys rewrites "@_user_N" placeholders in text with the
// mentioned display names so the model sees readable context.
func ReplaceMentionKeys(text string, mentions []Mention) string {
	for _, m := range mentions {
		if m.Key == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = "某人"
		}
		text = strings.ReplaceAll(text, m.Key, "@"+name)
	}
	return strings.TrimSpace(text)
}

// StripLeadingMention removes a leading "@xxx" word, used to clean
// prompts like "@群助手 画一只猫".
func StripLeadingMention(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "@") {
		return trimmed
	}
	if i := strings.IndexAny(trimmed, " \t\n"); i >= 0 {
		return strings.TrimSpace(trimmed[i+1:])
	}
	return ""
}
