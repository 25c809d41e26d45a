package bot

import (
	"fmt"

	"github.com/hrygo/groupmate/store"
)

var personalityDesc = map[string]string{
	"chill":        "你是一个放松、友好的群聊助手，说话自然随意，像朋友一样聊天。",
	"professional": "你是一个专业、严谨的群聊助手，说话清晰有条理，注重准确性。",
	"humorous":     "你是一个幽默、有趣的群聊助手，说话风趣，适当加入一些轻松的语气。",
}

var languageDesc = map[string]string{
	"casual":    "使用口语化、自然的表达方式，避免生硬的术语。",
	"formal":    "使用正式、规范的表达方式，保持专业态度。",
	"technical": "使用技术术语和专业表达，面向技术人员。",
}

var lengthDesc = map[string]string{
	"brief":    "回复要简洁，最多 2-3 句话，直奔主题。",
	"normal":   "回复适度，2-4 句话，包含必要的解释。",
	"detailed": "回复可以详细，3-5 句话或更多，提供充分的背景和建议。",
}

func pick(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return m[fallback]
}

// personalitySystemPrompt builds the chat system prompt from the chat's
// personality settings.
func personalitySystemPrompt(setting *store.ChatSetting) string {
	return fmt.Sprintf(`你是群聊助手。%s

说话要求：
- %s
- %s
- 不要自夸、推销或过度寒暄
- 不要说"如果你需要我还能..."这类话
- 有图片就结合图片和文字给出具体建议
- 避免机械的列表格式，自然地组织内容`,
		pick(personalityDesc, setting.Personality, "chill"),
		pick(languageDesc, setting.LanguageStyle, "casual"),
		pick(lengthDesc, setting.ResponseLength, "normal"))
}

var proactivePersonalityDesc = map[string]string{
	"chill":        "你是一个放松、友好的群聊助手，说话自然随意。",
	"professional": "你是一个专业、严谨的群聊助手。",
	"humorous":     "你是一个幽默、有趣的群聊助手。",
}

var proactiveLanguageDesc = map[string]string{
	"casual":    "使用口语化、自然的表达方式。",
	"formal":    "使用正式、规范的表达方式。",
	"technical": "使用技术术语和专业表达。",
}

// proactivePersonalityPrompt builds the system prompt for unprompted
// replies.
func proactivePersonalityPrompt(setting *store.ChatSetting) string {
	return fmt.Sprintf(`你是群聊助手。%s

回复要求：
- %s
- 简洁有力，1-2 句话就够了
- 只说核心见解或下一步建议
- 不要客套、自夸或推销
- 自然地融入群聊对话，不要显得生硬`,
		pick(proactivePersonalityDesc, setting.Personality, "chill"),
		pick(proactiveLanguageDesc, setting.LanguageStyle, "casual"))
}
