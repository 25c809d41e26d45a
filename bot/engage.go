package bot

import "strings"

// engageKeywords each add 0.2 to the proactive score.
var engageKeywords = []string{
	"怎么", "如何", "为啥", "为什么", "怎么办",
	"谁知道", "有链接吗", "总结", "结论", "进展", "?", "？",
}

// zipKeywords mean "stay silent": the bot acknowledges with 🤐 only.
var zipKeywords = []string{
	"啥都不用做", "你呆着就好", "别说话", "闭嘴",
	"安静点", "不用回", "不用回复", "不需要你",
}

// noReferenceKeywords opt a draw request out of using attached images.
var noReferenceKeywords = []string{
	"不用参考", "不参考", "忽略图片", "不基于", "独立创作",
}

// BasicEngageScore scores how much a message invites a reply: 0.2 per
// matched keyword, an extra 0.2 when it is a question, capped at 1.0.
func BasicEngageScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range engageKeywords {
		if strings.Contains(text, kw) || strings.Contains(lower, kw) {
			score += 0.2
		}
	}
	if strings.Contains(text, "?") || strings.Contains(text, "？") {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ShouldZipReply reports whether the user asked the bot to stay quiet.
func ShouldZipReply(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	for _, kw := range zipKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// hasNoReferenceIntent reports whether a draw prompt explicitly declines
// the attached reference image.
func hasNoReferenceIntent(text string) bool {
	for _, kw := range noReferenceKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// searchIndicators gate SearXNG enrichment to questions that look like
// they need fresh or factual information.
var searchIndicators = []string{
	"最新", "实时", "当前", "现在", "今天", "最近",
	"查询", "了解", "是什么", "怎么样", "有哪些",
	"latest", "current", "today", "recent", "what is", "how",
}

func needsWebSearch(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range searchIndicators {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
