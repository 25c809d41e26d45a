package bot

// System prompts for the bot persona.
const (
	systemPromptChat = "你叫托兰，是群聊助手，同时也是群里的一员，说话要有人味。不要自夸/推销/寒暄，说话言简意赅不要啰嗦，不要装腔作势。平铺直叙的输出，而不是markdown格式。"

	systemPromptProactive = "你叫托兰，是群聊助手，同时也是群里的一员，说话要有人味。不要自夸/推销/寒暄，说话言简意赅不要啰嗦，不要装腔作势。平铺直叙的输出，而不是markdown格式。"

	systemPromptSummary = "你叫托兰，是擅长做会议/群聊总结的助理，同时也是群里的一员，说话要有人味。不要自夸/推销/寒暄，说话言简意赅不要啰嗦，不要装腔作势。"

	systemPromptWelcome = "你叫托兰，是友好的群聊助手，擅长写欢迎语，同时也是群里的一员，说话要有人味。不要自夸/推销/寒暄，说话言简意赅不要啰嗦，不要装腔作势。"
)

// Prompt templates.
const (
	promptTemplateChat = "群上下文：\n%s\n\n用户问题：%s\n请用简短要点直接回答。"

	promptTemplateProactive = "群上下文：\n%s\n\n有人说：%s\n请做出回应，说话像人类、直接、不啰嗦。不要自夸/推销/寒暄。"

	promptTemplateSummary = "请对以下群聊做%s总结：\n- 输出：主题Top N、关键结论/决定、待办与负责人。\n- 语气客观，条理清晰。\n\n片段：\n%s"

	promptTemplateWelcome = "为新成员写一段20~40字的欢迎语。\n上下文示例：\n%s"

	promptTemplateImageGen = "根据用户需求生成图片。\n\n用户需求: %s\n\n请生成符合要求的图片。"

	promptTemplateImageToImage = "根据参考图片和用户需求生成新图片。\n\n参考图片已提供。\n用户需求: %s\n\n请基于参考图片生成符合要求的新图片。"
)

// User-visible messages.
const (
	msgThinking = "让我想想……"
	msgZipReply = "🤐"

	msgThresholdSet   = "已将主动发言阈值设置为 %g"
	msgThresholdError = "阈值需为0~1数字，例如 /settings threshold 0.65"
	msgModeSet        = "已切换模式为 %s"
	msgSettingsUnknown = "未识别的设置项。"
	msgOptoutConfirmed = "已记录；后续公共总结将不展示你的个人条目。"

	msgNoMessagesForSummary = "最近没有足够的消息用于%s总结。"

	msgWelcomePrefix = "欢迎 %s 加入！\n"
	msgWelcomeSuffix = "\n可使用 /help 查看指令。"

	msgDrawing      = "正在绘制中，请稍候..."
	msgDrawSuccess  = "图片已生成！"
	msgDrawFailed   = "图片生成失败，请稍后重试"
	msgDrawNoConfig = "绘图功能未配置，请联系管理员设置 IMAGE_MODEL 相关配置"
	msgLLMError     = "抱歉，我这边出了点问题，稍后再试。"

	msgReset = "已重置 Bot 状态：\n" +
		"- 清空会话记录\n" +
		"- 重置主动发言阈值为 0.65\n" +
		"- 重置发言模式为 normal\n" +
		"- 忘记所有之前的对话上下文"

	helpText = "可用命令：\n" +
		"/summary weekly|monthly - 生成群总结\n" +
		"/settings threshold <0~1> - 调整主动发言阈值（0=总是回复，1=从不回复）\n" +
		"/settings mode quiet|normal|active - 调整发言模式\n" +
		"  - quiet: 仅在被@时回复\n" +
		"  - normal: 默认模式，根据阈值自动回复\n" +
		"  - active: 更积极地自动回复\n" +
		"/optout - 个人选择不纳入公开个人总结\n" +
		"/reset - 重置 Bot 状态（清空会话、重置设置）\n" +
		"\n💡 提示：如不想自动回复，使用 /settings mode quiet"
)

// Model temperatures per reply kind.
const (
	temperatureChat      = 0.2
	temperatureProactive = 0.3
	temperatureSummary   = 0.3
	temperatureWelcome   = 0.5
)
