package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/game-friend/backend/internal/analysis/emotion"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// Config 控制情绪分类器的行为。
type Config struct {
	Enabled      bool
	HistoryLimit int
}

// Classifier 使用大模型判断朗读回复应采用的情绪，失败时回退到关键词规则。
type Classifier struct {
	enabled      bool
	chain        compose.Runnable[map[string]any, *schema.Message]
	fallback     func(user, assistant string) analysis.Decision
	historyLimit int
}

// NewClassifier 创建情绪分类器。chatModel 为空或未启用时只使用关键词规则。
func NewClassifier(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Classifier, error) {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 6
	}

	c := &Classifier{
		enabled:      cfg.Enabled && chatModel != nil,
		fallback:     analysis.Analyze,
		historyLimit: historyLimit,
	}
	if !c.enabled {
		return c, nil
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(emotionSystemPrompt),
		schema.UserMessage(emotionUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}
	c.chain = runnable
	return c, nil
}

// Enabled 返回是否使用大模型分类。
func (c *Classifier) Enabled() bool {
	return c != nil && c.enabled && c.chain != nil
}

// Classify 根据用户发言、角色回复与最近对话给出朗读情绪。
func (c *Classifier) Classify(ctx context.Context, req session.SpeechRequest) analysis.Decision {
	if !c.Enabled() {
		return c.fallback(req.Prompt, req.Text)
	}

	input := map[string]any{
		"persona":      summarizePersona(req.Persona),
		"history":      formatHistory(req.History, c.historyLimit),
		"user_message": strings.TrimSpace(req.Prompt),
		"reply":        strings.TrimSpace(req.Text),
	}

	msg, err := c.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[emotion] classifier invoke failed, use fallback: %v", err)
		return c.fallback(req.Prompt, req.Text)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return c.fallback(req.Prompt, req.Text)
	}

	result, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[emotion] classifier output parse failed, use fallback: %v", err)
		return c.fallback(req.Prompt, req.Text)
	}

	label, ok := parseEmotionLabel(result.Emotion)
	if !ok {
		return c.fallback(req.Prompt, req.Text)
	}

	scale := clampScale(result.Scale)
	if result.Reason != "" {
		log.Printf("[emotion] %s x%.1f: %s", label, scale, result.Reason)
	}
	return analysis.Decision{
		Emotion: label,
		Scale:   scale,
		Score:   int(scale * 2),
	}
}

// parseClassifierOutput 解析大模型返回的 JSON，容忍前后多余文本。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func summarizePersona(p persona.Persona) string {
	if strings.TrimSpace(p.Name) == "" {
		return "无特定角色设定。"
	}

	sections := []string{
		fmt.Sprintf("名字:%s", strings.TrimSpace(p.Name)),
		fmt.Sprintf("性格:%s", strings.TrimSpace(p.Personality)),
	}
	if p.Style != "" {
		sections = append(sections, fmt.Sprintf("风格:%s", p.Style))
	}
	return strings.Join(sections, " | ")
}

func formatHistory(lines []string, limit int) string {
	if len(lines) == 0 {
		return "无历史对话"
	}
	limit = max(limit, 1)
	start := max(len(lines)-limit, 0)

	kept := make([]string, 0, len(lines)-start)
	for _, line := range lines[start:] {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "无历史对话"
	}
	return strings.Join(kept, "\n")
}

func parseEmotionLabel(raw string) (analysis.Label, bool) {
	switch analysis.Label(strings.ToLower(strings.TrimSpace(raw))) {
	case analysis.Neutral:
		return analysis.Neutral, true
	case analysis.Happy:
		return analysis.Happy, true
	case analysis.Sad:
		return analysis.Sad, true
	case analysis.Angry:
		return analysis.Angry, true
	case analysis.Excited:
		return analysis.Excited, true
	case analysis.Tender:
		return analysis.Tender, true
	case analysis.Comfort:
		return analysis.Comfort, true
	case analysis.Magnetic:
		return analysis.Magnetic, true
	default:
		return "", false
	}
}

func clampScale(val float32) float32 {
	if val <= 0 {
		return 3
	}
	if val < 1 {
		return 1
	}
	if val > 5 {
		return 5
	}
	return val
}

type classifierPayload struct {
	Emotion string  `json:"emotion"`
	Scale   float32 `json:"scale"`
	Reason  string  `json:"reason"`
}

const emotionSystemPrompt = "你是一名游戏陪玩语音的情绪导演。对话发生在玩家与 AI 游戏伙伴之间，内容多为韩语。请阅读角色设定、最近对话、玩家最新发言以及角色即将朗读的回复，判断朗读这段回复最合适的情绪。\n输出要求：只返回一个 JSON 对象，字段如下：emotion (必须是 neutral/happy/sad/angry/excited/tender/comfort/magnetic 之一)、scale (1~5 之间的数字，可有小数)、reason (简要中文理由)。不得输出多余文本。"

const emotionUserPrompt = "角色信息：\n{persona}\n\n最近对话：\n{history}\n\n玩家最新发言（通知类消息为空）：\n{user_message}\n\n角色将要朗读的回复：\n{reply}\n\n请基于这些信息给出 JSON。"
