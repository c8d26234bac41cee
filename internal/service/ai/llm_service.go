package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/game-friend/backend/internal/config"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

const historyLimit = 10

// Service generates persona replies through an eino chain backed by Ark.
type Service struct {
	chatModel model.ChatModel
	prompts   *PersonaPromptManager
	chain     compose.Runnable[map[string]any, *schema.Message]
}

var _ session.Responder = (*Service)(nil)

// NewService creates a new AI service instance
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel builds the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		prompts:   NewPersonaPromptManager(),
		chain:     runnable,
	}, nil
}

// GenerateResponse produces the persona's reply to the latest utterance
func (s *Service) GenerateResponse(ctx context.Context, req session.ResponseRequest) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	log.Printf("[ai] generated response for game=%s, persona=%s, length=%d", req.Game.ID, req.Persona.ID, len(text))
	return text, nil
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) buildChainInput(req session.ResponseRequest) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(req.Persona, req.Game),
		"history": buildHistoryMessages(req.History, req.Persona.Name),
		"query":   req.Utterance,
	}
}

// buildHistoryMessages turns "<speaker>: <text>" lines back into chat turns.
func buildHistoryMessages(lines []string, personaName string) []*schema.Message {
	if len(lines) == 0 {
		return nil
	}

	start := 0
	if len(lines) > historyLimit {
		start = len(lines) - historyLimit
	}

	userPrefix := "User: "
	assistantPrefix := personaName + ": "

	history := make([]*schema.Message, 0, len(lines)-start)
	for _, line := range lines[start:] {
		switch {
		case strings.HasPrefix(line, userPrefix):
			history = append(history, schema.UserMessage(strings.TrimPrefix(line, userPrefix)))
		case personaName != "" && strings.HasPrefix(line, assistantPrefix):
			history = append(history, schema.AssistantMessage(strings.TrimPrefix(line, assistantPrefix), nil))
		default:
			history = append(history, schema.AssistantMessage(line, nil))
		}
	}
	return history
}
