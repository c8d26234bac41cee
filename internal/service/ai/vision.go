package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/game-friend/backend/internal/config"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

const visionInstruction = `당신은 게임 화면을 보고 플레이어에게 조언하는 AI 게임 친구입니다.
게임: %s (%s)
화면에서 보이는 핵심 상황을 한 문장으로 설명하고, 지금 할 수 있는 구체적인 행동 하나를 한국어로 제안하세요.`

// VisionAnalyzer describes game screens with a multimodal Ark model.
type VisionAnalyzer struct {
	chatModel model.ChatModel
}

var _ session.ScreenAnalyzer = (*VisionAnalyzer)(nil)

// NewVisionAnalyzer creates the analyzer from configuration.
func NewVisionAnalyzer(ctx context.Context, cfg config.AIConfig) (*VisionAnalyzer, error) {
	chatModel, err := cfg.NewVisionModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision model: %w", err)
	}
	return &VisionAnalyzer{chatModel: chatModel}, nil
}

// NewVisionAnalyzerWithModel wraps an existing chat model.
func NewVisionAnalyzerWithModel(chatModel model.ChatModel) *VisionAnalyzer {
	return &VisionAnalyzer{chatModel: chatModel}
}

// AnalyzeScreen sends the frame with a game-specific instruction. Without a
// frame the model is asked for general advice instead.
func (v *VisionAnalyzer) AnalyzeScreen(ctx context.Context, image []byte, g game.Game) (string, error) {
	instruction := fmt.Sprintf(visionInstruction, g.Name, g.Description)

	msg := &schema.Message{Role: schema.User}
	if len(image) == 0 {
		msg.Content = instruction + "\n화면 캡처를 받지 못했습니다. 이 게임에서 흔히 놓치는 점 하나를 알려 주세요."
	} else {
		msg.MultiContent = []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: instruction},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:    dataURL(image),
					Detail: schema.ImageURLDetailAuto,
				},
			},
		}
	}

	response, err := v.chatModel.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("vision model call failed: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("vision model returned an empty description")
	}
	log.Printf("[ai] analyzed screen for game=%s, frame=%d bytes", g.ID, len(image))
	return text, nil
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
