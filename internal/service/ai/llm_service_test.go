package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

type recordingModel struct {
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *recordingModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestGenerateResponseBuildsPersonaConversation(t *testing.T) {
	fake := &recordingModel{reply: "  가장자리의 숫자부터 확인해 보세요.  "}
	svc, err := NewServiceWithModel(context.Background(), fake)
	if err != nil {
		t.Fatalf("NewServiceWithModel returned error: %v", err)
	}

	reply, err := svc.GenerateResponse(context.Background(), session.ResponseRequest{
		Utterance: "다음엔 어디를 열까?",
		Game:      game.Game{ID: "minesweeper", Name: "지뢰찾기"},
		Persona:   persona.Persona{ID: "luka", Name: "루카", Personality: "분석형"},
		History:   []string{"User: 안녕", "루카: 반가워요"},
	})
	if err != nil {
		t.Fatalf("GenerateResponse returned error: %v", err)
	}
	if reply != "가장자리의 숫자부터 확인해 보세요." {
		t.Fatalf("unexpected reply %q", reply)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one model call, got %d", len(fake.inputs))
	}
	msgs := fake.inputs[0]
	if len(msgs) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(msgs))
	}
	if msgs[0].Role != schema.System || !strings.Contains(msgs[0].Content, "루카") || !strings.Contains(msgs[0].Content, "지뢰찾기") {
		t.Fatalf("system prompt missing persona or game: %q", msgs[0].Content)
	}
	if msgs[1].Role != schema.User || msgs[1].Content != "안녕" {
		t.Fatalf("unexpected first history turn: %+v", msgs[1])
	}
	if msgs[2].Role != schema.Assistant || msgs[2].Content != "반가워요" {
		t.Fatalf("unexpected second history turn: %+v", msgs[2])
	}
	if msgs[3].Role != schema.User || msgs[3].Content != "다음엔 어디를 열까?" {
		t.Fatalf("unexpected query: %+v", msgs[3])
	}
}

func TestGenerateResponsePropagatesModelErrors(t *testing.T) {
	svc, err := NewServiceWithModel(context.Background(), &recordingModel{err: errors.New("quota exceeded")})
	if err != nil {
		t.Fatalf("NewServiceWithModel returned error: %v", err)
	}

	if _, err := svc.GenerateResponse(context.Background(), session.ResponseRequest{Utterance: "hi"}); err == nil {
		t.Fatal("expected error from failing model")
	}
}

func TestBuildHistoryMessagesKeepsRecentTurns(t *testing.T) {
	lines := make([]string, 0, 14)
	for i := 0; i < 7; i++ {
		lines = append(lines, "User: q", "민트: a")
	}

	history := buildHistoryMessages(lines, "민트")
	if len(history) != historyLimit {
		t.Fatalf("expected %d turns, got %d", historyLimit, len(history))
	}
	if history[0].Role != schema.User || history[1].Role != schema.Assistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestBuildSystemPromptFallsBackForUnknownPersona(t *testing.T) {
	pm := NewPersonaPromptManager()
	prompt := pm.BuildSystemPrompt(persona.Persona{ID: "guest", Name: "게스트"}, game.Game{Name: "테트리스"})
	if !strings.Contains(prompt, "게스트") || !strings.Contains(prompt, "테트리스") {
		t.Fatalf("fallback prompt missing names: %q", prompt)
	}
}

func TestAnalyzeScreenSendsImagePart(t *testing.T) {
	fake := &recordingModel{reply: "왼쪽 아래에 지뢰가 있어요."}
	analyzer := NewVisionAnalyzerWithModel(fake)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	got, err := analyzer.AnalyzeScreen(context.Background(), png, game.Game{ID: "minesweeper", Name: "지뢰찾기"})
	if err != nil {
		t.Fatalf("AnalyzeScreen returned error: %v", err)
	}
	if got != "왼쪽 아래에 지뢰가 있어요." {
		t.Fatalf("unexpected analysis %q", got)
	}

	parts := fake.inputs[0][0].MultiContent
	if len(parts) != 2 || parts[1].ImageURL == nil {
		t.Fatalf("expected text and image parts, got %+v", parts)
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("unexpected data url prefix: %.40s", parts[1].ImageURL.URL)
	}
}

func TestAnalyzeScreenWithoutFrameUsesTextPrompt(t *testing.T) {
	fake := &recordingModel{reply: "팁"}
	if _, err := NewVisionAnalyzerWithModel(fake).AnalyzeScreen(context.Background(), nil, game.Game{Name: "TFT"}); err != nil {
		t.Fatalf("AnalyzeScreen returned error: %v", err)
	}
	if msg := fake.inputs[0][0]; len(msg.MultiContent) != 0 || msg.Content == "" {
		t.Fatalf("expected plain text prompt, got %+v", msg)
	}
}
