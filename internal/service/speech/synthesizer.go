package speech

import (
	"context"
	"strings"

	"github.com/zhouzirui/game-friend/backend/internal/analysis/emotion"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// synthesisClient 抽象 TTS 客户端，便于替换。
type synthesisClient interface {
	Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// ToneClassifier 为朗读内容选择情绪，未设置时使用关键词规则。
type ToneClassifier interface {
	Classify(ctx context.Context, req session.SpeechRequest) emotion.Decision
}

// Synthesizer 将会话的朗读请求转换为带角色音色和情绪的 TTS 调用。
type Synthesizer struct {
	client synthesisClient
	tone   ToneClassifier
}

// NewSynthesizer 创建会话使用的语音合成器。
func NewSynthesizer(client *TTSClient) *Synthesizer {
	return &Synthesizer{client: client}
}

// SynthesizeSpeech 实现 session.SpeechSynthesizer。
func (s *Synthesizer) SynthesizeSpeech(ctx context.Context, req session.SpeechRequest) (*session.Speech, error) {
	voice := NormalizeVoiceAlias(req.Persona.VoiceID)
	ttsReq := &speechmodel.TTSRequest{
		Text:  strings.TrimSpace(req.Text),
		Voice: voice,
	}

	var decision emotion.Decision
	if s.tone != nil {
		decision = s.tone.Classify(ctx, req)
	} else {
		decision = emotion.Analyze(req.Prompt, req.Text)
	}
	if enable, label, scale := ComputeEmotionParameters(voice, decision); enable {
		ttsReq.Emotion = label
		ttsReq.EmotionScale = scale
	}

	resp, err := s.client.Synthesize(ctx, ttsReq)
	if err != nil {
		return nil, err
	}

	return &session.Speech{
		Text:   req.Text,
		Audio:  resp.AudioData,
		Format: resp.Format,
		Voice:  resp.Voice,
	}, nil
}
