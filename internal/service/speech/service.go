package speech

import (
	"github.com/zhouzirui/game-friend/backend/internal/config"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// Service 汇总火山引擎语音识别与合成能力，供会话协作方绑定。
type Service struct {
	asr         *ASRClient
	tts         *TTSClient
	synthesizer *Synthesizer
}

// NewService 创建语音服务实例
func NewService(cfg config.SpeechConfig) *Service {
	tts := NewTTSClient(cfg)
	return &Service{
		asr:         NewASRClient(cfg),
		tts:         tts,
		synthesizer: NewSynthesizer(tts),
	}
}

// Transcriber 返回会话使用的语音识别实现。
func (s *Service) Transcriber() session.Transcriber {
	return s.asr
}

// Synthesizer 返回会话使用的语音合成实现。
func (s *Service) Synthesizer() session.SpeechSynthesizer {
	return s.synthesizer
}

// UseToneClassifier 设置朗读情绪分类器，需在会话开始前调用。
func (s *Service) UseToneClassifier(tone ToneClassifier) {
	s.synthesizer.tone = tone
}

// ASR 返回底层识别客户端。
func (s *Service) ASR() *ASRClient {
	return s.asr
}

// TTS 返回底层合成客户端。
func (s *Service) TTS() *TTSClient {
	return s.tts
}
