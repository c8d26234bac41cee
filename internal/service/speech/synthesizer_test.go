package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/game-friend/backend/internal/analysis/emotion"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
)

type recordingTTS struct {
	last *speechmodel.TTSRequest
	err  error
}

func (r *recordingTTS) Synthesize(_ context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	r.last = req
	if r.err != nil {
		return nil, r.err
	}
	return &speechmodel.TTSResponse{AudioData: []byte("audio"), Format: "mp3", Voice: req.Voice}, nil
}

func TestSynthesizerUsesPersonaVoiceAndEmotion(t *testing.T) {
	tts := &recordingTTS{}
	s := &Synthesizer{client: tts}

	speech, err := s.SynthesizeSpeech(context.Background(), session.SpeechRequest{
		Text:    "괜찮아요, 다음 판은 충분히 잘할 수 있어요",
		Persona: persona.Persona{ID: "mint", VoiceID: "mint-cheer"},
		Prompt:  "또 졌어 너무 속상해",
	})
	if err != nil {
		t.Fatalf("SynthesizeSpeech returned error: %v", err)
	}
	if tts.last.Voice != "zh_female_tianxinxiaomei_emo_v2_mars_bigtts" {
		t.Fatalf("unexpected voice %q", tts.last.Voice)
	}
	if tts.last.Emotion != "comfort" || tts.last.EmotionScale < 1 {
		t.Fatalf("expected comfort emotion, got %q scale %v", tts.last.Emotion, tts.last.EmotionScale)
	}
	if string(speech.Audio) != "audio" || speech.Format != "mp3" || speech.Text == "" {
		t.Fatalf("unexpected speech %+v", speech)
	}
}

type fixedTone struct {
	decision emotion.Decision
	seen     session.SpeechRequest
}

func (f *fixedTone) Classify(_ context.Context, req session.SpeechRequest) emotion.Decision {
	f.seen = req
	return f.decision
}

func TestSynthesizerPrefersToneClassifier(t *testing.T) {
	tts := &recordingTTS{}
	tone := &fixedTone{decision: emotion.Decision{Emotion: emotion.Excited, Scale: 4.5, Score: 9}}
	s := &Synthesizer{client: tts, tone: tone}

	_, err := s.SynthesizeSpeech(context.Background(), session.SpeechRequest{
		Text:    "좋아요",
		Persona: persona.Persona{VoiceID: "monday-buddy"},
		Prompt:  "이겼다",
		History: []string{"User: 이겼다"},
	})
	if err != nil {
		t.Fatalf("SynthesizeSpeech returned error: %v", err)
	}
	if len(tone.seen.History) != 1 || tone.seen.Prompt != "이겼다" {
		t.Fatalf("classifier did not receive the request: %+v", tone.seen)
	}
	if tts.last.Emotion != "excited" || tts.last.EmotionScale != 4.5 {
		t.Fatalf("expected classifier emotion, got %q scale %v", tts.last.Emotion, tts.last.EmotionScale)
	}
}

func TestSynthesizerPropagatesErrors(t *testing.T) {
	s := &Synthesizer{client: &recordingTTS{err: errors.New("boom")}}
	if _, err := s.SynthesizeSpeech(context.Background(), session.SpeechRequest{Text: "hi"}); err == nil {
		t.Fatalf("expected error")
	}
}
