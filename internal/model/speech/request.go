package speech

// ASRRequest 语音识别请求，Audio 为单声道 PCM16 或 WAV 数据。
type ASRRequest struct {
	SessionID  string `json:"sessionId"`
	Audio      []byte `json:"-"`
	Format     string `json:"format"`     // pcm, wav
	SampleRate int    `json:"sampleRate"` // Hz
	Language   string `json:"language"`   // ko-KR, zh-CN, etc.
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	SessionID    string  `json:"sessionId"`
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`  // 声音类型
	Speed        float32 `json:"speed"`  // 语速倍率 0.5-2.0
	Volume       float32 `json:"volume"` // 音量 0.0-1.0
	Format       string  `json:"format"` // mp3, pcm, etc.
	Language     string  `json:"language"`
	Emotion      string  `json:"emotion,omitempty"`      // 情绪标签，仅情感音色生效
	EmotionScale float32 `json:"emotionScale,omitempty"` // 1-5
}
