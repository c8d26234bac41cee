package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/game-friend/backend/internal/config"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
)

const ttsPath = "/api/v3/tts/unidirectional/stream"

// ErrEmptyText 表示待合成文本为空。
var ErrEmptyText = errors.New("TTS text is empty")

// TTSClient 火山引擎单向流式语音合成客户端
type TTSClient struct {
	cfg      config.SpeechConfig
	dialer   *websocket.Dialer
	endpoint string
}

type ttsPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string        `json:"speaker"`
		Text        string        `json:"text"`
		AudioParams ttsAudioParam `json:"audio_params"`
		Additions   string        `json:"additions,omitempty"`
		Language    string        `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParam struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
	Emotion         string  `json:"emotion,omitempty"`
	EmotionScale    float32 `json:"emotion_scale,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// NewTTSClient 创建语音合成客户端
func NewTTSClient(cfg config.SpeechConfig) *TTSClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TTSClient{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		endpoint: speechEndpoint(cfg.BaseURL, ttsPath),
	}
}

// Synthesize 合成语音，音色与资源 ID 不匹配时依次尝试候选组合。
func (c *TTSClient) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	format := strings.TrimSpace(req.Format)
	if format == "" || format == "wav" {
		format = "mp3"
	}

	speakers := resolveTTSSpeakerCandidates(req.Voice, c.cfg.TTSVoice)
	var lastMismatch error

	for speakerIdx, speaker := range speakers {
		for resourceIdx, resourceID := range resolveTTSResourceCandidates(speaker) {
			resp, attemptErr := c.synthesizeWithResource(ctx, req, appID, token, speaker, format, resourceID)
			if attemptErr == nil {
				if resourceIdx > 0 || speakerIdx > 0 {
					log.Printf("[TTS] voice %s succeeded with fallback resource %s", speaker, resourceID)
				}
				return resp, nil
			}

			if !isResourceMismatchError(attemptErr) {
				return nil, attemptErr
			}
			log.Printf("[TTS] voice %s resource %s mismatch: %v", speaker, resourceID, attemptErr)
			lastMismatch = attemptErr
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("TTS synthesis failed: no compatible resource id or speaker for voice candidates %v", speakers)
}

func (c *TTSClient) synthesizeWithResource(
	ctx context.Context,
	req *speechmodel.TTSRequest,
	appID, token, speaker, format, resourceID string,
) (*speechmodel.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		log.Printf("[TTS] connected with logid: %s", logid)
	}

	payload, uid := c.buildPayload(req, speaker, format)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}
	if err := writeFrame(conn, &frame{
		kind:          frameFullClient,
		flags:         flagNoSequence,
		serialization: serializationJSON,
		compression:   compressionNone,
		payload:       data,
	}); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uid
	}

	result, err := c.receive(conn, connectID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	result.SessionID = sessionID
	result.Voice = speaker
	result.Format = format
	return result, nil
}

func (c *TTSClient) receive(conn *websocket.Conn, connectID string) (*speechmodel.TTSResponse, error) {
	var (
		buf      bytes.Buffer
		reqID    string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}

		msg, err := unmarshalFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS message: %w", err)
		}

		switch msg.kind {
		case frameError:
			return nil, fmt.Errorf("TTS error %d: %s", msg.errorCode, string(msg.payload))

		case frameAudioServer:
			buf.Write(msg.payload)
			if msg.final() {
				return finishTTS(&buf, reqID, connectID, duration)
			}

		case frameFullServer:
			if msg.hasEvent() && msg.event != eventSessionFinished {
				log.Printf("[TTS] server event: %d", msg.event)
			}

			if len(msg.payload) > 0 {
				var serverResp ttsServerMessage
				if err := json.Unmarshal(msg.payload, &serverResp); err != nil {
					log.Printf("[TTS] failed to unmarshal response payload: %v", err)
				} else {
					if serverResp.Code != 0 && serverResp.Code != 3000 {
						return nil, fmt.Errorf("TTS API error %d: %s", serverResp.Code, serverResp.Message)
					}
					if serverResp.ReqID != "" {
						reqID = serverResp.ReqID
					}
					if serverResp.Addition.Duration != "" {
						if parsed, err := strconv.ParseInt(serverResp.Addition.Duration, 10, 64); err == nil {
							duration = parsed
						}
					}
					if serverResp.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(serverResp.Data)
						if err != nil {
							return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
						}
						buf.Write(chunk)
					}
				}
			}

			if (msg.hasEvent() && msg.event == eventSessionFinished) || msg.final() {
				return finishTTS(&buf, reqID, connectID, duration)
			}

		default:
			log.Printf("[TTS] unexpected message type: %d", msg.kind)
		}
	}
}

func finishTTS(buf *bytes.Buffer, reqID, connectID string, duration int64) (*speechmodel.TTSResponse, error) {
	if buf.Len() == 0 {
		return nil, fmt.Errorf("TTS audio is empty")
	}
	if reqID == "" {
		reqID = connectID
	}
	return &speechmodel.TTSResponse{
		AudioData: buf.Bytes(),
		Duration:  duration,
		RequestID: reqID,
		CreatedAt: time.Now(),
	}, nil
}

func (c *TTSClient) buildPayload(req *speechmodel.TTSRequest, speaker, format string) (*ttsPayload, string) {
	p := &ttsPayload{}

	uid := strings.TrimSpace(req.SessionID)
	if uid == "" {
		uid = uuid.NewString()
	}
	p.User.UID = uid

	p.ReqParams.Speaker = speaker
	p.ReqParams.Text = req.Text
	p.ReqParams.AudioParams.Format = format
	p.ReqParams.AudioParams.SampleRate = 24000
	p.ReqParams.AudioParams.EnableTimestamp = true

	speed := req.Speed
	if speed <= 0 {
		speed = c.cfg.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		p.ReqParams.AudioParams.SpeedRatio = speed
	}

	volume := req.Volume
	if volume <= 0 {
		volume = c.cfg.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		p.ReqParams.AudioParams.VolumeRatio = volume
	}

	if req.Emotion != "" {
		p.ReqParams.AudioParams.Emotion = req.Emotion
		p.ReqParams.AudioParams.EmotionScale = req.EmotionScale
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = strings.TrimSpace(c.cfg.TTSLanguage)
	}
	p.ReqParams.Language = language
	p.ReqParams.Additions = `{"disable_markdown_filter":false}`

	return p, uid
}

func resolveTTSResourceCandidates(voice string) []string {
	const (
		defaultResource = "volc.service_type.10029"
		megaResource    = "volc.megatts.default"
		seedResource    = "seed-tts-2.0"
	)

	voice = strings.TrimSpace(voice)
	if voice == "" {
		return []string{defaultResource, seedResource}
	}

	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	seedHints := []string{
		"bigtts", "seed", "megatts", "uranus", "venus", "jupiter",
		"saturn", "neptune", "mercury", "pluto", "mars",
	}
	for _, hint := range seedHints {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}

	return []string{defaultResource, seedResource}
}

// resolveTTSSpeakerCandidates 返回去重后的音色候选，请求音色优先，配置音色兜底。
func resolveTTSSpeakerCandidates(requested, fallback string) []string {
	var candidates []string
	add := func(s string) {
		s = NormalizeVoiceAlias(s)
		if s == "" {
			return
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	add(fallback)

	if len(candidates) == 0 {
		// 交由服务端使用默认音色
		return []string{""}
	}
	return candidates
}

func isResourceMismatchError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
