package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/config"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
)

const (
	defaultSpeechHost = "wss://openspeech.bytedance.com"
	asrPath           = "/api/v3/sauc/bigmodel_nostream"

	asrResourceDuration   = "volc.bigasr.sauc.duration"
	asrResourceConcurrent = "volc.bigasr.sauc.concurrent"

	// 16kHz, 16bit, mono, 200ms
	asrChunkSize = 6400
)

// ErrEmptyAudio 表示没有可识别的音频数据。
var ErrEmptyAudio = errors.New("no audio data to send")

// ASRClient 火山引擎大模型语音识别客户端
type ASRClient struct {
	cfg      config.SpeechConfig
	dialer   *websocket.Dialer
	endpoint string
	// chunkInterval 为分包发送间隔，0 表示不限速
	chunkInterval time.Duration
}

type asrPayload struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// NewASRClient 创建语音识别客户端
func NewASRClient(cfg config.SpeechConfig) *ASRClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ASRClient{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		endpoint: speechEndpoint(cfg.BaseURL, asrPath),
	}
}

// Transcribe 识别一段录音并返回文本，供会话直接使用。
func (c *ASRClient) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	resp, err := c.Recognize(ctx, &speechmodel.ASRRequest{
		Audio:      clip.Data,
		Format:     clip.Format,
		SampleRate: clip.SampleRate,
		Language:   c.cfg.ASRLanguage,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Recognize 通过 WebSocket 二进制协议完成一次识别。
func (c *ASRClient) Recognize(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}

	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	connectID := uuid.NewString()
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = connectID
	}

	resourceID := asrResourceDuration
	if c.cfg.ASRConcurrent {
		resourceID = asrResourceConcurrent
	}

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
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		log.Printf("[ASR] connected with logid: %s", logid)
	}

	payload, err := json.Marshal(c.buildPayload(req, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	if err := writeFrame(conn, &frame{
		kind:          frameFullClient,
		flags:         flagNoSequence,
		serialization: serializationJSON,
		compression:   compressionGzip,
		payload:       payload,
	}); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.sendAudio(ctx, conn, req.Audio)
	}()

	result, recvErr := c.receive(conn, sessionID)
	if recvErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, recvErr
	}

	// 服务端已返回最终结果，发送协程随连接关闭退出
	select {
	case err := <-sendErr:
		if err != nil {
			log.Printf("[ASR] audio upload ended with error after final result: %v", err)
		}
	default:
	}

	return result, nil
}

func (c *ASRClient) buildPayload(req *speechmodel.ASRRequest, uid string) *asrPayload {
	p := &asrPayload{}
	p.User.UID = uid

	p.Audio.Format = req.Format
	if p.Audio.Format == "" {
		p.Audio.Format = audio.FormatPCM16
	}
	p.Audio.Language = req.Language
	if p.Audio.Language == "" {
		p.Audio.Language = c.cfg.ASRLanguage
	}
	p.Audio.Codec = "raw"
	p.Audio.Rate = req.SampleRate
	if p.Audio.Rate <= 0 {
		p.Audio.Rate = audio.DefaultSampleRate
	}
	p.Audio.Bits = 16
	p.Audio.Channel = 1

	p.Request.ModelName = "bigmodel"
	p.Request.EnableITN = true
	p.Request.EnablePunc = true
	p.Request.ShowUtterances = true
	p.Request.ResultType = "full"
	p.Request.EndWindowSize = 800

	return p
}

// sendAudio 分包上传音频，序号从 2 开始，最后一包使用负序号。
func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, data []byte) error {
	sequence := int32(2)
	for offset := 0; offset < len(data); offset += asrChunkSize {
		end := min(offset+asrChunkSize, len(data))
		last := end >= len(data)

		f := &frame{
			kind:          frameAudioClient,
			flags:         flagPositiveSequence,
			serialization: serializationNone,
			compression:   compressionGzip,
			sequence:      sequence,
			payload:       data[offset:end],
		}
		if last {
			f.flags = flagNegativeSequence
			f.sequence = -sequence
		}
		if err := writeFrame(conn, f); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		if last {
			return nil
		}
		sequence++

		if c.chunkInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.chunkInterval):
			}
		}
	}
	return nil
}

func (c *ASRClient) receive(conn *websocket.Conn, sessionID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		msg, err := unmarshalFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch msg.kind {
		case frameError:
			return nil, fmt.Errorf("ASR error %d: %s", msg.errorCode, string(msg.payload))

		case frameFullServer:
			var serverResp asrServerMessage
			if len(msg.payload) > 0 {
				if err := json.Unmarshal(msg.payload, &serverResp); err != nil {
					log.Printf("[ASR] failed to unmarshal response: %v", err)
					continue
				}
			}

			if serverResp.Code != 0 && serverResp.Code != 20000000 {
				return nil, fmt.Errorf("ASR API error %d: %s", serverResp.Code, serverResp.Message)
			}

			candidate := serverResp.Result.Text
			if candidate == "" {
				candidate = joinUtterances(serverResp.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if serverResp.AudioInfo.Duration > 0 {
				duration = serverResp.AudioInfo.Duration
			}

			if msg.final() {
				if text == "" {
					log.Printf("[ASR] empty transcript for session %s", sessionID)
				}
				return &speechmodel.ASRResponse{
					SessionID: sessionID,
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					RequestID: sessionID,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func writeFrame(conn *websocket.Conn, f *frame) error {
	data, err := f.marshal()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// speechEndpoint 拼接服务地址，base 为空时使用官方域名。
func speechEndpoint(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultSpeechHost
	}
	return base + path
}
