package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	sessionService "github.com/zhouzirui/game-friend/backend/internal/service/session"
	"github.com/zhouzirui/game-friend/backend/internal/service/voice"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// 画面帧以 base64 JPEG 传输，需要较大的读取上限
	maxMessageBytes = 8 << 20
)

// 客户端消息类型
const (
	msgMic          = "mic"
	msgAudio        = "audio"
	msgText         = "text"
	msgRecordStart  = "record_start"
	msgRecordStop   = "record_stop"
	msgScreenFrame  = "screen_frame"
	msgScreenToggle = "screen_toggle"
	msgMute         = "mute"
)

// Options 实时连接参数
type Options struct {
	Monitor           audio.MonitorConfig
	SampleRate        int
	Clock             audio.Clock
	TranscribeTimeout time.Duration
	// MessageRate/MessageBurst 限制单连接的入站消息速率
	MessageRate  rate.Limit
	MessageBurst int
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = audio.DefaultSampleRate
	}
	if o.Clock == nil {
		o.Clock = audio.SystemClock()
	}
	if o.MessageRate <= 0 {
		o.MessageRate = 100
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = 200
	}
	return o
}

// Handler 会话实时 WebSocket 处理器，负责麦克风、录音、文本与画面帧的双向通道。
type Handler struct {
	sessions    *sessionService.Manager
	transcriber sessionService.Transcriber
	opts        Options
	registry    *Registry
	upgrader    websocket.Upgrader
}

// New 创建实时连接处理器
func New(sessions *sessionService.Manager, transcriber sessionService.Transcriber, opts Options) *Handler {
	return &Handler{
		sessions:    sessions,
		transcriber: transcriber,
		opts:        opts.withDefaults(),
		registry:    NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Registry 返回连接注册表
func (h *Handler) Registry() *Registry {
	return h.registry
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type micPayload struct {
	Available bool `json:"available"`
}

type audioPayload struct {
	PCM []byte `json:"pcm"`
}

type textPayload struct {
	Text string `json:"text"`
}

type framePayload struct {
	Image []byte `json:"image"`
}

type mutePayload struct {
	Muted bool `json:"muted"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}

	c := h.newConnection(ws, s)
	h.registry.Add(s.ID(), c)
	defer h.registry.Remove(s.ID(), c)

	log.Printf("[websocket] new connection for session: %s", s.ID())
	c.serve(r.Context())
	log.Printf("[websocket] connection closed for session: %s", s.ID())
}

// connection 单条实时连接，独占一组麦克风设备、录音器与语音检测流水线。
type connection struct {
	ws       *websocket.Conn
	session  *sessionService.Session
	device   *audio.PushDevice
	recorder *voice.Recorder
	pipeline *voice.Pipeline
	limiter  *rate.Limiter

	writeMu sync.Mutex
	wg      sync.WaitGroup
	micOn   bool
}

func (h *Handler) newConnection(ws *websocket.Conn, s *sessionService.Session) *connection {
	c := &connection{
		ws:      ws,
		session: s,
		device:  audio.NewPushDevice(h.opts.Clock),
		limiter: rate.NewLimiter(h.opts.MessageRate, h.opts.MessageBurst),
	}

	handle := audio.NewHandle(c.device)
	capture := audio.NewCapture(handle, h.opts.Clock, h.opts.SampleRate)
	c.recorder = voice.NewRecorder(s, capture, h.transcriber, h.opts.Clock, voice.RecorderOptions{
		OnDuration: func(d time.Duration) {
			c.send("recording", map[string]any{"durationMs": d.Milliseconds()})
		},
		TranscribeTimeout: h.opts.TranscribeTimeout,
	})
	c.pipeline = voice.NewPipeline(handle, h.opts.Clock, h.opts.Monitor, s, c.recorder)
	return c
}

// Close 关闭底层连接，读循环随之退出。
func (c *connection) Close() error {
	return c.ws.Close()
}

func (c *connection) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	events, unsubscribe := c.session.Subscribe()

	c.ws.SetReadLimit(maxMessageBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.send("connected", map[string]any{
		"session":  c.session.Snapshot(),
		"messages": c.session.Messages(),
	})

	c.wg.Add(2)
	go c.forward(ctx, events)
	go c.pingLoop(ctx)

	c.readLoop(ctx)

	// 已提交的识别与回复绑定在会话上，连接断开后继续完成
	cancel()
	c.pipeline.Stop()
	c.device.SetAvailable(false)
	unsubscribe()
	c.ws.Close()
	c.wg.Wait()
}

func (c *connection) readLoop(ctx context.Context) {
	for {
		var msg inboundMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error for session=%s: %v", c.session.ID(), err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		if !c.limiter.Allow() {
			if msg.Type != msgAudio {
				c.sendError("rate_limited", "too many messages")
			}
			continue
		}

		c.dispatch(ctx, &msg)
	}
}

func (c *connection) dispatch(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case msgMic:
		var p micPayload
		if !c.decode(msg, &p) {
			return
		}
		c.setMicrophone(ctx, p.Available)

	case msgAudio:
		var p audioPayload
		if !c.decode(msg, &p) {
			return
		}
		if len(p.PCM) > 0 {
			c.device.Write(p.PCM)
		}

	case msgRecordStart:
		if err := c.recorder.Start(ctx); err != nil {
			c.sendFailure(err)
		}

	case msgRecordStop:
		if err := c.recorder.Stop(ctx); err != nil {
			c.sendFailure(err)
		}

	case msgText:
		var p textPayload
		if !c.decode(msg, &p) {
			return
		}
		c.background(func() {
			if _, err := c.session.SubmitUtterance(ctx, p.Text); err != nil {
				c.sendFailure(err)
			}
		})

	case msgScreenFrame:
		var p framePayload
		if !c.decode(msg, &p) {
			return
		}
		c.session.Frames().Push(p.Image)

	case msgScreenToggle:
		c.background(func() {
			if err := c.session.Screen().Toggle(ctx); err != nil {
				c.sendFailure(err)
			}
		})

	case msgMute:
		var p mutePayload
		if !c.decode(msg, &p) {
			return
		}
		c.session.SetMuted(p.Muted)

	default:
		c.sendError("unsupported", "unsupported message type: "+msg.Type)
	}
}

// setMicrophone 根据客户端麦克风状态启停语音检测。
func (c *connection) setMicrophone(ctx context.Context, available bool) {
	if available {
		c.device.SetAvailable(true)
		if c.micOn {
			return
		}
		if err := c.pipeline.Start(ctx); err != nil {
			c.sendFailure(err)
			return
		}
		c.micOn = true
		return
	}

	if c.micOn {
		c.pipeline.Stop()
		c.micOn = false
	}
	c.device.SetAvailable(false)
	c.session.ReportDeviceUnavailable()
}

func (c *connection) background(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *connection) decode(msg *inboundMessage, dst any) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		c.sendError("invalid_payload", "invalid "+msg.Type+" payload")
		return false
	}
	return true
}

// forward 将会话事件推送给客户端，会话关闭后断开连接。
func (c *connection) forward(ctx context.Context, events <-chan sessionService.Event) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				c.ws.Close()
				return
			}
			c.send("event", evt)
			if evt.Type == sessionService.EventClosed {
				c.ws.Close()
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (c *connection) pingLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *connection) send(msgType string, data any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.session.ID(),
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		log.Printf("[websocket] write %s failed for session=%s: %v", msgType, c.session.ID(), err)
	}
}

func (c *connection) sendError(code, message string) {
	c.send("error", map[string]string{"code": code, "message": message})
}

func (c *connection) sendFailure(err error) {
	c.sendError(errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, sessionService.ErrRequestInFlight):
		return "busy"
	case errors.Is(err, sessionService.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, sessionService.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "device_unavailable"
	default:
		return "internal"
	}
}
