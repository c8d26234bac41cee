package session

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	sessionService "github.com/zhouzirui/game-friend/backend/internal/service/session"
	"github.com/zhouzirui/game-friend/backend/pkg/utils"
)

// heartbeatInterval SSE 保活间隔
const heartbeatInterval = 15 * time.Second

// Handler 会话服务的HTTP处理器
type Handler struct {
	sessions *sessionService.Manager
}

// New 创建会话处理器
func New(sessions *sessionService.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// View 会话详情，包含完整的消息记录。
type View struct {
	chat.Session
	Game     game.Game       `json:"game"`
	Persona  persona.Persona `json:"persona"`
	Messages []chat.Message  `json:"messages"`
}

func newView(s *sessionService.Session) View {
	return View{
		Session:  s.Snapshot(),
		Game:     s.Game(),
		Persona:  s.Persona(),
		Messages: s.Messages(),
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Get("/messages", h.handleListMessages)
			r.Post("/utterances", h.handleSubmitUtterance)
			r.Post("/screen/toggle", h.handleToggleScreen)
			r.Put("/mute", h.handleSetMuted)
			r.Get("/events", h.handleEvents)
		})
	})
}

// handleCreateSession 选定游戏与角色后创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GameID    string `json:"gameId"`
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.GameID = strings.TrimSpace(payload.GameID)
	payload.PersonaID = strings.TrimSpace(payload.PersonaID)
	if payload.GameID == "" || payload.PersonaID == "" {
		utils.RespondError(w, http.StatusBadRequest, "gameId and personaId are required")
		return
	}

	s, err := h.sessions.Create(r.Context(), payload.GameID, payload.PersonaID)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, sessionService.ErrGameNotFound) || errors.Is(err, sessionService.ErrPersonaNotFound) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, newView(s))
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.sessions.List())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, newView(s))
}

// handleDeleteSession 重置会话，丢弃全部状态
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, s.Messages())
}

// handleSubmitUtterance 提交文本输入，阻塞直到回复写入记录
func (h *Handler) handleSubmitUtterance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.SubmitUtterance(r.Context(), payload.Text)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleToggleScreen 切换画面分析模式
func (h *Handler) handleToggleScreen(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Screen().Toggle(r.Context()); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"screenState": s.Screen().State()})
}

func (h *Handler) handleSetMuted(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Muted *bool `json:"muted"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil || payload.Muted == nil {
		utils.RespondError(w, http.StatusBadRequest, "muted is required")
		return
	}

	s.SetMuted(*payload.Muted)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"muted": s.Muted()})
}

// handleEvents 以 SSE 推送会话事件，连接建立时先发送快照
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, "snapshot", newView(s)); err != nil {
		log.Printf("[sse] snapshot failed for session=%s: %v", s.ID(), err)
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	log.Printf("[sse] opening event stream for session=%s", s.ID())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client left event stream for session=%s", s.ID())
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(evt.Type), evt); err != nil {
				log.Printf("[sse] write failed for session=%s: %v", s.ID(), err)
				return
			}
			if evt.Type == sessionService.EventClosed {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*sessionService.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return nil, false
	}
	return s, true
}

// statusFor 将会话层错误映射为HTTP状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound),
		errors.Is(err, sessionService.ErrGameNotFound),
		errors.Is(err, sessionService.ErrPersonaNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessionService.ErrGameLocked):
		return http.StatusForbidden
	case errors.Is(err, sessionService.ErrRequestInFlight),
		errors.Is(err, sessionService.ErrInvalidTransition),
		errors.Is(err, sessionService.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
