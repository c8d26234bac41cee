package speech

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/game-friend/backend/internal/service/speech"
	"github.com/zhouzirui/game-friend/backend/pkg/utils"
)

// maxUploadBytes 单次上传音频上限
const maxUploadBytes = 32 << 20

// Recognizer 抽象语音识别，便于测试替换
type Recognizer interface {
	Recognize(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error)
}

// Speaker 抽象语音合成，便于测试替换
type Speaker interface {
	Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// Handler 语音服务的HTTP处理器，提供独立的识别、合成与角色试听接口。
type Handler struct {
	asr      Recognizer
	tts      Speaker
	personas persona.Store
}

// New 创建语音处理器。asr 或 tts 为空时对应接口返回 503。
func New(asr Recognizer, tts Speaker, personas persona.Store) *Handler {
	return &Handler{asr: asr, tts: tts, personas: personas}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(r chi.Router) {
		r.Post("/transcribe", h.handleTranscribe)
		r.Post("/synthesize", h.handleSynthesize)
		r.Get("/preview/{personaID}", h.handlePreview)
		r.Get("/health", h.handleHealth)
	})
}

// handleTranscribe 处理上传音频的识别请求
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.asr == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	sampleRate := audio.DefaultSampleRate
	if raw := strings.TrimSpace(r.FormValue("sampleRate")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid sampleRate")
			return
		}
		sampleRate = parsed
	}

	resp, err := h.asr.Recognize(r.Context(), &speechmodel.ASRRequest{
		SessionID:  strings.TrimSpace(r.FormValue("sessionId")),
		Audio:      data,
		Format:     inferAudioFormat(header.Filename),
		SampleRate: sampleRate,
		Language:   strings.TrimSpace(r.FormValue("language")),
	})
	if err != nil {
		if errors.Is(err, speechsvc.ErrEmptyAudio) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[speech] ASR error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

type synthesizeRequest struct {
	speechmodel.TTSRequest
	PersonaID string `json:"personaId"`
}

// handleSynthesize 处理文本转语音请求，指定角色时使用角色音色
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.tts == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
		return
	}

	var req synthesizeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if strings.TrimSpace(req.Voice) == "" && req.PersonaID != "" {
		p, ok := h.findPersona(req.PersonaID)
		if !ok {
			utils.RespondError(w, http.StatusNotFound, "persona not found")
			return
		}
		req.Voice = p.VoiceID
	}
	req.Voice = speechsvc.NormalizeVoiceAlias(req.Voice)

	h.synthesize(w, r, &req.TTSRequest)
}

// handlePreview 以角色音色朗读角色简介，用于角色选择页试听
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	if h.tts == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
		return
	}

	p, ok := h.findPersona(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}

	h.synthesize(w, r, &speechmodel.TTSRequest{
		Text:  p.Name + ". " + p.Description,
		Voice: speechsvc.NormalizeVoiceAlias(p.VoiceID),
	})
}

func (h *Handler) synthesize(w http.ResponseWriter, r *http.Request, req *speechmodel.TTSRequest) {
	resp, err := h.tts.Synthesize(r.Context(), req)
	if err != nil {
		if errors.Is(err, speechsvc.ErrEmptyText) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	if len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "mpeg"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("X-Speech-Voice", resp.Voice)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

func (h *Handler) findPersona(id string) (persona.Persona, bool) {
	if h.personas == nil {
		return persona.Persona{}, false
	}
	return h.personas.FindByID(strings.TrimSpace(id))
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"asr":    h.asr != nil,
		"tts":    h.tts != nil,
	})
}

// inferAudioFormat 从文件名推断音频格式，识别服务只接受 pcm 与 wav
func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "wav"
	default:
		return audio.FormatPCM16
	}
}
