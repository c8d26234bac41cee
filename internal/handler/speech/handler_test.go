package speech

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/game-friend/backend/internal/service/speech"
)

type fakeRecognizer struct {
	last *speechmodel.ASRRequest
	err  error
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.ASRResponse{SessionID: req.SessionID, Text: "안녕"}, nil
}

type fakeSpeaker struct {
	last *speechmodel.TTSRequest
	err  error
}

func (f *fakeSpeaker) Synthesize(_ context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.TTSResponse{AudioData: []byte("audio"), Format: "mp3", Voice: req.Voice}, nil
}

func setupRouter(asr Recognizer, tts Speaker) *chi.Mux {
	r := chi.NewRouter()
	New(asr, tts, persona.NewMemoryStore(persona.Seed())).RegisterRoutes(r)
	return r
}

func uploadRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write audio err: %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField err: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close err: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestTranscribeUpload(t *testing.T) {
	asr := &fakeRecognizer{}
	r := setupRouter(asr, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "clip.wav", map[string]string{"sessionId": "s1", "sampleRate": "24000", "language": "ko-KR"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	if asr.last.SessionID != "s1" || asr.last.Format != "wav" || asr.last.SampleRate != 24000 || asr.last.Language != "ko-KR" {
		t.Fatalf("unexpected ASR request %+v", asr.last)
	}
	if !strings.Contains(rr.Body.String(), "안녕") {
		t.Fatalf("expected transcript in body, got %s", rr.Body.String())
	}
}

func TestTranscribeDefaultsToPCM(t *testing.T) {
	asr := &fakeRecognizer{}
	r := setupRouter(asr, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "clip.raw", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if asr.last.Format != "pcm" || asr.last.SampleRate != 16000 {
		t.Fatalf("expected pcm at 16kHz, got %+v", asr.last)
	}
}

func TestTranscribeErrors(t *testing.T) {
	cases := []struct {
		name   string
		asr    Recognizer
		fields map[string]string
		status int
	}{
		{name: "unavailable", asr: nil, status: http.StatusServiceUnavailable},
		{name: "bad sample rate", asr: &fakeRecognizer{}, fields: map[string]string{"sampleRate": "fast"}, status: http.StatusBadRequest},
		{name: "empty audio", asr: &fakeRecognizer{err: speechsvc.ErrEmptyAudio}, status: http.StatusBadRequest},
		{name: "upstream failure", asr: &fakeRecognizer{err: errors.New("boom")}, status: http.StatusBadGateway},
	}

	for _, tc := range cases {
		r := setupRouter(tc.asr, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, uploadRequest(t, "clip.pcm", tc.fields))
		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rr.Code)
		}
	}
}

func TestSynthesizeResolvesPersonaVoice(t *testing.T) {
	tts := &fakeSpeaker{}
	r := setupRouter(nil, tts)

	req := httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(`{"text":"좋아요","personaId":"luka"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "audio/mp3" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rr.Body.String() != "audio" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if tts.last.Voice != speechsvc.NormalizeVoiceAlias("luka-analyst") {
		t.Fatalf("expected luka voice, got %q", tts.last.Voice)
	}
}

func TestSynthesizeValidation(t *testing.T) {
	cases := []struct {
		name   string
		tts    Speaker
		body   string
		status int
	}{
		{name: "unavailable", tts: nil, body: `{"text":"hi"}`, status: http.StatusServiceUnavailable},
		{name: "missing text", tts: &fakeSpeaker{}, body: `{"text":"  "}`, status: http.StatusBadRequest},
		{name: "malformed", tts: &fakeSpeaker{}, body: `{`, status: http.StatusBadRequest},
		{name: "unknown persona", tts: &fakeSpeaker{}, body: `{"text":"hi","personaId":"nobody"}`, status: http.StatusNotFound},
		{name: "upstream failure", tts: &fakeSpeaker{err: errors.New("boom")}, body: `{"text":"hi"}`, status: http.StatusBadGateway},
	}

	for _, tc := range cases {
		r := setupRouter(nil, tc.tts)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(tc.body)))
		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rr.Code)
		}
	}
}

func TestPreviewReadsPersonaDescription(t *testing.T) {
	tts := &fakeSpeaker{}
	r := setupRouter(nil, tts)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/speech/preview/luka", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if !strings.HasPrefix(tts.last.Text, "루카") {
		t.Fatalf("expected persona name in preview text, got %q", tts.last.Text)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/speech/preview/nobody", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHealthReportsCapabilities(t *testing.T) {
	r := setupRouter(&fakeRecognizer{}, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/speech/health", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"asr":true`) || !strings.Contains(rr.Body.String(), `"tts":false`) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
}
