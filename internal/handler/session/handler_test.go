package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/game-friend/backend/internal/model/chat"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	sessionService "github.com/zhouzirui/game-friend/backend/internal/service/session"
	"github.com/zhouzirui/game-friend/backend/internal/service/simulation"
)

func setupRouter(t *testing.T) (*chi.Mux, *sessionService.Manager) {
	t.Helper()

	backend := simulation.New(simulation.Delays{}, 7)
	manager := sessionService.NewManager(
		game.NewMemoryStore(game.Seed()),
		persona.NewMemoryStore(persona.Seed()),
		sessionService.Collaborators{
			Transcriber: backend,
			Responder:   backend,
			Analyzer:    backend,
			Synthesizer: backend,
		},
		sessionService.Options{},
	)
	t.Cleanup(manager.Shutdown)

	r := chi.NewRouter()
	New(manager).RegisterRoutes(r)
	return r, manager
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) View {
	t.Helper()
	resp := doJSON(r, http.MethodPost, "/sessions", `{"gameId":"minesweeper","personaId":"luka"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var view View
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func TestCreateSessionGreets(t *testing.T) {
	r, _ := setupRouter(t)
	view := createSession(t, r)

	if view.ID == "" || view.GameID != "minesweeper" || view.PersonaID != "luka" {
		t.Fatalf("unexpected session %+v", view.Session)
	}
	if len(view.Messages) != 1 || view.Messages[0].Sender != chat.SenderAssistant {
		t.Fatalf("expected a single welcome message, got %+v", view.Messages)
	}
	if !strings.Contains(view.Messages[0].Text, view.Game.Name) {
		t.Fatalf("welcome should mention the game: %q", view.Messages[0].Text)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	r, _ := setupRouter(t)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "missing ids", body: `{}`, status: http.StatusBadRequest},
		{name: "unknown game", body: `{"gameId":"tetris","personaId":"luka"}`, status: http.StatusBadRequest},
		{name: "unknown persona", body: `{"gameId":"minesweeper","personaId":"nobody"}`, status: http.StatusBadRequest},
		{name: "premium game", body: `{"gameId":"stardew","personaId":"luka"}`, status: http.StatusForbidden},
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		resp := doJSON(r, http.MethodPost, "/sessions", tc.body)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, resp.Code)
		}
	}
}

func TestSubmitUtterance(t *testing.T) {
	r, manager := setupRouter(t)
	view := createSession(t, r)

	resp := doJSON(r, http.MethodPost, "/sessions/"+view.ID+"/utterances", `{"text":"지뢰 어떻게 찾아?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var reply chat.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Sender != chat.SenderAssistant || reply.IsProcessing || reply.Text == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	s, err := manager.Get(view.ID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if got := len(s.Messages()); got != 3 {
		t.Fatalf("expected welcome + user + reply, got %d messages", got)
	}
	if s.VoiceState() != chat.VoiceIdle {
		t.Fatalf("expected idle voice state, got %s", s.VoiceState())
	}
}

func TestSubmitEmptyUtterance(t *testing.T) {
	r, _ := setupRouter(t)
	view := createSession(t, r)

	resp := doJSON(r, http.MethodPost, "/sessions/"+view.ID+"/utterances", `{"text":"   "}`)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{"/sessions/missing", "/sessions/missing/messages"} {
		resp := doJSON(r, http.MethodGet, path, "")
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}

func TestDeleteSession(t *testing.T) {
	r, _ := setupRouter(t)
	view := createSession(t, r)

	if resp := doJSON(r, http.MethodDelete, "/sessions/"+view.ID, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodGet, "/sessions/"+view.ID, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", resp.Code)
	}
}

func TestMuteAndScreenToggle(t *testing.T) {
	r, _ := setupRouter(t)
	view := createSession(t, r)

	resp := doJSON(r, http.MethodPut, "/sessions/"+view.ID+"/mute", `{"muted":true}`)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"muted":true`) {
		t.Fatalf("unexpected mute response %d %s", resp.Code, resp.Body.String())
	}
	if resp := doJSON(r, http.MethodPut, "/sessions/"+view.ID+"/mute", `{}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing muted, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, "/sessions/"+view.ID+"/screen/toggle", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"screenState":"active"`) {
		t.Fatalf("unexpected toggle response %d %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(r, http.MethodPost, "/sessions/"+view.ID+"/screen/toggle", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"screenState":"inactive"`) {
		t.Fatalf("unexpected toggle response %d %s", resp.Code, resp.Body.String())
	}
}

func TestEventStreamSendsSnapshotAndEndsOnClose(t *testing.T) {
	r, manager := setupRouter(t)
	view := createSession(t, r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/" + view.ID + "/events")
	if err != nil {
		t.Fatalf("open event stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read first line: %v", err)
	}
	if strings.TrimSpace(line) != "event: snapshot" {
		t.Fatalf("expected snapshot event first, got %q", line)
	}

	if err := manager.Close(view.ID); err != nil {
		t.Fatalf("close session: %v", err)
	}

	var rest bytes.Buffer
	if _, err := rest.ReadFrom(reader); err != nil {
		t.Fatalf("drain stream: %v", err)
	}
	if !strings.Contains(rest.String(), "event: session.closed") {
		t.Fatalf("expected session.closed event, got %q", rest.String())
	}
}
