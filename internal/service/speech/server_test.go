package speech

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/game-friend/backend/internal/config"
)

// newFakeSpeechServer 启动一个模拟火山引擎的 WebSocket 服务，handle 在升级后运行。
func newFakeSpeechServer(t *testing.T, handle func(r *http.Request, conn *websocket.Conn)) config.SpeechConfig {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(r, conn)
	}))
	t.Cleanup(srv.Close)

	return config.SpeechConfig{
		AppID:       "app",
		AccessToken: "token",
		BaseURL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		ASRLanguage: "ko-KR",
		TTSLanguage: "ko-KR",
		TTSSpeed:    1,
		TTSVolume:   1,
		Timeout:     5,
	}
}

func readClientFrame(t *testing.T, conn *websocket.Conn) *frame {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("read client frame: %v", err)
		return nil
	}
	f, err := unmarshalFrame(data)
	if err != nil {
		t.Errorf("decode client frame: %v", err)
		return nil
	}
	return f
}

func writeServerFrame(t *testing.T, conn *websocket.Conn, f *frame) {
	t.Helper()
	if err := writeFrame(conn, f); err != nil {
		t.Errorf("write server frame: %v", err)
	}
}
