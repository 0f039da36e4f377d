package chat

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialRelay(t *testing.T, provider *fakeProvider) *websocket.Conn {
	t.Helper()
	h, _ := setupHandler(t, provider)
	return dialHandler(t, h)
}

func dialHandler(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(routerFor(h))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msgType string, data any) frame {
	t.Helper()
	payload, _ := json.Marshal(data)
	if err := conn.WriteJSON(inboundMessage{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out frame
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func frameError(t *testing.T, f frame) string {
	t.Helper()
	if f.Type != "error" {
		t.Fatalf("expected error frame, got %q", f.Type)
	}
	var body map[string]string
	if err := json.Unmarshal(f.Data, &body); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	return body["error"]
}

func TestWebSocketTextRoundTrip(t *testing.T) {
	conn := dialRelay(t, &fakeProvider{reply: "Hi from Digi"})

	out := roundTrip(t, conn, "text", TextMessage{Message: "hello"})

	if out.Type != "result" {
		t.Fatalf("expected result frame, got %q", out.Type)
	}
	var body Response
	if err := json.Unmarshal(out.Data, &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if body.Response != "Hi from Digi" {
		t.Fatalf("unexpected response %q", body.Response)
	}
}

func TestWebSocketEmptyMessage(t *testing.T) {
	conn := dialRelay(t, &fakeProvider{reply: "unused"})

	out := roundTrip(t, conn, "text", TextMessage{Message: "  "})

	if msg := frameError(t, out); msg != msgMessageRequired {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestWebSocketConnectionSurvivesErrors(t *testing.T) {
	conn := dialRelay(t, &fakeProvider{err: errors.New("boom")})

	first := roundTrip(t, conn, "text", TextMessage{Message: "hello"})
	if msg := frameError(t, first); msg != msgTextFailed {
		t.Fatalf("unexpected error %q", msg)
	}

	second := roundTrip(t, conn, "ping", map[string]string{})
	if msg := frameError(t, second); !strings.Contains(msg, "unsupported message type") {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestWebSocketImageFrame(t *testing.T) {
	provider := &fakeProvider{reply: "Looks like a PNG"}
	conn := dialRelay(t, provider)

	out := roundTrip(t, conn, "image", ImageMessage{
		Message: "what is it?",
		Image:   base64.StdEncoding.EncodeToString(pngBytes),
	})

	if out.Type != "result" {
		t.Fatalf("expected result frame, got %q", out.Type)
	}
	last, _ := provider.lastRequest()
	if last.Image == nil || last.Image.MediaType != "image/png" {
		t.Fatalf("expected sniffed png, got %+v", last.Image)
	}
}

func TestWebSocketImageFrameMissingData(t *testing.T) {
	conn := dialRelay(t, &fakeProvider{reply: "unused"})

	out := roundTrip(t, conn, "image", ImageMessage{Message: "nothing attached"})

	if msg := frameError(t, out); msg != msgImageRequired {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestWebSocketSurvivesProviderSlowerThanReadTimeout(t *testing.T) {
	h, _ := setupHandler(t, &fakeProvider{reply: "took a while", delay: 400 * time.Millisecond})
	h.readTimeout = 200 * time.Millisecond
	conn := dialHandler(t, h)

	for i := 0; i < 2; i++ {
		out := roundTrip(t, conn, "text", TextMessage{Message: "hello"})
		if out.Type != "result" {
			t.Fatalf("turn %d: expected result frame, got %q", i, out.Type)
		}
	}
}

func TestWebSocketImageFrameSniffsContent(t *testing.T) {
	provider := &fakeProvider{reply: "unused"}
	conn := dialRelay(t, provider)

	out := roundTrip(t, conn, "image", ImageMessage{
		Image:     base64.StdEncoding.EncodeToString([]byte("just some text")),
		MediaType: "image/svg+xml",
	})

	if msg := frameError(t, out); msg != msgImageType {
		t.Fatalf("unexpected error %q", msg)
	}
	if _, calls := provider.lastRequest(); calls != 0 {
		t.Fatalf("provider should not be called, got %d calls", calls)
	}
}

func TestWebSocketImageFrameIgnoresClaimedType(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	conn := dialRelay(t, provider)

	out := roundTrip(t, conn, "image", ImageMessage{
		Image:     base64.StdEncoding.EncodeToString(pngBytes),
		MediaType: "image/jpeg",
	})

	if out.Type != "result" {
		t.Fatalf("expected result frame, got %q", out.Type)
	}
	if last, _ := provider.lastRequest(); last.Image == nil || last.Image.MediaType != "image/png" {
		t.Fatalf("expected sniffed png, got %+v", last.Image)
	}
}
