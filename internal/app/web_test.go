package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFrameHandlerDropsInvalidPayloads(t *testing.T) {
	h := newHub()
	handle := frameHandler[telemetry.Frame](h, "frame")

	handle(nil, &fakeMessage{topic: "heli/telemetry", payload: []byte("not json")})
	if _, ok := h.latest(); ok {
		t.Fatal("invalid payload stored")
	}
	good := mustJSON(t, consoleFrame)
	handle(nil, &fakeMessage{topic: "heli/telemetry", payload: good})
	if got, ok := h.latest(); !ok || string(got) != string(good) {
		t.Errorf("latest = %s, %v", got, ok)
	}
}

func TestAPIServesLatest(t *testing.T) {
	frames, states := newHub(), newHub()
	srv := httptest.NewServer(newWebMux(frames, states, t.TempDir()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/telemetry")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before data = %d, want 503", resp.StatusCode)
	}

	frames.publish(mustJSON(t, consoleFrame))
	states.publish(mustJSON(t, telemetry.StateChange{From: "Setting", To: "Flying", Mode: "FLIGHT"}))

	resp, err = http.Get(srv.URL + "/api/telemetry")
	if err != nil {
		t.Fatal(err)
	}
	var f telemetry.Frame
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if f != consoleFrame {
		t.Errorf("frame = %+v", f)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp, err = http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"to":"Flying"`) {
		t.Errorf("state = %s", body)
	}
}

func TestWebSocketStreamsFrames(t *testing.T) {
	frames := newHub()
	srv := httptest.NewServer(newWebMux(frames, newHub(), t.TempDir()))
	defer srv.Close()

	first := mustJSON(t, consoleFrame)
	frames.publish(first)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != string(first) {
		t.Errorf("first message = %s, want latest frame", msg)
	}

	// Wait until the handler has subscribed before publishing.
	deadline := time.Now().Add(5 * time.Second)
	for {
		frames.mu.RLock()
		n := len(frames.clients)
		frames.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("websocket client never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	next := consoleFrame
	next.Altitude = 40
	frames.publish(mustJSON(t, next))
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var f telemetry.Frame
	if err := json.Unmarshal(msg, &f); err != nil || f.Altitude != 40 {
		t.Errorf("streamed %s (%v)", msg, err)
	}
}

type refreshScreen struct{ shown []telemetry.Frame }

func (s *refreshScreen) Show(f telemetry.Frame) error {
	s.shown = append(s.shown, f)
	return nil
}

func TestRemoteDisplayRefreshesOnlyWithData(t *testing.T) {
	var data latestFrame
	screen := &refreshScreen{}
	if err := data.refresh(screen); err != nil || len(screen.shown) != 0 {
		t.Fatalf("refresh before data showed %d frames (%v)", len(screen.shown), err)
	}
	data.set(consoleFrame)
	if err := data.refresh(screen); err != nil {
		t.Fatal(err)
	}
	if len(screen.shown) != 1 || screen.shown[0] != consoleFrame {
		t.Errorf("shown = %+v", screen.shown)
	}
}
