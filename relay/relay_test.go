package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestRelay(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(log.New(io.Discard, "", 0))
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.Serve(w, r)
	}))
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

// dial connects and waits for the connect frame, which the dispatcher only
// sends after the peer is registered.
func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	env := readEnvelope(t, conn, 2*time.Second)
	if env.Event != EventConnect {
		t.Fatalf("first event = %q, want connect", env.Event)
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.ID == "" {
		t.Fatalf("connect data = %s (%v)", env.Data, err)
	}
	return conn, data.ID
}

func readEnvelope(t *testing.T, conn *websocket.Conn, wait time.Duration) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("unexpected frame: %s", raw)
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
}

func TestRelay_MessageReachesOthersNotSender(t *testing.T) {
	s, ts := newTestRelay(t)
	a, idA := dial(t, ts)
	b, idB := dial(t, ts)
	if idA == idB {
		t.Fatal("socket ids must be unique")
	}
	if n := s.Peers(); n != 2 {
		t.Fatalf("Peers = %d, want 2", n)
	}

	if err := a.WriteJSON(map[string]any{"event": "message", "data": map[string]any{"text": "hi", "n": 1}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEnvelope(t, b, 2*time.Second)
	if env.Event != EventMessage {
		t.Fatalf("event = %q", env.Event)
	}
	var got map[string]any
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got["text"] != "hi" || got["n"] != float64(1) {
		t.Fatalf("payload = %v", got)
	}

	expectSilence(t, a, 200*time.Millisecond)
}

func TestRelay_FanOutToAllPeers(t *testing.T) {
	_, ts := newTestRelay(t)
	a, _ := dial(t, ts)
	b, _ := dial(t, ts)
	c, _ := dial(t, ts)

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","data":"plain string"}`)); err != nil {
		t.Fatal(err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn, 2*time.Second)
		if string(env.Data) != `"plain string"` {
			t.Fatalf("data = %s", env.Data)
		}
	}
	expectSilence(t, c, 200*time.Millisecond)
}

func TestRelay_IgnoresOtherEventsAndGarbage(t *testing.T) {
	_, ts := newTestRelay(t)
	a, _ := dial(t, ts)
	b, _ := dial(t, ts)

	_ = a.WriteMessage(websocket.TextMessage, []byte(`not json`))
	_ = a.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","data":1}`))
	_ = a.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","data":2}`))

	env := readEnvelope(t, b, 2*time.Second)
	if env.Event != EventMessage || string(env.Data) != "2" {
		t.Fatalf("got %+v, want only the message event", env)
	}
}

func TestRelay_DisconnectUnregisters(t *testing.T) {
	s, ts := newTestRelay(t)
	a, _ := dial(t, ts)
	dial(t, ts)

	_ = a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Peers() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Peers = %d after disconnect, want 1", s.Peers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEnsure_StartsOnce(t *testing.T) {
	s := New(log.New(io.Discard, "", 0))
	defer s.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Ensure()
			if err != nil {
				t.Errorf("Ensure: %v", err)
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("dispatcher started %d times, want 1", created)
	}
}

func TestEnsure_AfterClose(t *testing.T) {
	s := New(log.New(io.Discard, "", 0))
	s.Close()
	if _, err := s.Ensure(); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if s.Peers() != 0 {
		t.Fatal("closed relay should report no peers")
	}
}

func TestClose_DisconnectsPeers(t *testing.T) {
	s, ts := newTestRelay(t)
	a, _ := dial(t, ts)

	s.Close()

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := a.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
}
