package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsHub "github.com/obsidianstack/capturestack/agent/internal/ws"
	"github.com/obsidianstack/capturestack/pkg/capture"
)

const testInterval = 20 * time.Millisecond

type job struct {
	id  int
	pad [4]int
}

// --- helpers ----------------------------------------------------------------

// newStore returns a store holding one capture per job. The jobs are kept
// reachable for the test's lifetime.
func newStore(t *testing.T, n int) *capture.Store {
	t.Helper()
	st := capture.New()
	sc := st.NewScope()
	jobs := make([]*job, n)
	for i := range jobs {
		jobs[i] = &job{id: i}
		sc.Capture(capture.KeyOf(jobs[i]))
	}
	t.Cleanup(func() { runtime.KeepAlive(jobs) })
	return st
}

// startHub serves hub over httptest and runs its push loop until cleanup.
func startHub(t *testing.T, st *capture.Store) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

// waitCount polls hub.Count until it equals want or a second passes.
func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Count: got %d, want %d", hub.Count(), want)
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateList(t *testing.T) {
	wsURL, _ := startHub(t, newStore(t, 2))

	m := readMessage(t, dial(t, wsURL))
	if m.Event != "snapshot" {
		t.Errorf("event: got %q, want snapshot", m.Event)
	}
	if len(m.Data) != 2 {
		t.Errorf("data: got %d entries, want 2", len(m.Data))
	}
	for _, s := range m.Data {
		if s.Type != "*ws_test.job" {
			t.Errorf("type: got %q", s.Type)
		}
	}
}

func TestHub_EmptyStore_EmptyList(t *testing.T) {
	wsURL, _ := startHub(t, capture.New())
	conn := dial(t, wsURL)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(raw), `"data":[]`) {
		t.Errorf("expected an empty data array, got %s", raw)
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub := startHub(t, capture.New())

	for i := 0; i < 3; i++ {
		readMessage(t, dial(t, wsURL))
	}
	waitCount(t, hub, 3)
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub := startHub(t, capture.New())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	conn.Close()
	waitCount(t, hub, 0)
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := capture.New()
	wsURL, _ := startHub(t, st)

	conn := dial(t, wsURL)
	if m := readMessage(t, conn); len(m.Data) != 0 {
		t.Fatalf("initial list: got %d entries, want 0", len(m.Data))
	}

	j := &job{id: 7}
	st.NewScope().Capture(capture.KeyOf(j))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m := readMessage(t, conn); len(m.Data) == 1 {
			if m.Data[0].ID != capture.KeyOf(j).ID() {
				t.Errorf("id: got %#x, want %#x", m.Data[0].ID, capture.KeyOf(j).ID())
			}
			return
		}
	}
	t.Fatal("no broadcast carried the new capture")
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := wsHub.New(capture.New(), testInterval)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readMessage(t, conn)
	waitCount(t, hub, 1)

	cancel()
	<-done

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after shutdown: got %d, want 0", n)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestHub_BroadcastDuringConnectAndDisconnect(t *testing.T) {
	wsURL, hub := startHub(t, newStore(t, 4))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast()
			}
		}
	}()

	var clients sync.WaitGroup
	for w := 0; w < 4; w++ {
		clients.Add(1)
		go func() {
			defer clients.Done()
			for i := 0; i < 25; i++ {
				conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
				if err != nil {
					t.Errorf("dial: %v", err)
					return
				}
				if i%2 == 0 {
					conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
					conn.ReadMessage()                                    //nolint:errcheck
				}
				conn.Close()
			}
		}()
	}
	clients.Wait()
	close(stop)
	wg.Wait()

	waitCount(t, hub, 0)
}
