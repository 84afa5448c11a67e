package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
)

// ackHandler answers one client event. A nil return sends no ack.
type ackHandler func(arg json.RawMessage) any

// fakeServer speaks just enough Engine.IO v4 / Socket.IO v5 to drive the
// synchronizer in tests.
type fakeServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	ws       *websocket.Conn
	handlers map[string]ackHandler
	counts   map[string]int
	payloads map[string][]json.RawMessage
	connects int
	refuse   string

	wmu sync.Mutex
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		handlers: map[string]ackHandler{
			actionListSessions: func(json.RawMessage) any {
				return map[string]any{"success": true, "data": []any{}}
			},
			actionJoin: func(json.RawMessage) any {
				return map[string]any{"success": true}
			},
		},
		counts:   make(map[string]int),
		payloads: make(map[string][]json.RawMessage),
	}
	r := mux.NewRouter()
	r.HandleFunc("/socket.io/", f.serveWS)
	f.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		f.dropConn()
		f.srv.Close()
	})
	return f
}

func (f *fakeServer) handle(event string, h ackHandler) {
	f.mu.Lock()
	f.handlers[event] = h
	f.mu.Unlock()
}

func (f *fakeServer) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[event]
}

func (f *fakeServer) lastPayload(event string) json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.payloads[event]
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

func (f *fakeServer) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeServer) setRefuse(msg string) {
	f.mu.Lock()
	f.refuse = msg
	f.mu.Unlock()
}

func (f *fakeServer) write(ws *websocket.Conn, frame string) error {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

// emit pushes a server event to the connected client.
func (f *fakeServer) emit(t *testing.T, name string, payload any) {
	t.Helper()
	body, err := json.Marshal([]any{name, payload})
	if err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	ws := f.ws
	f.mu.Unlock()
	if ws == nil {
		t.Fatal("emit: no client connected")
	}
	if err := f.write(ws, "42"+string(body)); err != nil {
		t.Fatalf("emit %s: %v", name, err)
	}
}

// dropConn closes the current client socket without a close handshake.
func (f *fakeServer) dropConn() {
	f.mu.Lock()
	ws := f.ws
	f.ws = nil
	f.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

func (f *fakeServer) serveWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "bad transport", http.StatusBadRequest)
		return
	}
	ws, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	if err := f.write(ws, `0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`); err != nil {
		return
	}
	_, msg, err := ws.ReadMessage()
	if err != nil || string(msg) != "40" {
		return
	}

	f.mu.Lock()
	refuse := f.refuse
	f.mu.Unlock()
	if refuse != "" {
		body, _ := json.Marshal(connectError{Message: refuse})
		_ = f.write(ws, "44"+string(body))
		return
	}
	if err := f.write(ws, `40{"sid":"sio-1"}`); err != nil {
		return
	}

	f.mu.Lock()
	f.ws = ws
	f.connects++
	f.mu.Unlock()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if len(msg) < 2 || msg[0] != eioMessage {
			continue
		}
		p, err := decodePacket(msg[1:])
		if err != nil || p.Type != sioEvent {
			if err == nil && p.Type == sioDisconnect {
				return
			}
			continue
		}
		name, args, err := decodeEvent(p.Data)
		if err != nil {
			continue
		}
		var arg json.RawMessage
		if len(args) > 0 {
			arg = args[0]
		}

		f.mu.Lock()
		f.counts[name]++
		f.payloads[name] = append(f.payloads[name], arg)
		h := f.handlers[name]
		f.mu.Unlock()

		if h == nil || !p.HasAck {
			continue
		}
		resp := h(arg)
		if resp == nil {
			continue
		}
		body, err := json.Marshal([]any{resp})
		if err != nil {
			continue
		}
		if err := f.write(ws, "43"+strconv.FormatUint(p.AckID, 10)+string(body)); err != nil {
			return
		}
	}
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(20 * time.Millisecond)
}

// newTestSync builds a synchronizer against f without starting it.
func newTestSync(f *fakeServer, opts Options) (*Synchronizer, *bus.Bus) {
	opts.URL = f.srv.URL
	if opts.NewBackOff == nil {
		opts.NewBackOff = fastBackOff
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	b := bus.New()
	return New(opts, mirror.New(0), b, zap.NewNop()), b
}

// startSync starts a synchronizer against f and waits for the first connect.
func startSync(t *testing.T, f *fakeServer, opts Options) (*Synchronizer, *bus.Bus) {
	t.Helper()
	s, b := newTestSync(f, opts)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	waitFor(t, "connect", s.Connected)
	return s, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// flush emits a marker message and waits for it, so every event pushed before
// it has been applied.
func flush(t *testing.T, f *fakeServer, s *Synchronizer, id string) {
	t.Helper()
	f.emit(t, EventMessageReceived, map[string]any{
		"sessionId": "marker",
		"message":   map[string]any{"id": id, "from": "marker@c.us", "timestamp": 1},
	})
	waitFor(t, "marker "+id, func() bool {
		for _, e := range s.Mirror().Messages() {
			if e.Message.ID == id {
				return true
			}
		}
		return false
	})
}
