package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/store"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

type fakeSocket struct {
	mu        sync.Mutex
	connected bool
	created   []string
	loggedOut []string
	sent      [][3]string
	m         *mirror.Mirror
}

func (f *fakeSocket) State() realtime.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return realtime.ConnState{Connected: f.connected}
}

func (f *fakeSocket) CreateSession(_ context.Context, id string) wire.Response[wire.Session] {
	f.mu.Lock()
	f.created = append(f.created, id)
	f.mu.Unlock()
	s := wire.Session{ID: id, Status: wire.StatusInitializing}
	f.m.UpsertSession(s)
	return wire.Ok(s)
}

func (f *fakeSocket) LogoutSession(_ context.Context, id string) wire.Response[json.RawMessage] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, id)
	return wire.Ok(json.RawMessage(`{}`))
}

func (f *fakeSocket) SendMessage(_ context.Context, sessionID, to, message string) wire.Response[wire.SendResult] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, [3]string{sessionID, to, message})
	return wire.Ok(wire.SendResult{MessageID: "msg-" + strconv.Itoa(len(f.sent))})
}

func (f *fakeSocket) ForgetSession(id string) {
	f.m.RemoveSession(id)
}

type backend struct {
	mu        sync.Mutex
	sessions  map[string]wire.Session
	lastQuery map[string]string
	restCalls []string
}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func newTestVM(t *testing.T, connected bool) (*ViewModel, *backend, *fakeSocket) {
	t.Helper()
	b := &backend{sessions: map[string]wire.Session{
		"alpha": {ID: "alpha", Status: wire.StatusQR, QRCode: "qr-alpha"},
		"beta":  {ID: "beta", Status: wire.StatusReady},
	}}

	r := mux.NewRouter()
	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/sessions", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := make([]wire.Session, 0, len(b.sessions))
		for _, s := range b.sessions {
			list = append(list, s)
		}
		ok(w, list)
	}).Methods(http.MethodGet)
	a.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID string `json:"sessionId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.restCalls = append(b.restCalls, "create")
		s := wire.Session{ID: body.SessionID, Status: wire.StatusInitializing}
		b.sessions[s.ID] = s
		ok(w, s)
	}).Methods(http.MethodPost)
	a.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		s, found := b.sessions[mux.Vars(r)["id"]]
		if !found {
			fail(w, http.StatusNotFound, "Session not found")
			return
		}
		ok(w, s)
	}).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.sessions, mux.Vars(r)["id"])
		ok(w, map[string]string{})
	}).Methods(http.MethodDelete)
	a.HandleFunc("/sessions/{id}/logout", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.restCalls = append(b.restCalls, "logout")
		b.mu.Unlock()
		ok(w, map[string]string{})
	}).Methods(http.MethodPost)
	a.HandleFunc("/sessions/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ok(w, wire.SessionStats{
			SessionID:     id,
			MessageStats:  &wire.MessageStats{MessagesSent: 90, DailyLimit: 100},
			SessionHealth: &wire.SessionHealth{RiskLevel: "medium", UserGuidance: &wire.UserGuidance{Title: "embedded"}},
		})
	}).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{id}/guidance", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] == "beta" {
			fail(w, http.StatusInternalServerError, "guidance offline")
			return
		}
		ok(w, wire.UserGuidance{Title: "dedicated"})
	}).Methods(http.MethodGet)
	a.HandleFunc("/queue/status", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, wire.QueueStatus{IsActive: true, TotalMessages: 45})
	}).Methods(http.MethodGet)
	a.HandleFunc("/queue/messages", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastQuery = map[string]string{
			"page":   r.URL.Query().Get("page"),
			"limit":  r.URL.Query().Get("limit"),
			"status": r.URL.Query().Get("status"),
		}
		b.mu.Unlock()
		ok(w, wire.QueuePage{Messages: []wire.QueueMessage{{ID: "q1"}}, Total: 45, TotalPages: 3})
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL+"/api", api.WithHTTPClient(srv.Client()), api.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatal(err)
	}

	m := mirror.New(100)
	sock := &fakeSocket{connected: connected, m: m}
	return NewViewModel(c, sock, m, nil), b, sock
}

func TestRefreshSessionsAndCounts(t *testing.T) {
	vm, _, _ := newTestVM(t, true)
	if err := vm.RefreshSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	c := vm.Counts()
	if c.Total != 2 || c.Ready != 1 || c.Connecting != 1 {
		t.Errorf("counts = %+v", c)
	}
	if vm.QRCode("alpha") != "qr-alpha" {
		t.Errorf("qr = %q", vm.QRCode("alpha"))
	}
	// Falls back to the first ready session.
	if vm.Selected() != "beta" {
		t.Errorf("selected = %q, want beta", vm.Selected())
	}
}

func TestCreateSessionUsesSocketWhenConnected(t *testing.T) {
	vm, b, sock := newTestVM(t, true)
	s, err := vm.CreateSession(context.Background(), "gamma")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != wire.StatusInitializing || len(sock.created) != 1 || len(b.restCalls) != 0 {
		t.Errorf("session=%+v socket=%v rest=%v", s, sock.created, b.restCalls)
	}
	if vm.Selected() != "gamma" {
		t.Errorf("selected = %q", vm.Selected())
	}
}

func TestCreateSessionFallsBackToREST(t *testing.T) {
	vm, b, sock := newTestVM(t, false)
	if _, err := vm.CreateSession(context.Background(), "gamma"); err != nil {
		t.Fatal(err)
	}
	if len(sock.created) != 0 || len(b.restCalls) != 1 {
		t.Errorf("socket=%v rest=%v", sock.created, b.restCalls)
	}
	if s, ok := vm.Session("gamma"); !ok || s.Status != wire.StatusInitializing {
		t.Errorf("mirror session = %+v, %v", s, ok)
	}
}

func TestPollQRStopsAtTerminalState(t *testing.T) {
	vm, b, _ := newTestVM(t, true)
	ctx := context.Background()

	done, err := vm.PollQR(ctx, "alpha")
	if err != nil || done {
		t.Fatalf("qr state: done=%v err=%v", done, err)
	}
	if vm.QRCode("alpha") != "qr-alpha" {
		t.Error("QR not mirrored")
	}

	b.mu.Lock()
	b.sessions["alpha"] = wire.Session{ID: "alpha", Status: wire.StatusReady}
	b.mu.Unlock()
	done, err = vm.PollQR(ctx, "alpha")
	if err != nil || !done {
		t.Errorf("ready state: done=%v err=%v", done, err)
	}

	if _, err := vm.PollQR(ctx, "missing"); err == nil || err.Error() != "Session not found" {
		t.Errorf("missing session err = %v", err)
	}
}

func TestLogoutPrefersSocket(t *testing.T) {
	vm, b, sock := newTestVM(t, true)
	if err := vm.Logout(context.Background(), "beta"); err != nil {
		t.Fatal(err)
	}
	if len(sock.loggedOut) != 1 || len(b.restCalls) != 0 {
		t.Errorf("socket=%v rest=%v", sock.loggedOut, b.restCalls)
	}

	sock.mu.Lock()
	sock.connected = false
	sock.mu.Unlock()
	if err := vm.Logout(context.Background(), "beta"); err != nil {
		t.Fatal(err)
	}
	if len(b.restCalls) != 1 || b.restCalls[0] != "logout" {
		t.Errorf("rest = %v", b.restCalls)
	}
}

func TestDestroyDropsSession(t *testing.T) {
	vm, _, _ := newTestVM(t, true)
	ctx := context.Background()
	if err := vm.RefreshSessions(ctx); err != nil {
		t.Fatal(err)
	}
	vm.Select("alpha")
	if err := vm.Destroy(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, ok := vm.Session("alpha"); ok {
		t.Error("destroyed session still mirrored")
	}
	if vm.Selected() != "beta" {
		t.Errorf("selection not cleared: %q", vm.Selected())
	}
}

func TestSendNormalizesRecipient(t *testing.T) {
	vm, _, sock := newTestVM(t, true)
	ctx := context.Background()

	if _, err := vm.Send(ctx, "123", "hi"); err != ErrNoSession {
		t.Errorf("no session err = %v", err)
	}

	vm.Select("beta")
	id, err := vm.Send(ctx, "+1 (555) 010-9999", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if id != "msg-1" {
		t.Errorf("id = %q", id)
	}
	if sock.sent[0] != [3]string{"beta", "15550109999@c.us", "hi"} {
		t.Errorf("sent = %v", sock.sent[0])
	}

	if _, err := vm.Send(ctx, "someone@example.com", "hi"); err == nil {
		t.Error("expected invalid recipient error")
	}
}

func TestLoadQueuePaging(t *testing.T) {
	vm, b, _ := newTestVM(t, true)
	ctx := context.Background()

	if err := vm.LoadQueue(ctx); err != nil {
		t.Fatal(err)
	}
	page, pager := vm.QueuePage()
	if len(page.Messages) != 1 || pager.Total != 3 || pager.Page != 1 {
		t.Fatalf("page=%+v pager=%+v", page, pager)
	}
	if vm.QueueStatus() == nil || vm.QueueStatus().TotalMessages != 45 {
		t.Errorf("status = %+v", vm.QueueStatus())
	}

	if !vm.NextPage() {
		t.Fatal("NextPage should move")
	}
	vm.SetQueueFilter(wire.QueueFailed)
	if _, p := vm.QueuePage(); p.Page != 1 {
		t.Errorf("filter change should reset page, got %d", p.Page)
	}
	vm.NextPage()
	if err := vm.LoadQueue(ctx); err != nil {
		t.Fatal(err)
	}
	b.mu.Lock()
	q := b.lastQuery
	b.mu.Unlock()
	if q["page"] != "2" || q["limit"] != "20" || q["status"] != "failed" {
		t.Errorf("query = %v", q)
	}
	if vm.PrevPage() != true || vm.PrevPage() != false {
		t.Error("PrevPage should move once then stop")
	}
}

func TestLoadStatsGuidanceFallback(t *testing.T) {
	vm, _, _ := newTestVM(t, true)
	ctx := context.Background()

	if err := vm.LoadStats(ctx); err != ErrNoSession {
		t.Errorf("no session err = %v", err)
	}

	vm.Select("alpha")
	if err := vm.LoadStats(ctx); err != nil {
		t.Fatal(err)
	}
	st, g := vm.Stats()
	if st == nil || StatsHealthScore(*st) != 70 {
		t.Errorf("stats = %+v", st)
	}
	if g == nil || g.Title != "dedicated" {
		t.Errorf("guidance = %+v", g)
	}

	vm.Select("beta")
	if st, _ := vm.Stats(); st != nil {
		t.Error("selection change should clear stats")
	}
	if err := vm.LoadStats(ctx); err != nil {
		t.Fatal(err)
	}
	if _, g := vm.Stats(); g == nil || g.Title != "embedded" {
		t.Errorf("fallback guidance = %+v", g)
	}
}

type fakeHistory struct {
	query  string
	before []int64
	rows   []store.Message
}

func (f *fakeHistory) SearchMessages(query, _ string, _ int) ([]store.SearchResult, error) {
	f.query = query
	return []store.SearchResult{{Snippet: "<<" + query + ">>"}}, nil
}

// ListThread mimics the cache's keyset query over rows, newest first.
func (f *fakeHistory) ListThread(peer string, beforeTs int64, limit int) ([]store.Message, error) {
	f.before = append(f.before, beforeTs)
	var out []store.Message
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.rows[i]
		if (r.FromJID == peer || r.ToJID == peer) && (beforeTs <= 0 || r.Timestamp < beforeTs) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestSearch(t *testing.T) {
	vm, _, _ := newTestVM(t, true)
	if _, err := vm.Search("x"); err == nil {
		t.Error("search without a cache should fail")
	}

	fs := &fakeHistory{}
	vm.history = fs
	res, err := vm.Search("hello")
	if err != nil || len(res) != 1 || fs.query != "hello" {
		t.Errorf("res=%+v err=%v query=%q", res, err, fs.query)
	}
}

func TestLoadOlderPagesCacheBehindLiveLog(t *testing.T) {
	vm, _, _ := newTestVM(t, true)
	if _, err := vm.LoadOlder("p@c.us", 10); err == nil {
		t.Error("load older without a cache should fail")
	}

	peer := "p@c.us"
	fh := &fakeHistory{rows: []store.Message{
		{MsgID: "c1", FromJID: peer, Body: "one", Timestamp: 10},
		{MsgID: "c2", ToJID: peer, Body: "two", Outgoing: true, Timestamp: 20},
		{MsgID: "c3", FromJID: peer, Body: "three", Timestamp: 30},
		{MsgID: "live", FromJID: peer, Body: "four", Timestamp: 40},
	}}
	vm.history = fh
	vm.mirror.AddMessage(wire.IncomingMessage{ID: "live", From: peer, Body: "four", Timestamp: 40})

	n, err := vm.LoadOlder(peer, 2)
	if err != nil || n != 2 {
		t.Fatalf("first page: n=%d err=%v", n, err)
	}
	if fh.before[0] != 40 {
		t.Errorf("keyset = %d, want oldest shown timestamp 40", fh.before[0])
	}

	n, err = vm.LoadOlder(peer, 2)
	if err != nil || n != 1 {
		t.Fatalf("second page: n=%d err=%v", n, err)
	}
	if n, _ := vm.LoadOlder(peer, 2); n != 0 {
		t.Errorf("exhausted cache returned %d", n)
	}

	var ids []string
	for _, e := range vm.Thread(peer) {
		ids = append(ids, e.Message.ID)
	}
	if got := strings.Join(ids, ","); got != "c1,c2,c3,live" {
		t.Errorf("thread = %s", got)
	}
	if th := vm.Thread(peer); !th[1].Outgoing {
		t.Error("cached outgoing flag lost")
	}
	if got := len(vm.Thread("other@c.us")); got != 0 {
		t.Errorf("other thread = %d entries", got)
	}
}
