package model

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/status"
	"github.com/moatasem-alhilali/wadash/internal/store"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// ErrNoSession is returned by actions that need a selected session.
var ErrNoSession = errors.New("no session selected")

// Socket is the realtime surface the views drive.
type Socket interface {
	State() realtime.ConnState
	CreateSession(ctx context.Context, sessionID string) wire.Response[wire.Session]
	LogoutSession(ctx context.Context, sessionID string) wire.Response[json.RawMessage]
	SendMessage(ctx context.Context, sessionID, to, message string) wire.Response[wire.SendResult]
	ForgetSession(sessionID string)
}

// History is the local history cache.
type History interface {
	SearchMessages(query, peer string, limit int) ([]store.SearchResult, error)
	ListThread(peer string, beforeTs int64, limit int) ([]store.Message, error)
}

var errNoHistory = errors.New("history cache unavailable")

// ViewModel combines the REST client with the realtime mirror. Views read
// snapshots from it and call its actions from background goroutines.
type ViewModel struct {
	mu sync.RWMutex

	api     *api.Client
	socket  Socket
	mirror  *mirror.Mirror
	history History

	Flash Flash

	selected    string
	queueStatus *wire.QueueStatus
	queuePage   wire.QueuePage
	pager       Pager
	queueFilter wire.QueueMessageStatus
	stats       *wire.SessionStats
	guidance    *wire.UserGuidance
	older       map[string][]mirror.Entry
}

// NewViewModel creates a view model. history may be nil.
func NewViewModel(c *api.Client, s Socket, m *mirror.Mirror, history History) *ViewModel {
	return &ViewModel{
		api:     c,
		socket:  s,
		mirror:  m,
		history: history,
		pager:   NewPager(),
		older:   make(map[string][]mirror.Entry),
	}
}

// Connection returns the realtime connection state.
func (vm *ViewModel) Connection() realtime.ConnState {
	return vm.socket.State()
}

// Sessions returns the mirrored sessions sorted by id.
func (vm *ViewModel) Sessions() []wire.Session {
	return vm.mirror.Sessions()
}

// Counts tallies the mirrored sessions.
func (vm *ViewModel) Counts() SessionCounts {
	return Counts(vm.mirror.Sessions())
}

// Select makes id the session that send, stats and QR actions target.
func (vm *ViewModel) Select(id string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.selected != id {
		vm.stats = nil
		vm.guidance = nil
	}
	vm.selected = id
}

// Selected returns the selected session id. With none selected it falls
// back to the first ready session, then the first session.
func (vm *ViewModel) Selected() string {
	vm.mu.RLock()
	sel := vm.selected
	vm.mu.RUnlock()
	if sel != "" {
		return sel
	}
	sessions := vm.mirror.Sessions()
	for _, s := range sessions {
		if s.Status == wire.StatusReady {
			return s.ID
		}
	}
	if len(sessions) > 0 {
		return sessions[0].ID
	}
	return ""
}

// MessageCount returns the size of the mirrored message log.
func (vm *ViewModel) MessageCount() int {
	return len(vm.mirror.Messages())
}

// Unexpected returns how many out-of-order session events were seen.
func (vm *ViewModel) Unexpected() int {
	return vm.mirror.Unexpected()
}

// Session returns a mirrored session.
func (vm *ViewModel) Session(id string) (wire.Session, bool) {
	return vm.mirror.Session(id)
}

// QRCode returns the latest QR payload for a session.
func (vm *ViewModel) QRCode(id string) string {
	return vm.mirror.QRCode(id)
}

// RefreshSessions replaces the mirrored sessions with the REST listing.
func (vm *ViewModel) RefreshSessions(ctx context.Context) error {
	resp := vm.api.Session.List(ctx)
	if !resp.Success {
		return resp.Err()
	}
	vm.mirror.ReplaceSessions(resp.Data)
	return nil
}

// CreateSession starts a session over the socket, or over REST while the
// socket is down.
func (vm *ViewModel) CreateSession(ctx context.Context, id string) (wire.Session, error) {
	var resp wire.Response[wire.Session]
	if vm.socket.State().Connected {
		resp = vm.socket.CreateSession(ctx, id)
	} else {
		resp = vm.api.Session.Create(ctx, id)
		if resp.Success {
			vm.mirror.UpsertSession(resp.Data)
		}
	}
	if !resp.Success {
		return wire.Session{}, resp.Err()
	}
	vm.Select(resp.Data.ID)
	return resp.Data, nil
}

// PollQR refreshes one session over REST. It reports whether the session
// reached a state where QR polling should stop.
func (vm *ViewModel) PollQR(ctx context.Context, id string) (bool, error) {
	resp := vm.api.Session.Get(ctx, id)
	if !resp.Success {
		return false, resp.Err()
	}
	vm.mirror.UpsertSession(resp.Data)
	s, _ := vm.mirror.Session(id)
	return status.Terminal(s.Status), nil
}

// RefreshQR asks the backend for a new QR code.
func (vm *ViewModel) RefreshQR(ctx context.Context, id string) error {
	return vm.api.Session.RefreshQR(ctx, id).Err()
}

// Logout unlinks a session, over the socket when connected.
func (vm *ViewModel) Logout(ctx context.Context, id string) error {
	if vm.socket.State().Connected {
		return vm.socket.LogoutSession(ctx, id).Err()
	}
	return vm.api.Session.Logout(ctx, id).Err()
}

// Destroy deletes a session and drops it from the mirror.
func (vm *ViewModel) Destroy(ctx context.Context, id string) error {
	if err := vm.api.Session.Destroy(ctx, id).Err(); err != nil {
		return err
	}
	vm.socket.ForgetSession(id)
	vm.mu.Lock()
	if vm.selected == id {
		vm.selected = ""
	}
	vm.mu.Unlock()
	return nil
}

// Send normalizes to and sends text from the selected session over the socket.
func (vm *ViewModel) Send(ctx context.Context, to, text string) (string, error) {
	sessionID := vm.Selected()
	if sessionID == "" {
		return "", ErrNoSession
	}
	jid, err := wa.NormalizeRecipient(to)
	if err != nil {
		return "", err
	}
	resp := vm.socket.SendMessage(ctx, sessionID, jid, text)
	if !resp.Success {
		return "", resp.Err()
	}
	return resp.Data.MessageID, nil
}

// Snapshot returns a consistent copy of the mirror for one redraw.
func (vm *ViewModel) Snapshot() mirror.Snapshot {
	return vm.mirror.Snapshot()
}

// Thread returns the messages exchanged with peer, oldest first. History
// paged in by LoadOlder is merged in front of the live log.
func (vm *ViewModel) Thread(peer string) []mirror.Entry {
	return vm.withHistory(peer, vm.mirror.Thread(peer))
}

// SnapshotThread is Thread read from snap instead of the live mirror.
func (vm *ViewModel) SnapshotThread(snap mirror.Snapshot, peer string) []mirror.Entry {
	return vm.withHistory(peer, snap.Thread(peer))
}

func (vm *ViewModel) withHistory(peer string, live []mirror.Entry) []mirror.Entry {
	vm.mu.RLock()
	older := vm.older[peer]
	vm.mu.RUnlock()
	if len(older) == 0 {
		return live
	}

	inLog := make(map[string]struct{}, len(live))
	for _, e := range live {
		inLog[e.Message.ID] = struct{}{}
	}
	out := make([]mirror.Entry, 0, len(older)+len(live))
	for _, e := range older {
		if _, dup := inLog[e.Message.ID]; !dup {
			out = append(out, e)
		}
	}
	out = append(out, live...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Message.Timestamp < out[j].Message.Timestamp
	})
	return out
}

// LoadOlder pages up to n cached messages with peer that predate the oldest
// one shown. It returns how many were added; zero means the cache holds
// nothing older.
func (vm *ViewModel) LoadOlder(peer string, n int) (int, error) {
	if vm.history == nil {
		return 0, errNoHistory
	}
	shown := vm.Thread(peer)
	var before int64
	if len(shown) > 0 {
		before = shown[0].Message.Timestamp
	}
	rows, err := vm.history.ListThread(peer, before, n)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(shown))
	for _, e := range shown {
		seen[e.Message.ID] = struct{}{}
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	added := 0
	for _, r := range rows {
		if _, dup := seen[r.MsgID]; dup {
			continue
		}
		seen[r.MsgID] = struct{}{}
		vm.older[peer] = append(vm.older[peer], mirror.Entry{Message: r.Wire(), Outgoing: r.Outgoing})
		added++
	}
	return added, nil
}

// Search queries the local history cache.
func (vm *ViewModel) Search(query string) ([]store.SearchResult, error) {
	if vm.history == nil {
		return nil, errNoHistory
	}
	return vm.history.SearchMessages(query, "", 50)
}

// LoadQueue fetches queue totals and the current page.
func (vm *ViewModel) LoadQueue(ctx context.Context) error {
	st := vm.api.Queue.Status(ctx)
	if !st.Success {
		return st.Err()
	}

	vm.mu.RLock()
	q := api.QueueQuery{Page: vm.pager.Page, Status: vm.queueFilter}
	vm.mu.RUnlock()
	page := vm.api.Queue.Messages(ctx, q)
	if !page.Success {
		return page.Err()
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.queueStatus = &st.Data
	vm.queuePage = page.Data
	vm.pager.SetTotal(page.Data.TotalPages)
	return nil
}

// QueueStatus returns the last loaded queue totals, or nil.
func (vm *ViewModel) QueueStatus() *wire.QueueStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.queueStatus
}

// QueuePage returns the last loaded page and pager.
func (vm *ViewModel) QueuePage() (wire.QueuePage, Pager) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.queuePage, vm.pager
}

// QueueFilter returns the active status filter; empty means all.
func (vm *ViewModel) QueueFilter() wire.QueueMessageStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.queueFilter
}

// SetQueueFilter changes the status filter and returns to page 1.
func (vm *ViewModel) SetQueueFilter(st wire.QueueMessageStatus) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.queueFilter = st
	vm.pager.Reset()
}

// NextPage advances the queue pager. It reports whether the page changed.
func (vm *ViewModel) NextPage() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.pager.Next()
}

// PrevPage moves the queue pager back. It reports whether the page changed.
func (vm *ViewModel) PrevPage() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.pager.Prev()
}

// PauseQueue stops dispatching.
func (vm *ViewModel) PauseQueue(ctx context.Context) error {
	return vm.api.Queue.Pause(ctx).Err()
}

// ResumeQueue restarts dispatching.
func (vm *ViewModel) ResumeQueue(ctx context.Context) error {
	return vm.api.Queue.Resume(ctx).Err()
}

// Retry re-queues a failed message.
func (vm *ViewModel) Retry(ctx context.Context, id string) error {
	return vm.api.Queue.Retry(ctx, id).Err()
}

// Cancel removes a queued message.
func (vm *ViewModel) Cancel(ctx context.Context, id string) error {
	return vm.api.Queue.Cancel(ctx, id).Err()
}

// LoadStats fetches stats and guidance for the selected session. Guidance
// is optional; its failure does not fail the load.
func (vm *ViewModel) LoadStats(ctx context.Context) error {
	id := vm.Selected()
	if id == "" {
		return ErrNoSession
	}
	st := vm.api.Stats.Session(ctx, id)
	if !st.Success {
		return st.Err()
	}
	g := vm.api.Stats.Guidance(ctx, id)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stats = &st.Data
	vm.guidance = nil
	if g.Success {
		vm.guidance = &g.Data
	} else if st.Data.SessionHealth != nil {
		vm.guidance = st.Data.SessionHealth.UserGuidance
	}
	return nil
}

// Stats returns the last loaded stats and guidance.
func (vm *ViewModel) Stats() (*wire.SessionStats, *wire.UserGuidance) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.stats, vm.guidance
}
