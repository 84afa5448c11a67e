// Package mirror holds the in-memory view of backend state pushed over the
// realtime connection: sessions, QR codes, the message log, contacts and acks.
package mirror

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/moatasem-alhilali/wadash/internal/status"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// DefaultCapacity bounds the message log when no capacity is configured.
const DefaultCapacity = 1000

var errNoSessionID = errors.New("session event without sessionId")

// Entry is one message in the log. Outgoing entries are recorded after a
// successful send so conversation views can show both directions.
type Entry struct {
	Message  wire.IncomingMessage
	Outgoing bool
}

// SessionEvent is a decoded session:* push.
type SessionEvent struct {
	Name       string
	SessionID  string
	QRCode     string
	ClientInfo *wire.ClientInfo
}

// Snapshot is a deep copy of the mirror for rendering.
type Snapshot struct {
	Sessions []wire.Session
	QRCodes  map[string]string
	Messages []Entry
	Contacts []wire.Contact
	Acks     map[string]wire.MessageAck
}

// Mirror is safe for concurrent use.
type Mirror struct {
	mu         sync.RWMutex
	capacity   int
	sessions   map[string]wire.Session
	qrCodes    map[string]string
	log        []Entry
	index      map[string]struct{}
	contacts   map[string]wire.Contact
	senders    map[string]int
	acks       map[string]wire.MessageAck
	orphans    []string
	unexpected int
}

// New creates an empty mirror. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Mirror {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Mirror{
		capacity: capacity,
		sessions: make(map[string]wire.Session),
		qrCodes:  make(map[string]string),
		index:    make(map[string]struct{}),
		contacts: make(map[string]wire.Contact),
		senders:  make(map[string]int),
		acks:     make(map[string]wire.MessageAck),
	}
}

// ReplaceSessions swaps the session map for list, as returned by sessions:list.
// QR codes are kept only for sessions that still exist. A session listed with
// an unknown status keeps the status the mirror last saw.
func (m *Mirror) ReplaceSessions(list []wire.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make(map[string]wire.Session, len(list))
	qrCodes := make(map[string]string, len(list))
	for _, s := range list {
		if s.ID == "" {
			continue
		}
		if !s.Status.Valid() {
			s.Status = m.sessions[s.ID].Status
		}
		sessions[s.ID] = copySession(s)
		if s.QRCode != "" {
			qrCodes[s.ID] = s.QRCode
		} else if qr, ok := m.qrCodes[s.ID]; ok {
			qrCodes[s.ID] = qr
		}
	}
	m.sessions = sessions
	m.qrCodes = qrCodes
}

// UpsertSession merges s into the mirror. Empty fields and unknown statuses in
// s leave the stored values untouched.
func (m *Mirror) UpsertSession(s wire.Session) {
	if s.ID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.sessions[s.ID]
	cur.ID = s.ID
	if s.Status.Valid() {
		cur.Status = s.Status
	}
	if s.QRCode != "" {
		cur.QRCode = s.QRCode
		m.qrCodes[s.ID] = s.QRCode
	}
	if s.ClientInfo != nil {
		ci := *s.ClientInfo
		cur.ClientInfo = &ci
	}
	m.sessions[s.ID] = cur
}

// ApplySessionEvent sets the session to exactly the state the event names.
// Unknown sessions are inserted. Unknown event names return status.ErrUnknownEvent.
func (m *Mirror) ApplySessionEvent(ev SessionEvent) (status.Change, error) {
	to, err := status.Target(ev.Name)
	if err != nil {
		return status.Change{}, err
	}
	if ev.SessionID == "" {
		return status.Change{}, errNoSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[ev.SessionID]
	var from wire.SessionStatus
	if ok {
		from = cur.Status
	}
	cur.ID = ev.SessionID
	cur.Status = to
	if ev.QRCode != "" {
		cur.QRCode = ev.QRCode
		m.qrCodes[ev.SessionID] = ev.QRCode
	}
	if ev.ClientInfo != nil {
		ci := *ev.ClientInfo
		cur.ClientInfo = &ci
	}
	m.sessions[ev.SessionID] = cur

	change := status.Change{
		SessionID:  ev.SessionID,
		From:       from,
		To:         to,
		Unexpected: !status.Expected(from, to),
	}
	if change.Unexpected {
		m.unexpected++
	}
	return change, nil
}

// RemoveSession drops a destroyed session and its QR code.
func (m *Mirror) RemoveSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.qrCodes, id)
}

// Session returns a copy of the session with id.
func (m *Mirror) Session(id string) (wire.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return wire.Session{}, false
	}
	return copySession(s), true
}

// Sessions returns every session sorted by id.
func (m *Mirror) Sessions() []wire.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionsLocked()
}

// QRCode returns the latest QR payload for a session.
func (m *Mirror) QRCode(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qrCodes[id]
}

// Unexpected counts transitions whose predecessor was not an expected one.
func (m *Mirror) Unexpected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unexpected
}

// AddMessage appends an incoming message. It returns false for a duplicate id.
func (m *Mirror) AddMessage(msg wire.IncomingMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(Entry{Message: msg})
}

// RecordOutgoing appends a sent message and seeds its ack as sent.
func (m *Mirror) RecordOutgoing(msg wire.IncomingMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := m.addLocked(Entry{Message: msg, Outgoing: true})
	if msg.ID != "" {
		m.applyAckLocked(wire.MessageAck{MessageID: msg.ID, Status: wire.AckSent, Timestamp: msg.Timestamp})
	}
	return added
}

func (m *Mirror) addLocked(e Entry) bool {
	id := e.Message.ID
	if id != "" {
		if _, dup := m.index[id]; dup {
			return false
		}
		m.index[id] = struct{}{}
	}
	m.log = append(m.log, e)

	if !e.Outgoing && e.Message.From != "" {
		from := e.Message.From
		m.senders[from]++
		c, ok := m.contacts[from]
		if !ok || c.LastSeen < e.Message.Timestamp {
			m.contacts[from] = wire.Contact{
				Number:   from,
				Name:     wa.ContactName(from),
				LastSeen: max(c.LastSeen, e.Message.Timestamp),
			}
		}
	}

	if over := len(m.log) - m.capacity; over > 0 {
		for _, old := range m.log[:over] {
			m.evictLocked(old)
		}
		m.log = slices.Clone(m.log[over:])
	}
	return true
}

// evictLocked forgets everything keyed by an entry leaving the log. A contact
// goes with the last of its incoming messages.
func (m *Mirror) evictLocked(e Entry) {
	if id := e.Message.ID; id != "" {
		delete(m.index, id)
		delete(m.acks, id)
	}
	if e.Outgoing || e.Message.From == "" {
		return
	}
	from := e.Message.From
	if m.senders[from]--; m.senders[from] <= 0 {
		delete(m.senders, from)
		delete(m.contacts, from)
	}
}

// ApplyAck merges ack by message id. A lower-ranked status never replaces a
// higher one. It returns the stored record and whether it changed.
//
// Acks for messages outside the log are kept too, since an ack can arrive
// before its message. At most capacity of them are held, oldest dropped first.
func (m *Mirror) ApplyAck(ack wire.MessageAck) (wire.MessageAck, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyAckLocked(ack)
}

func (m *Mirror) applyAckLocked(ack wire.MessageAck) (wire.MessageAck, bool) {
	if ack.MessageID == "" || ack.Status.Rank() == 0 {
		return m.acks[ack.MessageID], false
	}
	cur, ok := m.acks[ack.MessageID]
	if ok && ack.Status.Rank() <= cur.Status.Rank() {
		return cur, false
	}
	m.acks[ack.MessageID] = ack
	if !ok {
		m.trackOrphanLocked(ack.MessageID)
	}
	return ack, true
}

func (m *Mirror) trackOrphanLocked(id string) {
	if _, logged := m.index[id]; logged {
		return
	}
	m.orphans = append(m.orphans, id)
	for len(m.orphans) > m.capacity {
		oldest := m.orphans[0]
		m.orphans = m.orphans[1:]
		if _, logged := m.index[oldest]; !logged {
			delete(m.acks, oldest)
		}
	}
}

// Ack returns the merged ack record for a message id.
func (m *Mirror) Ack(id string) (wire.MessageAck, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.acks[id]
	return a, ok
}

// Messages returns the log, oldest first.
func (m *Mirror) Messages() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyEntries(m.log)
}

// Contacts returns senders sorted by last activity, newest first.
func (m *Mirror) Contacts() []wire.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contactsLocked()
}

// Thread returns the conversation with peer sorted by timestamp.
func (m *Mirror) Thread(peer string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return threadOf(m.log, peer)
}

// Thread returns the conversation with peer held in the snapshot.
func (s Snapshot) Thread(peer string) []Entry {
	return threadOf(s.Messages, peer)
}

func threadOf(log []Entry, peer string) []Entry {
	var out []Entry
	for _, e := range log {
		if e.Message.From == peer || e.Message.To == peer {
			out = append(out, copyEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Message.Timestamp < out[j].Message.Timestamp
	})
	return out
}

// Seed restores cached history. Entries go through the same dedup and cap as
// live messages and acks merge monotonically.
func (m *Mirror) Seed(entries []Entry, acks []wire.MessageAck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.addLocked(e)
	}
	for _, a := range acks {
		m.applyAckLocked(a)
	}
}

// Snapshot returns a deep copy of the whole mirror.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Sessions: m.sessionsLocked(),
		QRCodes:  maps.Clone(m.qrCodes),
		Messages: copyEntries(m.log),
		Contacts: m.contactsLocked(),
		Acks:     maps.Clone(m.acks),
	}
}

func (m *Mirror) sessionsLocked() []wire.Session {
	out := make([]wire.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) contactsLocked() []wire.Contact {
	out := slices.Collect(maps.Values(m.contacts))
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen > out[j].LastSeen
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func copySession(s wire.Session) wire.Session {
	if s.ClientInfo != nil {
		ci := *s.ClientInfo
		s.ClientInfo = &ci
	}
	return s
}

func copyEntry(e Entry) Entry {
	e.Message.MentionedIDs = slices.Clone(e.Message.MentionedIDs)
	return e
}

func copyEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = copyEntry(e)
	}
	return out
}
