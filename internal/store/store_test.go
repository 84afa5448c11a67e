package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("migration left the database dirty")
	}
}

func TestMigrateSchemaHasRequiredColumns(t *testing.T) {
	db := testDB(t)

	requiredOps := []struct {
		desc  string
		query string
		args  []any
	}{
		{"insert message", "INSERT INTO messages (msg_id, session_id, from_jid, to_jid, author, body, type, has_media, is_group, outgoing, timestamp, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", []any{"m1", "s1", "a@c.us", "b@c.us", "", "hi", "chat", false, false, false, 1, 1}},
		{"insert ack", "INSERT INTO acks (msg_id, status, rank, timestamp) VALUES (?, ?, ?, ?)", []any{"m1", "sent", 1, 1}},
		{"insert session", "INSERT INTO sessions (id, status, qr_code, push_name, wid, platform, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)", []any{"s1", "ready", "", "Ann", "1@c.us", "android", 1}},
		{"set sync state", "INSERT INTO sync_state (key, value) VALUES (?, ?)", []any{"k", "v"}},
	}

	for _, op := range requiredOps {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.Exec(op.query, op.args...); err != nil {
				t.Fatalf("%s failed: %v", op.desc, err)
			}
		})
	}
}

func msg(id, from, to, body string, ts int64) *Message {
	return &Message{MsgID: id, SessionID: "s1", FromJID: from, ToJID: to, Body: body, Type: "chat", Timestamp: ts}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	inserted, err := db.UpsertMessage(msg("m1", "a@c.us", "me@c.us", "hello", 10))
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = db.UpsertMessage(msg("m1", "a@c.us", "me@c.us", "changed", 11))
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("duplicate id reported as inserted")
	}

	n, err := db.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	msgs, err := db.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Body != "hello" {
		t.Errorf("body = %q, first write must win", msgs[0].Body)
	}
}

func TestMessageUpsertRejectsEmptyID(t *testing.T) {
	db := testDB(t)
	if _, err := db.UpsertMessage(&Message{Body: "x"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestRecentMessagesOrder(t *testing.T) {
	db := testDB(t)
	for i := 1; i <= 5; i++ {
		if _, err := db.UpsertMessage(msg(fmt.Sprintf("m%d", i), "a@c.us", "me@c.us", "x", int64(i*10))); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.RecentMessages(3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, m := range msgs {
		ids = append(ids, m.MsgID)
	}
	if got := strings.Join(ids, ","); got != "m3,m4,m5" {
		t.Errorf("recent = %s, want m3,m4,m5", got)
	}
}

func TestListThreadKeyset(t *testing.T) {
	db := testDB(t)
	rows := []*Message{
		msg("m1", "a@c.us", "me@c.us", "one", 10),
		msg("m2", "me@c.us", "a@c.us", "two", 20),
		msg("m3", "b@c.us", "me@c.us", "other", 25),
		msg("m4", "a@c.us", "me@c.us", "three", 30),
	}
	for _, m := range rows {
		if _, err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListThread("a@c.us", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].MsgID != "m4" || page[1].MsgID != "m2" {
		t.Fatalf("first page = %+v", page)
	}
	page, err = db.ListThread("a@c.us", page[1].Timestamp, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].MsgID != "m1" {
		t.Errorf("second page = %+v", page)
	}
}

func TestPruneMessages(t *testing.T) {
	db := testDB(t)
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("m%d", i)
		if _, err := db.UpsertMessage(msg(id, "a@c.us", "me@c.us", "x", int64(i))); err != nil {
			t.Fatal(err)
		}
		if _, err := db.UpsertAck(wire.MessageAck{MessageID: id, Status: wire.AckSent}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.PruneMessages(2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	acks, err := db.ListAcks()
	if err != nil {
		t.Fatal(err)
	}
	if len(acks) != 2 || acks[0].MessageID != "m3" {
		t.Errorf("acks after prune = %+v", acks)
	}
}

func TestAckIsMonotonic(t *testing.T) {
	db := testDB(t)

	steps := []struct {
		status  wire.AckStatus
		changed bool
		want    wire.AckStatus
	}{
		{wire.AckSent, true, wire.AckSent},
		{wire.AckDelivered, true, wire.AckDelivered},
		{wire.AckSent, false, wire.AckDelivered},
		{"played-ish", false, wire.AckDelivered},
		{wire.AckRead, true, wire.AckRead},
		{wire.AckDelivered, false, wire.AckRead},
	}
	for i, s := range steps {
		changed, err := db.UpsertAck(wire.MessageAck{MessageID: "m1", Status: s.status, Timestamp: int64(i)})
		if err != nil {
			t.Fatal(err)
		}
		if changed != s.changed {
			t.Errorf("step %d (%s): changed = %v, want %v", i, s.status, changed, s.changed)
		}
		got, err := db.GetAck("m1")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Status != s.want {
			t.Errorf("step %d: status = %+v, want %s", i, got, s.want)
		}
	}
}

func TestGetAckMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetAck("nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestSessionSnapshot(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertSession(wire.Session{ID: "s1", Status: wire.StatusReady, ClientInfo: &wire.ClientInfo{PushName: "Ann", WID: "1@c.us"}}); err != nil {
		t.Fatal(err)
	}
	// Status-only update keeps client info.
	if err := db.UpsertSession(wire.Session{ID: "s1", Status: wire.StatusDisconnected}); err != nil {
		t.Fatal(err)
	}
	list, err := db.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != wire.StatusDisconnected {
		t.Fatalf("sessions = %+v", list)
	}
	if list[0].ClientInfo == nil || list[0].ClientInfo.PushName != "Ann" {
		t.Errorf("client info lost: %+v", list[0].ClientInfo)
	}

	if err := db.ReplaceSessions([]wire.Session{{ID: "s2", Status: wire.StatusQR, QRCode: "qr"}, {ID: ""}}); err != nil {
		t.Fatal(err)
	}
	list, err = db.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "s2" || list[0].QRCode != "qr" || list[0].ClientInfo != nil {
		t.Errorf("after replace = %+v", list)
	}

	if err := db.DeleteSession("s2"); err != nil {
		t.Fatal(err)
	}
	list, _ = db.ListSessions()
	if len(list) != 0 {
		t.Errorf("after delete = %+v", list)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)
	rows := []*Message{
		msg("m1", "a@c.us", "me@c.us", "Hello world", 10),
		msg("m2", "b@c.us", "me@c.us", "say hello again", 20),
		msg("m3", "a@c.us", "me@c.us", "100% done", 30),
		msg("m4", "a@c.us", "me@c.us", "nothing here", 40),
	}
	for _, m := range rows {
		if _, err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.SearchMessages("hello", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Message.MsgID != "m2" {
		t.Fatalf("results = %+v", results)
	}
	if results[1].Snippet != "<<Hello>> world" {
		t.Errorf("snippet = %q", results[1].Snippet)
	}

	results, err = db.SearchMessages("hello", "a@c.us", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.MsgID != "m1" {
		t.Errorf("peer filter results = %+v", results)
	}

	// LIKE wildcards in the query are literal.
	results, err = db.SearchMessages("%", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.MsgID != "m3" {
		t.Errorf("literal %% results = %+v", results)
	}

	results, err = db.SearchMessages("  ", "", 10)
	if err != nil || results != nil {
		t.Errorf("blank query = %+v, %v", results, err)
	}
}

func TestSnippetTrimsLongBodies(t *testing.T) {
	body := strings.Repeat("a", 50) + "needle" + strings.Repeat("b", 50)
	got := snippet(body, "needle")
	want := "..." + strings.Repeat("a", 32) + "<<needle>>" + strings.Repeat("b", 32) + "..."
	if got != want {
		t.Errorf("snippet = %q, want %q", got, want)
	}
}

func TestState(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetState("k"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := db.SetState("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.GetState("k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("GetState = %q, %v, %v", v, ok, err)
	}
}

func TestMessageWireRoundTrip(t *testing.T) {
	in := wire.IncomingMessage{ID: "m1", From: "a@g.us", To: "me@c.us", Body: "b", Type: "image", Timestamp: 5, HasMedia: true, IsGroupMsg: true, Author: "x@c.us"}
	row := MessageFromWire("s1", in, true)
	if row.SessionID != "s1" || !row.Outgoing {
		t.Errorf("row = %+v", row)
	}
	out := row.Wire()
	if out.ID != in.ID || out.Author != in.Author || !out.HasMedia || !out.IsGroupMsg || out.Timestamp != 5 {
		t.Errorf("wire = %+v", out)
	}
}
