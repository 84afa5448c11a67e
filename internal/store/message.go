package store

import (
	"fmt"
	"time"
)

const messageColumns = `msg_id, session_id, from_jid, to_jid, author, body, type, has_media, is_group, outgoing, timestamp`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner, m *Message) error {
	return s.Scan(&m.MsgID, &m.SessionID, &m.FromJID, &m.ToJID, &m.Author, &m.Body,
		&m.Type, &m.HasMedia, &m.IsGroup, &m.Outgoing, &m.Timestamp)
}

// UpsertMessage stores a message once. A repeated id is ignored and reports
// inserted=false.
func (db *DB) UpsertMessage(m *Message) (bool, error) {
	if m.MsgID == "" {
		return false, fmt.Errorf("upsert message: empty id")
	}
	res, err := db.Exec(`
		INSERT INTO messages (`+messageColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(msg_id) DO NOTHING`,
		m.MsgID, m.SessionID, m.FromJID, m.ToJID, m.Author, m.Body, m.Type,
		m.HasMedia, m.IsGroup, m.Outgoing, m.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("upsert message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert message: %w", err)
	}
	return n > 0, nil
}

// RecentMessages returns the newest limit messages in ascending time order.
func (db *DB) RecentMessages(limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+` FROM (
			SELECT * FROM messages ORDER BY timestamp DESC, created_at DESC LIMIT ?
		) ORDER BY timestamp ASC, created_at ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListThread returns messages exchanged with peer using keyset pagination by
// timestamp, newest first.
func (db *DB) ListThread(peer string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = 1<<62 - 1
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE (from_jid = ? OR to_jid = ?) AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, peer, peer, beforeTs, limit)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of cached messages.
func (db *DB) MessageCount() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// PruneMessages keeps the newest keep messages and deletes the rest, along
// with acks that no longer have a message.
func (db *DB) PruneMessages(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		DELETE FROM messages WHERE msg_id NOT IN (
			SELECT msg_id FROM messages ORDER BY timestamp DESC, created_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := tx.Exec(`DELETE FROM acks WHERE msg_id NOT IN (SELECT msg_id FROM messages)`); err != nil {
		return 0, fmt.Errorf("prune acks: %w", err)
	}
	return n, tx.Commit()
}
