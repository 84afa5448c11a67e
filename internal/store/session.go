package store

import (
	"fmt"
	"time"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

const upsertSessionSQL = `
	INSERT INTO sessions (id, status, qr_code, push_name, wid, platform, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		qr_code = excluded.qr_code,
		push_name = CASE WHEN excluded.push_name != '' THEN excluded.push_name ELSE sessions.push_name END,
		wid = CASE WHEN excluded.wid != '' THEN excluded.wid ELSE sessions.wid END,
		platform = CASE WHEN excluded.platform != '' THEN excluded.platform ELSE sessions.platform END,
		updated_at = excluded.updated_at`

func sessionArgs(s wire.Session) []any {
	var info wire.ClientInfo
	if s.ClientInfo != nil {
		info = *s.ClientInfo
	}
	return []any{s.ID, string(s.Status), s.QRCode, info.PushName, info.WID, info.Platform, time.Now().UnixMilli()}
}

// UpsertSession stores the latest snapshot of one session. Empty client info
// fields keep their stored values.
func (db *DB) UpsertSession(s wire.Session) error {
	if s.ID == "" {
		return fmt.Errorf("upsert session: empty id")
	}
	if _, err := db.Exec(upsertSessionSQL, sessionArgs(s)...); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ReplaceSessions makes the stored snapshot equal to list.
func (db *DB) ReplaceSessions(list []wire.Session) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("replace sessions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("replace sessions: %w", err)
	}
	for _, s := range list {
		if s.ID == "" {
			continue
		}
		if _, err := tx.Exec(upsertSessionSQL, sessionArgs(s)...); err != nil {
			return fmt.Errorf("replace sessions: %w", err)
		}
	}
	return tx.Commit()
}

// ListSessions returns the stored snapshot ordered by id.
func (db *DB) ListSessions() ([]wire.Session, error) {
	rows, err := db.Query(`SELECT id, status, qr_code, push_name, wid, platform FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []wire.Session
	for rows.Next() {
		var s wire.Session
		var st string
		var info wire.ClientInfo
		if err := rows.Scan(&s.ID, &st, &s.QRCode, &info.PushName, &info.WID, &info.Platform); err != nil {
			return nil, err
		}
		s.Status = wire.SessionStatus(st)
		if info != (wire.ClientInfo{}) {
			s.ClientInfo = &info
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSession removes a session from the snapshot.
func (db *DB) DeleteSession(id string) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
