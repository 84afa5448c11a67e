package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// UpsertAck stores an ack only when it ranks above the stored one.
// Unknown statuses are ignored. It reports whether the row changed.
func (db *DB) UpsertAck(a wire.MessageAck) (bool, error) {
	rank := a.Status.Rank()
	if a.MessageID == "" || rank == 0 {
		return false, nil
	}
	res, err := db.Exec(`
		INSERT INTO acks (msg_id, status, rank, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(msg_id) DO UPDATE SET
			status = excluded.status,
			rank = excluded.rank,
			timestamp = excluded.timestamp
		WHERE excluded.rank > acks.rank`,
		a.MessageID, string(a.Status), rank, a.Timestamp)
	if err != nil {
		return false, fmt.Errorf("upsert ack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert ack: %w", err)
	}
	return n > 0, nil
}

// GetAck returns the stored ack for a message.
func (db *DB) GetAck(msgID string) (*wire.MessageAck, error) {
	var a wire.MessageAck
	var st string
	err := db.QueryRow(`SELECT msg_id, status, timestamp FROM acks WHERE msg_id = ?`, msgID).
		Scan(&a.MessageID, &st, &a.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ack: %w", err)
	}
	a.Status = wire.AckStatus(st)
	return &a, nil
}

// ListAcks returns every stored ack.
func (db *DB) ListAcks() ([]wire.MessageAck, error) {
	rows, err := db.Query(`SELECT msg_id, status, timestamp FROM acks ORDER BY msg_id`)
	if err != nil {
		return nil, fmt.Errorf("list acks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var acks []wire.MessageAck
	for rows.Next() {
		var a wire.MessageAck
		var st string
		if err := rows.Scan(&a.MessageID, &st, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Status = wire.AckStatus(st)
		acks = append(acks, a)
	}
	return acks, rows.Err()
}
