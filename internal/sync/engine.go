// Package sync persists realtime events into the local history cache and
// restores the mirror from it at startup.
package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/store"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// Engine handles idempotent ingestion of bus events into the store.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	rec    *Reconciler
	logger *zap.Logger
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sync")
	return &Engine{
		db:     db,
		bus:    b,
		rec:    NewReconciler(db, logger),
		logger: logger,
	}
}

// Reconciler returns the checkpoint store used by the engine.
func (e *Engine) Reconciler() *Reconciler { return e.rec }

// Start subscribes to connection, session and message events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	conns, unsubConn := e.bus.Subscribe("conn.", 64)
	sessions, unsubSession := e.bus.Subscribe("session.", 256)
	messages, unsubMessage := e.bus.Subscribe("message.", 1024)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer unsubConn()
		defer unsubSession()
		defer unsubMessage()
		for {
			select {
			case evt := <-conns:
				e.handleEvent(evt)
			case evt := <-sessions:
				e.handleEvent(evt)
			case evt := <-messages:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the ingest loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) handleEvent(evt bus.Event) {
	var err error
	switch evt.Kind {
	case bus.KindSessionsReplace:
		list, ok := evt.Payload.([]wire.Session)
		if !ok {
			return
		}
		err = e.db.ReplaceSessions(list)
	case bus.KindSessionUpdated:
		u, ok := evt.Payload.(realtime.SessionUpdate)
		if !ok {
			return
		}
		err = e.db.UpsertSession(u.Session)
	case bus.KindSessionRemoved:
		id, ok := evt.Payload.(string)
		if !ok {
			return
		}
		err = e.db.DeleteSession(id)
	case bus.KindMessageReceived:
		m, ok := evt.Payload.(realtime.MessageEvent)
		if !ok {
			return
		}
		_, err = e.IngestMessage(m.SessionID, m.Message, m.Outgoing)
	case bus.KindMessageAck:
		a, ok := evt.Payload.(wire.MessageAck)
		if !ok {
			return
		}
		_, err = e.db.UpsertAck(a)
	case bus.KindConnected:
		st, ok := evt.Payload.(realtime.ConnState)
		if !ok {
			return
		}
		err = e.rec.RecordConnected(st.SID, evt.Timestamp)
	case bus.KindConnectError:
		st, ok := evt.Payload.(realtime.ConnState)
		if !ok {
			return
		}
		err = e.rec.RecordError(st.LastError)
	default:
		return
	}
	if err != nil {
		e.logger.Error("failed to persist event", zap.String("kind", evt.Kind), zap.Error(err))
	}
}

// IngestMessage stores a message once. It reports whether the row is new.
func (e *Engine) IngestMessage(sessionID string, msg wire.IncomingMessage, outgoing bool) (bool, error) {
	row := store.MessageFromWire(sessionID, msg, outgoing)
	inserted, err := e.db.UpsertMessage(&row)
	if err != nil {
		return false, err
	}
	if outgoing && inserted {
		if _, err := e.db.UpsertAck(wire.MessageAck{MessageID: msg.ID, Status: wire.AckSent, Timestamp: msg.Timestamp}); err != nil {
			return true, err
		}
	}
	return inserted, nil
}

// SeedMirror trims the cache to limit messages and loads what remains, with
// acks and the last session snapshot, into m.
func (e *Engine) SeedMirror(m *mirror.Mirror, limit int) error {
	pruned, err := e.db.PruneMessages(limit)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	rows, err := e.db.RecentMessages(limit)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	acks, err := e.db.ListAcks()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	sessions, err := e.db.ListSessions()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	entries := make([]mirror.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, mirror.Entry{Message: r.Wire(), Outgoing: r.Outgoing})
	}
	m.Seed(entries, acks)
	for _, s := range sessions {
		m.UpsertSession(s)
	}

	e.logger.Info("mirror seeded from cache",
		zap.Int("messages", len(entries)),
		zap.Int("acks", len(acks)),
		zap.Int("sessions", len(sessions)),
		zap.Int64("pruned", pruned))
	return nil
}
