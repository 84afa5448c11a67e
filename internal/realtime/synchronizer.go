// Package realtime keeps one Socket.IO connection to the backend, mirrors the
// session and message state it pushes, and multiplexes request/ack actions
// over it.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
)

var (
	errNotConnected   = errors.New("socket not connected")
	errRequestTimeout = errors.New("request timed out")
	errConnectionLost = errors.New("connection lost")
	errServerClosed   = errors.New("server closed the connection")
)

// Options configures a Synchronizer. Zero durations select defaults.
type Options struct {
	URL            string
	Header         http.Header
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	JoinTimeout    time.Duration
	// NewBackOff builds the reconnect policy. Defaults to an unbounded
	// exponential backoff.
	NewBackOff func() backoff.BackOff
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 20 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = 5 * time.Second
	}
	if o.NewBackOff == nil {
		o.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
	return o
}

// ConnState is the connection status exposed to views and published on the bus.
type ConnState struct {
	Connected bool
	LastError string
	SID       string
}

// Synchronizer owns the realtime connection.
type Synchronizer struct {
	opts   Options
	mirror *mirror.Mirror
	bus    *bus.Bus
	logger *zap.Logger

	mu        sync.RWMutex
	conn      *conn
	connected bool
	lastError string
	gen       uint64

	nextID  atomic.Uint64
	pending *pendingSet

	joinMu    sync.Mutex
	joined    map[string]struct{}
	joinedGen uint64
	joins     singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Synchronizer. Nothing is dialed until Start.
func New(opts Options, m *mirror.Mirror, b *bus.Bus, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		opts:    opts.withDefaults(),
		mirror:  m,
		bus:     b,
		logger:  logger.Named("realtime"),
		pending: newPendingSet(),
		joined:  make(map[string]struct{}),
		ctx:     context.Background(),
	}
}

// Start runs the connect loop until ctx is cancelled or Stop is called.
func (s *Synchronizer) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.ctx)
	}()
}

// Stop closes the connection, fails pending requests and waits for background
// work to finish.
func (s *Synchronizer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// State returns the current connection status.
func (s *Synchronizer) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := ConnState{Connected: s.connected, LastError: s.lastError}
	if s.conn != nil {
		st.SID = s.conn.sid
	}
	return st
}

// Connected reports whether the namespace handshake has completed on a live socket.
func (s *Synchronizer) Connected() bool {
	return s.State().Connected
}

// LastError is the text of the most recent connect failure, "" after a success.
func (s *Synchronizer) LastError() string {
	return s.State().LastError
}

// Mirror exposes the state mirror fed by this connection.
func (s *Synchronizer) Mirror() *mirror.Mirror {
	return s.mirror
}

func (s *Synchronizer) run(ctx context.Context) {
	policy := s.opts.NewBackOff()
	policy.Reset()

	for {
		c, err := dial(ctx, s.opts.URL, s.opts.Header, s.opts.ConnectTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.connectFailed(err)
		} else {
			policy.Reset()
			s.serve(ctx, c)
			if ctx.Err() != nil {
				return
			}
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			s.logger.Error("reconnect policy exhausted, giving up")
			return
		}
		s.logger.Debug("reconnecting", zap.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Synchronizer) connectFailed(err error) {
	s.mu.Lock()
	s.connected = false
	s.lastError = err.Error()
	s.mu.Unlock()

	s.logger.Warn("socket connect failed", zap.Error(err))
	s.bus.Publish(bus.Event{Kind: bus.KindConnectError, Payload: ConnState{LastError: err.Error()}})
}

// serve owns c until it fails or ctx ends.
func (s *Synchronizer) serve(ctx context.Context, c *conn) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conn = c
	s.connected = true
	s.lastError = ""
	s.mu.Unlock()
	s.resetJoined(gen)

	s.logger.Info("socket connected", zap.String("sid", c.sid))
	s.bus.Publish(bus.Event{Kind: bus.KindConnected, Payload: ConnState{Connected: true, SID: c.sid}})

	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(c) }()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loadSessions(ctx)
	}()

	var err error
	select {
	case err = <-readErr:
		_ = c.close()
	case <-ctx.Done():
		_ = c.close()
		err = <-readErr
	}

	s.mu.Lock()
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	failed := s.pending.failAll(errConnectionLost)
	s.logger.Info("socket disconnected", zap.NamedError("reason", err), zap.Int("failed_requests", failed))
	s.bus.Publish(bus.Event{Kind: bus.KindDisconnected, Payload: ConnState{SID: c.sid}})
}

func (s *Synchronizer) readLoop(c *conn) error {
	for {
		msg, err := c.read()
		if err != nil {
			return err
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				return err
			}
		case eioClose:
			return errServerClosed
		case eioMessage:
			p, err := decodePacket(msg[1:])
			if err != nil {
				s.logger.Warn("dropping socket packet", zap.Error(err))
				continue
			}
			switch p.Type {
			case sioEvent:
				s.handleEvent(p)
			case sioAck:
				s.handleAck(p)
			case sioDisconnect:
				return errServerClosed
			}
		}
	}
}

func (s *Synchronizer) handleAck(p packet) {
	if !p.HasAck {
		return
	}
	data, err := decodeAck(p.Data)
	if !s.pending.resolve(p.AckID, reply{data: data, err: err}) {
		s.logger.Debug("ack for unknown request", zap.Uint64("ack_id", p.AckID))
	}
}

// loadSessions replaces the mirror with sessions:list and joins every room.
func (s *Synchronizer) loadSessions(ctx context.Context) {
	resp := s.ListSessions(ctx)
	if !resp.Success {
		s.logger.Warn("failed to load sessions", zap.String("error", resp.ErrorText()))
		return
	}
	s.mirror.ReplaceSessions(resp.Data)
	s.bus.Publish(bus.Event{Kind: bus.KindSessionsReplace, Payload: resp.Data})
	s.logger.Info("sessions loaded", zap.Int("count", len(resp.Data)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, sess := range resp.Data {
		id := sess.ID
		g.Go(func() error {
			s.Join(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

// request sends one EVENT with a fresh ack id and waits for its ACK.
func (s *Synchronizer) request(ctx context.Context, event string, payload any) (json.RawMessage, uint64, error) {
	s.mu.RLock()
	c, gen := s.conn, s.gen
	if !s.connected || c == nil {
		s.mu.RUnlock()
		return nil, 0, errNotConnected
	}
	id := s.nextID.Add(1)
	ch := s.pending.register(id)
	s.mu.RUnlock()

	frame, err := encodeEvent(id, event, payload)
	if err != nil {
		s.pending.forget(id)
		return nil, gen, err
	}
	if err := c.write(frame); err != nil {
		s.pending.forget(id)
		s.logger.Warn("socket write failed", zap.String("event", event), zap.Error(err))
		return nil, gen, errConnectionLost
	}

	timer := time.NewTimer(s.opts.RequestTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.data, gen, r.err
	case <-timer.C:
		s.pending.forget(id)
		return nil, gen, errRequestTimeout
	case <-ctx.Done():
		s.pending.forget(id)
		return nil, gen, ctx.Err()
	}
}

func (s *Synchronizer) resetJoined(gen uint64) {
	s.joinMu.Lock()
	s.joined = make(map[string]struct{})
	s.joinedGen = gen
	s.joinMu.Unlock()
}

func (s *Synchronizer) isJoined(id string) bool {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	_, ok := s.joined[id]
	return ok
}

// markJoined records a join acked on connection gen. Acks from a previous
// connection are ignored since rooms do not survive reconnects.
func (s *Synchronizer) markJoined(id string, gen uint64) {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	if gen == s.joinedGen {
		s.joined[id] = struct{}{}
	}
}
