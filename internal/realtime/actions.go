package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// Outbound action names.
const (
	actionJoin          = "join"
	actionCreateSession = "session:create"
	actionLogout        = "session:logout"
	actionStatus        = "session:status"
	actionListSessions  = "sessions:list"
	actionSendMessage   = "message:send"
)

const noResponse = "No response from server"

type sessionRef struct {
	SessionID string `json:"sessionId,omitempty"`
}

type sendPayload struct {
	SessionID string `json:"sessionId"`
	To        string `json:"to"`
	Message   string `json:"message"`
}

// sendAck is the loosely shaped message:send acknowledgement: the id shows up
// either at the top level or under data.
type sendAck struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Data      *struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
	Error string `json:"error"`
}

func emptyJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeResponse turns a request outcome into an envelope. Failures always
// carry non-empty error text.
func decodeResponse[T any](raw json.RawMessage, err error) wire.Response[T] {
	if err != nil {
		return wire.Fail[T](err.Error())
	}
	if emptyJSON(raw) {
		return wire.Fail[T](noResponse)
	}
	var resp wire.Response[T]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return wire.Fail[T]("invalid response: " + err.Error())
	}
	if !resp.Success {
		resp.Error = resp.ErrorText()
	}
	return resp
}

// Join subscribes the connection to a session's room. Joins are idempotent per
// connection and concurrent joins for one id share a single request.
func (s *Synchronizer) Join(ctx context.Context, sessionID string) wire.Response[json.RawMessage] {
	if sessionID == "" {
		return wire.Fail[json.RawMessage]("sessionId is required")
	}
	if s.isJoined(sessionID) {
		return wire.Ok[json.RawMessage](nil)
	}
	v, _, _ := s.joins.Do(sessionID, func() (any, error) {
		if s.isJoined(sessionID) {
			return wire.Ok[json.RawMessage](nil), nil
		}
		raw, gen, err := s.request(ctx, actionJoin, sessionRef{SessionID: sessionID})
		resp := decodeResponse[json.RawMessage](raw, err)
		if resp.Success {
			s.markJoined(sessionID, gen)
			s.logger.Debug("joined session room", zap.String("session_id", sessionID))
		} else {
			s.logger.Warn("failed to join session room", zap.String("session_id", sessionID), zap.String("error", resp.Error))
		}
		return resp, nil
	})
	return v.(wire.Response[json.RawMessage])
}

// ensureJoined awaits the room join before a session-scoped action. A failed
// join is logged and the action proceeds anyway.
func (s *Synchronizer) ensureJoined(ctx context.Context, sessionID string) {
	if s.isJoined(sessionID) {
		return
	}
	jctx, cancel := context.WithTimeout(ctx, s.opts.JoinTimeout)
	defer cancel()
	if resp := s.Join(jctx, sessionID); !resp.Success {
		s.logger.Warn("proceeding without room join", zap.String("session_id", sessionID), zap.String("error", resp.Error))
	}
}

// CreateSession asks the backend for a new session. An empty id lets the
// backend choose one. The new room is joined in the background.
func (s *Synchronizer) CreateSession(ctx context.Context, sessionID string) wire.Response[wire.Session] {
	raw, _, err := s.request(ctx, actionCreateSession, sessionRef{SessionID: sessionID})
	resp := decodeResponse[wire.Session](raw, err)
	if !resp.Success || resp.Data.ID == "" {
		return resp
	}

	s.mirror.UpsertSession(resp.Data)
	if sess, ok := s.mirror.Session(resp.Data.ID); ok {
		s.bus.Publish(bus.Event{Kind: bus.KindSessionUpdated, Payload: SessionUpdate{Session: sess}})
	}

	id := resp.Data.ID
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		jctx, cancel := context.WithTimeout(s.ctx, s.opts.JoinTimeout)
		defer cancel()
		s.Join(jctx, id)
	}()
	return resp
}

// LogoutSession logs the WhatsApp account out of a session.
func (s *Synchronizer) LogoutSession(ctx context.Context, sessionID string) wire.Response[json.RawMessage] {
	s.ensureJoinedIfConnected(ctx, sessionID)
	raw, _, err := s.request(ctx, actionLogout, sessionRef{SessionID: sessionID})
	return decodeResponse[json.RawMessage](raw, err)
}

// SessionStatus fetches one session and merges it into the mirror.
func (s *Synchronizer) SessionStatus(ctx context.Context, sessionID string) wire.Response[wire.Session] {
	s.ensureJoinedIfConnected(ctx, sessionID)
	raw, _, err := s.request(ctx, actionStatus, sessionRef{SessionID: sessionID})
	resp := decodeResponse[wire.Session](raw, err)
	if resp.Success && resp.Data.ID != "" {
		s.mirror.UpsertSession(resp.Data)
	}
	return resp
}

// ListSessions returns every session the backend knows about.
func (s *Synchronizer) ListSessions(ctx context.Context) wire.Response[[]wire.Session] {
	raw, _, err := s.request(ctx, actionListSessions, nil)
	resp := decodeResponse[[]wire.Session](raw, err)
	if resp.Success && resp.Data == nil {
		resp.Data = []wire.Session{}
	}
	return resp
}

// SendMessage sends a text message through the socket. On success the message
// is recorded as outgoing with a sent ack.
func (s *Synchronizer) SendMessage(ctx context.Context, sessionID, to, message string) wire.Response[wire.SendResult] {
	s.ensureJoinedIfConnected(ctx, sessionID)

	raw, _, err := s.request(ctx, actionSendMessage, sendPayload{SessionID: sessionID, To: to, Message: message})
	if err != nil {
		return wire.Fail[wire.SendResult](err.Error())
	}
	resp := normalizeSend(raw)
	if !resp.Success {
		return resp
	}

	now := time.Now().UnixMilli()
	s.mirror.RecordOutgoing(wire.IncomingMessage{
		ID:        resp.Data.MessageID,
		From:      sessionID,
		To:        to,
		Body:      message,
		Type:      "chat",
		Timestamp: now,
	})
	s.bus.Publish(bus.Event{Kind: bus.KindMessageReceived, Payload: MessageEvent{
		SessionID: sessionID,
		Outgoing:  true,
		Message: wire.IncomingMessage{
			ID: resp.Data.MessageID, From: sessionID, To: to, Body: message, Type: "chat", Timestamp: now,
		},
	}})
	if ack, ok := s.mirror.Ack(resp.Data.MessageID); ok {
		s.bus.Publish(bus.Event{Kind: bus.KindMessageAck, Payload: ack})
	}
	return resp
}

// ForgetSession drops a destroyed session from the mirror and the joined set,
// then publishes bus.KindSessionRemoved with the id as payload.
func (s *Synchronizer) ForgetSession(sessionID string) {
	s.mirror.RemoveSession(sessionID)
	s.joinMu.Lock()
	delete(s.joined, sessionID)
	s.joinMu.Unlock()
	s.bus.Publish(bus.Event{Kind: bus.KindSessionRemoved, Payload: sessionID})
}

func (s *Synchronizer) ensureJoinedIfConnected(ctx context.Context, sessionID string) {
	if sessionID == "" || !s.Connected() {
		return
	}
	s.ensureJoined(ctx, sessionID)
}

func normalizeSend(raw json.RawMessage) wire.Response[wire.SendResult] {
	if emptyJSON(raw) {
		return wire.Fail[wire.SendResult](noResponse)
	}
	var ack sendAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return wire.Fail[wire.SendResult]("invalid response: " + err.Error())
	}
	switch {
	case ack.Success && ack.MessageID != "":
		return wire.Ok(wire.SendResult{MessageID: ack.MessageID})
	case ack.Success && ack.Data != nil && ack.Data.MessageID != "":
		return wire.Ok(wire.SendResult{MessageID: ack.Data.MessageID})
	}
	if ack.Error == "" {
		ack.Error = "Failed to send message"
	}
	return wire.Fail[wire.SendResult](ack.Error)
}
