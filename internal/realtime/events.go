package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/status"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// Inbound message events.
const (
	EventMessageReceived = "message:received"
	EventMessageSent     = "message:sent"
	EventMessageAck      = "message:ack"
)

// SessionUpdate is the payload of bus.KindSessionUpdated.
type SessionUpdate struct {
	Session wire.Session
	Change  status.Change
}

// MessageEvent is the payload of bus.KindMessageReceived.
type MessageEvent struct {
	SessionID string
	Message   wire.IncomingMessage
	Outgoing  bool
}

type sessionPayload struct {
	SessionID  string           `json:"sessionId"`
	QRCode     string           `json:"qrCode"`
	ClientInfo *wire.ClientInfo `json:"clientInfo"`
	Reason     string           `json:"reason"`
}

type messagePayload struct {
	SessionID string                `json:"sessionId"`
	Message   *wire.IncomingMessage `json:"message"`
}

type ackPayload struct {
	SessionID string         `json:"sessionId"`
	MessageID string         `json:"messageId"`
	Status    wire.AckStatus `json:"status"`
	Timestamp int64          `json:"timestamp"`
}

func (s *Synchronizer) handleEvent(p packet) {
	name, args, err := decodeEvent(p.Data)
	if err != nil {
		s.logger.Warn("undecodable socket event", zap.Error(err))
		return
	}
	var arg json.RawMessage
	if len(args) > 0 {
		arg = args[0]
	}
	s.logger.Debug("socket event", zap.String("event", name), zap.ByteString("payload", arg))

	switch name {
	case status.EventQR, status.EventAuthenticated, status.EventReady, status.EventDisconnected:
		s.onSessionEvent(name, arg)
	case EventMessageReceived:
		s.onMessageReceived(arg)
	case EventMessageSent:
		s.onAck(arg, wire.AckSent)
	case EventMessageAck:
		s.onAck(arg, "")
	default:
		if strings.HasPrefix(name, "session:") {
			// Rejected by the event table and logged.
			s.onSessionEvent(name, arg)
			return
		}
		s.logger.Debug("unhandled socket event", zap.String("event", name))
	}
}

func (s *Synchronizer) onSessionEvent(name string, arg json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(arg, &payload); err != nil {
		s.logger.Warn("bad session event payload", zap.String("event", name), zap.Error(err))
		return
	}
	change, err := s.mirror.ApplySessionEvent(mirror.SessionEvent{
		Name:       name,
		SessionID:  payload.SessionID,
		QRCode:     payload.QRCode,
		ClientInfo: payload.ClientInfo,
	})
	if err != nil {
		s.logger.Warn("session event rejected", zap.String("event", name), zap.Error(err))
		return
	}
	if change.Unexpected {
		s.logger.Warn("unexpected session transition",
			zap.String("session_id", change.SessionID),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)))
	}
	if payload.Reason != "" {
		s.logger.Info("session disconnected", zap.String("session_id", payload.SessionID), zap.String("reason", payload.Reason))
	}

	sess, _ := s.mirror.Session(payload.SessionID)
	s.bus.Publish(bus.Event{Kind: bus.KindSessionUpdated, Payload: SessionUpdate{Session: sess, Change: change}})
}

func (s *Synchronizer) onMessageReceived(arg json.RawMessage) {
	var payload messagePayload
	if err := json.Unmarshal(arg, &payload); err != nil {
		s.logger.Warn("bad message payload", zap.Error(err))
		return
	}
	if payload.Message == nil {
		return
	}
	if !s.mirror.AddMessage(*payload.Message) {
		s.logger.Debug("duplicate message", zap.String("msg_id", payload.Message.ID))
		return
	}
	s.bus.Publish(bus.Event{Kind: bus.KindMessageReceived, Payload: MessageEvent{
		SessionID: payload.SessionID,
		Message:   *payload.Message,
	}})
}

// onAck merges a message:sent or message:ack push. forced overrides the
// payload status when set.
func (s *Synchronizer) onAck(arg json.RawMessage, forced wire.AckStatus) {
	var payload ackPayload
	if err := json.Unmarshal(arg, &payload); err != nil {
		s.logger.Warn("bad ack payload", zap.Error(err))
		return
	}
	if forced != "" {
		payload.Status = forced
	}
	if payload.Timestamp == 0 {
		payload.Timestamp = time.Now().UnixMilli()
	}
	s.applyAck(wire.MessageAck{MessageID: payload.MessageID, Status: payload.Status, Timestamp: payload.Timestamp})
}

func (s *Synchronizer) applyAck(ack wire.MessageAck) {
	merged, changed := s.mirror.ApplyAck(ack)
	if !changed {
		return
	}
	s.bus.Publish(bus.Event{Kind: bus.KindMessageAck, Payload: merged})
}
