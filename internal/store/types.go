package store

import "github.com/moatasem-alhilali/wadash/internal/wire"

// Message is a cached message row.
type Message struct {
	MsgID     string
	SessionID string
	FromJID   string
	ToJID     string
	Author    string
	Body      string
	Type      string
	HasMedia  bool
	IsGroup   bool
	Outgoing  bool
	Timestamp int64
}

// MessageFromWire converts a socket message into a cache row.
func MessageFromWire(sessionID string, m wire.IncomingMessage, outgoing bool) Message {
	return Message{
		MsgID:     m.ID,
		SessionID: sessionID,
		FromJID:   m.From,
		ToJID:     m.To,
		Author:    m.Author,
		Body:      m.Body,
		Type:      m.Type,
		HasMedia:  m.HasMedia,
		IsGroup:   m.IsGroupMsg,
		Outgoing:  outgoing,
		Timestamp: m.Timestamp,
	}
}

// Wire converts the row back into the socket shape.
func (m Message) Wire() wire.IncomingMessage {
	return wire.IncomingMessage{
		ID:         m.MsgID,
		From:       m.FromJID,
		To:         m.ToJID,
		Author:     m.Author,
		Body:       m.Body,
		Type:       m.Type,
		HasMedia:   m.HasMedia,
		IsGroupMsg: m.IsGroup,
		Timestamp:  m.Timestamp,
	}
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
