package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IncomingMessage is a message pushed by the backend on message:received.
type IncomingMessage struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Body         string   `json:"body"`
	Type         string   `json:"type"`
	Timestamp    int64    `json:"timestamp"`
	HasMedia     bool     `json:"hasMedia"`
	IsGroupMsg   bool     `json:"isGroupMsg"`
	Author       string   `json:"author,omitempty"`
	MentionedIDs []string `json:"mentionedIds,omitempty"`
}

// AckStatus is the delivery state of an outgoing message.
type AckStatus string

const (
	AckSent      AckStatus = "sent"
	AckDelivered AckStatus = "delivered"
	AckRead      AckStatus = "read"
)

// Rank orders ack states so later states compare greater. Unknown states rank 0.
func (s AckStatus) Rank() int {
	switch s {
	case AckSent:
		return 1
	case AckDelivered:
		return 2
	case AckRead:
		return 3
	}
	return 0
}

// UnmarshalJSON accepts the string form and the numeric ack levels
// whatsapp-web.js emits (1 server, 2 device, 3 read, 4 played).
func (s *AckStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = AckStatus(str)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ack status: %w", err)
	}
	switch {
	case n >= 3:
		*s = AckRead
	case n == 2:
		*s = AckDelivered
	case n == 1:
		*s = AckSent
	default:
		*s = ""
	}
	return nil
}

// MessageAck is the merged delivery record for one outgoing message.
type MessageAck struct {
	MessageID string    `json:"messageId"`
	Status    AckStatus `json:"status"`
	Timestamp int64     `json:"timestamp"`
}

// Contact is a sender derived from the message log, ordered by last activity.
type Contact struct {
	Number   string `json:"number"`
	Name     string `json:"name,omitempty"`
	LastSeen int64  `json:"lastSeen"`
}

// AntiBanOptions are backend-interpreted pacing hints attached to a send.
type AntiBanOptions struct {
	PersonalizeWith     map[string]string `json:"personalizeWith,omitempty"`
	Variations          []string          `json:"variations,omitempty"`
	Priority            QueuePriority     `json:"priority,omitempty"`
	UseQueue            *bool             `json:"useQueue,omitempty"`
	Delay               int               `json:"delay,omitempty"`
	EnableHumanBehavior *bool             `json:"enableHumanBehavior,omitempty"`
}

// SendTextRequest is the body of POST /sessions/{id}/send-text.
type SendTextRequest struct {
	To             string          `json:"to"`
	Message        string          `json:"message"`
	AntiBanOptions *AntiBanOptions `json:"antiBanOptions,omitempty"`
}

// SendResult carries the backend-assigned message id.
type SendResult struct {
	MessageID string `json:"messageId"`
}
