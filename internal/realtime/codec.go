package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Engine.IO v4 packet types.
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// Socket.IO v5 packet types.
const (
	sioConnect      byte = '0'
	sioDisconnect   byte = '1'
	sioEvent        byte = '2'
	sioAck          byte = '3'
	sioConnectError byte = '4'
	sioBinaryEvent  byte = '5'
	sioBinaryAck    byte = '6'
)

var (
	errEmptyPacket       = errors.New("empty packet")
	errBinaryUnsupported = errors.New("binary socket.io packets are not supported")
)

// openPacket is the JSON body of the Engine.IO open packet.
type openPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// packet is a decoded Socket.IO packet.
type packet struct {
	Type      byte
	Namespace string
	AckID     uint64
	HasAck    bool
	Data      json.RawMessage
}

// connectError is the body of a CONNECT_ERROR packet.
type connectError struct {
	Message string `json:"message"`
}

// encodeEvent builds an EVENT packet wrapped in an Engine.IO message frame:
// 42<id>["name",payload]. A nil payload is omitted from the argument list.
func encodeEvent(id uint64, name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	buf := make([]byte, 0, len(body)+24)
	buf = append(buf, eioMessage, sioEvent)
	buf = strconv.AppendUint(buf, id, 10)
	return append(buf, body...), nil
}

// encodeConnect builds the namespace CONNECT packet for the default namespace.
func encodeConnect() []byte {
	return []byte{eioMessage, sioConnect}
}

// encodeDisconnect builds the namespace DISCONNECT packet.
func encodeDisconnect() []byte {
	return []byte{eioMessage, sioDisconnect}
}

// decodePacket parses the Socket.IO part of an Engine.IO message frame, i.e.
// everything after the leading '4'.
func decodePacket(data []byte) (packet, error) {
	if len(data) == 0 {
		return packet{}, errEmptyPacket
	}
	p := packet{Type: data[0]}
	switch p.Type {
	case sioConnect, sioDisconnect, sioEvent, sioAck, sioConnectError:
	case sioBinaryEvent, sioBinaryAck:
		return packet{}, errBinaryUnsupported
	default:
		return packet{}, fmt.Errorf("unknown socket.io packet type %q", p.Type)
	}
	rest := data[1:]

	if len(rest) > 0 && rest[0] == '/' {
		end := bytes.IndexByte(rest, ',')
		if end < 0 {
			p.Namespace = string(rest)
			return p, nil
		}
		p.Namespace = string(rest[:end])
		rest = rest[end+1:]
	}

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.ParseUint(string(rest[:n]), 10, 64)
		if err != nil {
			return packet{}, fmt.Errorf("ack id: %w", err)
		}
		p.AckID = id
		p.HasAck = true
		rest = rest[n:]
	}

	if len(rest) > 0 {
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// decodeEvent splits an EVENT body into its name and arguments.
func decodeEvent(data json.RawMessage) (string, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, errors.New("decode event: empty argument list")
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	return name, parts[1:], nil
}

// decodeAck returns the first acknowledgement argument, or nil if there is none.
func decodeAck(data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("decode ack: %w", err)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return parts[0], nil
}
