package realtime

import (
	"errors"
	"testing"
)

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		id      uint64
		event   string
		payload any
		want    string
	}{
		{"with payload", 7, "join", map[string]string{"sessionId": "s1"}, `427["join",{"sessionId":"s1"}]`},
		{"no payload", 12, "sessions:list", nil, `4212["sessions:list"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeEvent(tt.id, tt.event, tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("encodeEvent() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		typ    byte
		nsp    string
		hasAck bool
		ackID  uint64
		data   string
	}{
		{"connect ok", `0{"sid":"abc"}`, sioConnect, "", false, 0, `{"sid":"abc"}`},
		{"event", `2["session:qr",{"sessionId":"a"}]`, sioEvent, "", false, 0, `["session:qr",{"sessionId":"a"}]`},
		{"ack", `315[{"success":true}]`, sioAck, "", true, 15, `[{"success":true}]`},
		{"namespaced event", `2/admin,3["x"]`, sioEvent, "/admin", true, 3, `["x"]`},
		{"namespace only", `1/admin`, sioDisconnect, "/admin", false, 0, ``},
		{"connect error", `4{"message":"nope"}`, sioConnectError, "", false, 0, `{"message":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodePacket([]byte(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if p.Type != tt.typ || p.Namespace != tt.nsp || p.HasAck != tt.hasAck || p.AckID != tt.ackID || string(p.Data) != tt.data {
				t.Errorf("decodePacket(%s) = %+v (data %s)", tt.in, p, p.Data)
			}
		})
	}
}

func TestDecodePacketRejects(t *testing.T) {
	if _, err := decodePacket(nil); !errors.Is(err, errEmptyPacket) {
		t.Errorf("empty: error = %v", err)
	}
	for _, in := range []string{`51-["upload",{"_placeholder":true,"num":0}]`, `61-[{"_placeholder":true}]`} {
		if _, err := decodePacket([]byte(in)); !errors.Is(err, errBinaryUnsupported) {
			t.Errorf("%s: error = %v, want errBinaryUnsupported", in, err)
		}
	}
	if _, err := decodePacket([]byte("9")); err == nil {
		t.Error("unknown type accepted")
	}
}

func TestDecodeEvent(t *testing.T) {
	name, args, err := decodeEvent([]byte(`["message:ack",{"messageId":"m1"},2]`))
	if err != nil {
		t.Fatal(err)
	}
	if name != "message:ack" || len(args) != 2 {
		t.Errorf("name=%s args=%d", name, len(args))
	}
	if _, _, err := decodeEvent([]byte(`[]`)); err == nil {
		t.Error("empty event accepted")
	}
	if _, _, err := decodeEvent([]byte(`[1]`)); err == nil {
		t.Error("numeric event name accepted")
	}
}

func TestDecodeAck(t *testing.T) {
	got, err := decodeAck([]byte(`[{"success":true},"extra"]`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"success":true}` {
		t.Errorf("decodeAck = %s", got)
	}
	if got, _ := decodeAck([]byte(`[]`)); got != nil {
		t.Errorf("empty ack = %s, want nil", got)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:3001", "ws://localhost:3001/socket.io/?EIO=4&transport=websocket"},
		{"https://example.com/", "wss://example.com/socket.io/?EIO=4&transport=websocket"},
		{"ws://h:1/base", "ws://h:1/base/socket.io/?EIO=4&transport=websocket"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.in)
		if err != nil {
			t.Fatalf("endpointURL(%s): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("endpointURL(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if _, err := endpointURL("ftp://x"); err == nil {
		t.Error("ftp scheme accepted")
	}
}
