package bus

import "time"

// Event kinds published by the realtime synchronizer. Subscribers filter by
// prefix, so "session." receives every session kind.
const (
	KindConnected    = "conn.connected"
	KindDisconnected = "conn.disconnected"
	KindConnectError = "conn.error"

	KindSessionUpdated  = "session.updated"
	KindSessionsReplace = "session.replaced"
	KindSessionRemoved  = "session.removed"

	KindMessageReceived = "message.received"
	KindMessageAck      = "message.ack"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
