package status

import (
	"errors"
	"fmt"
	"slices"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// Inbound session event names on the socket.
const (
	EventQR            = "session:qr"
	EventAuthenticated = "session:authenticated"
	EventReady         = "session:ready"
	EventDisconnected  = "session:disconnected"
)

// ErrUnknownEvent is returned for a session event with no entry in the event table.
var ErrUnknownEvent = errors.New("unknown session event")

// eventTargets maps each session event to the state it names. The mirror applies
// exactly this state; it never infers one.
var eventTargets = map[string]wire.SessionStatus{
	EventQR:            wire.StatusQR,
	EventAuthenticated: wire.StatusAuthenticated,
	EventReady:         wire.StatusReady,
	EventDisconnected:  wire.StatusDisconnected,
}

// expectedFrom lists the predecessor states the backend normally transitions from.
// Anything else is still applied (the backend is authoritative) but reported.
var expectedFrom = map[wire.SessionStatus][]wire.SessionStatus{
	wire.StatusInitializing:  {},
	wire.StatusQR:            {wire.StatusInitializing, wire.StatusQR, wire.StatusDisconnected},
	wire.StatusAuthenticated: {wire.StatusQR, wire.StatusInitializing},
	wire.StatusReady:         {wire.StatusAuthenticated, wire.StatusInitializing},
	wire.StatusDisconnected: {
		wire.StatusInitializing, wire.StatusQR, wire.StatusAuthenticated,
		wire.StatusReady, wire.StatusDisconnected,
	},
}

// Target resolves the state named by a session event.
func Target(event string) (wire.SessionStatus, error) {
	to, ok := eventTargets[event]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return to, nil
}

// Expected reports whether from -> to is a transition the backend normally makes.
// A session seen for the first time (from == "") is always expected.
func Expected(from, to wire.SessionStatus) bool {
	if from == "" {
		return true
	}
	return slices.Contains(expectedFrom[to], from)
}

// Terminal reports whether views should stop polling a session in state s.
// The backend may still emit events afterwards.
func Terminal(s wire.SessionStatus) bool {
	return s == wire.StatusReady || s == wire.StatusDisconnected
}

// Connecting reports whether s counts as "connecting" in dashboard totals.
func Connecting(s wire.SessionStatus) bool {
	return s == wire.StatusQR || s == wire.StatusInitializing
}

// Change describes one applied transition.
type Change struct {
	SessionID  string
	From       wire.SessionStatus
	To         wire.SessionStatus
	Unexpected bool
}
