package status

import (
	"errors"
	"testing"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		event string
		want  wire.SessionStatus
	}{
		{EventQR, wire.StatusQR},
		{EventAuthenticated, wire.StatusAuthenticated},
		{EventReady, wire.StatusReady},
		{EventDisconnected, wire.StatusDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			got, err := Target(tt.event)
			if err != nil {
				t.Fatalf("Target(%s) error = %v", tt.event, err)
			}
			if got != tt.want {
				t.Errorf("Target(%s) = %s, want %s", tt.event, got, tt.want)
			}
		})
	}
}

func TestTargetUnknown(t *testing.T) {
	_, err := Target("session:exploded")
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("error = %v, want ErrUnknownEvent", err)
	}
}

func TestExpected(t *testing.T) {
	tests := []struct {
		from wire.SessionStatus
		to   wire.SessionStatus
		want bool
	}{
		{"", wire.StatusReady, true},
		{wire.StatusInitializing, wire.StatusQR, true},
		{wire.StatusQR, wire.StatusAuthenticated, true},
		{wire.StatusAuthenticated, wire.StatusReady, true},
		{wire.StatusReady, wire.StatusDisconnected, true},
		{wire.StatusDisconnected, wire.StatusQR, true},
		{wire.StatusQR, wire.StatusReady, false},
		{wire.StatusReady, wire.StatusQR, false},
		{wire.StatusDisconnected, wire.StatusReady, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := Expected(tt.from, tt.to); got != tt.want {
				t.Errorf("Expected(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []wire.SessionStatus{wire.StatusReady, wire.StatusDisconnected} {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false", s)
		}
	}
	for _, s := range []wire.SessionStatus{wire.StatusInitializing, wire.StatusQR, wire.StatusAuthenticated} {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true", s)
		}
	}
}
