package wire

// SessionStatus is the backend-reported lifecycle state of a WhatsApp session.
type SessionStatus string

const (
	StatusInitializing  SessionStatus = "initializing"
	StatusQR            SessionStatus = "qr"
	StatusAuthenticated SessionStatus = "authenticated"
	StatusReady         SessionStatus = "ready"
	StatusDisconnected  SessionStatus = "disconnected"
)

// Valid reports whether s is one of the known session states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusInitializing, StatusQR, StatusAuthenticated, StatusReady, StatusDisconnected:
		return true
	}
	return false
}

// ClientInfo identifies the WhatsApp account behind a ready session.
type ClientInfo struct {
	PushName string `json:"pushname"`
	WID      string `json:"wid"`
	Platform string `json:"platform"`
}

// Session is the session descriptor shared by the REST and socket surfaces.
type Session struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	QRCode     string        `json:"qrCode,omitempty"`
	ClientInfo *ClientInfo   `json:"clientInfo,omitempty"`
}
