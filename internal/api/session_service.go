package api

import (
	"context"
	"encoding/json"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// SessionService covers /sessions.
type SessionService struct {
	c *Client
}

type createSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// Create starts a new session. An empty id lets the backend pick one.
func (s *SessionService) Create(ctx context.Context, sessionID string) wire.Response[wire.Session] {
	return postJSON[wire.Session](ctx, s.c, createSessionRequest{SessionID: sessionID}, "sessions")
}

// List returns every session.
func (s *SessionService) List(ctx context.Context) wire.Response[[]wire.Session] {
	resp := getJSON[[]wire.Session](ctx, s.c, nil, "sessions")
	if resp.Success && resp.Data == nil {
		resp.Data = []wire.Session{}
	}
	return resp
}

// Get returns one session including its current QR code, if any.
func (s *SessionService) Get(ctx context.Context, sessionID string) wire.Response[wire.Session] {
	return getJSON[wire.Session](ctx, s.c, nil, "sessions", sessionID)
}

// RefreshQR asks the backend to regenerate the QR code.
func (s *SessionService) RefreshQR(ctx context.Context, sessionID string) wire.Response[json.RawMessage] {
	return postJSON[json.RawMessage](ctx, s.c, nil, "sessions", sessionID, "refresh-qr")
}

// Logout unlinks the WhatsApp account but keeps the session.
func (s *SessionService) Logout(ctx context.Context, sessionID string) wire.Response[json.RawMessage] {
	return postJSON[json.RawMessage](ctx, s.c, nil, "sessions", sessionID, "logout")
}

// Destroy removes the session from the backend.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) wire.Response[json.RawMessage] {
	return deleteJSON[json.RawMessage](ctx, s.c, "sessions", sessionID)
}
