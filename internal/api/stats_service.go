package api

import (
	"context"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// StatsService covers the per-session anti-ban endpoints.
type StatsService struct {
	c *Client
}

// Session returns message counters, queue totals and health for a session.
func (s *StatsService) Session(ctx context.Context, sessionID string) wire.Response[wire.SessionStats] {
	return getJSON[wire.SessionStats](ctx, s.c, nil, "sessions", sessionID, "stats")
}

// Guidance returns the backend's operator advice for a session.
func (s *StatsService) Guidance(ctx context.Context, sessionID string) wire.Response[wire.UserGuidance] {
	return getJSON[wire.UserGuidance](ctx, s.c, nil, "sessions", sessionID, "guidance")
}
