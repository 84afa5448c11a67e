package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// connect starts a synchronizer and waits for the first successful handshake.
// The caller must Stop the returned synchronizer.
func (c *cli) connect(ctx context.Context, b *bus.Bus) (*realtime.Synchronizer, error) {
	conn, cancel := b.Subscribe("conn.", 16)
	defer cancel()

	s := realtime.New(realtime.Options{
		URL:            c.cfg.WSURL,
		ConnectTimeout: c.cfg.Timeouts.Connect.Duration,
		RequestTimeout: c.cfg.Timeouts.Request.Duration,
		JoinTimeout:    c.cfg.Timeouts.Join.Duration,
	}, mirror.New(c.cfg.Mirror.MessageLogCap), b, c.logger)
	s.Start(ctx)

	wait := c.cfg.Timeouts.Connect.Duration * 2
	if wait <= 0 {
		wait = 10 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case evt := <-conn:
			if evt.Kind == bus.KindConnected {
				return s, nil
			}
		case <-timer.C:
			s.Stop()
			if last := s.LastError(); last != "" {
				return nil, fmt.Errorf("socket %s: %s", c.cfg.WSURL, last)
			}
			return nil, fmt.Errorf("socket %s: no connection after %s", c.cfg.WSURL, wait)
		case <-ctx.Done():
			s.Stop()
			return nil, ctx.Err()
		}
	}
}

func (c *cli) sendSocket(ctx context.Context, sessionID, to, text string) (wire.Response[wire.SendResult], error) {
	s, err := c.connect(ctx, bus.New())
	if err != nil {
		return wire.Response[wire.SendResult]{}, err
	}
	defer s.Stop()
	return s.SendMessage(ctx, sessionID, to, text), nil
}

// watch prints bus events until interrupted. Named sessions are joined
// explicitly; the synchronizer already joins every listed session on connect.
func (c *cli) watch(ctx context.Context, sessions []string) error {
	b := bus.New()
	events, cancel := b.Subscribe("", 256)
	defer cancel()

	s, err := c.connect(ctx, b)
	if err != nil {
		return err
	}
	defer s.Stop()

	for _, id := range sessions {
		if resp := s.Join(ctx, id); !resp.Success {
			fmt.Fprintf(c.out, "%s join %s: %s\n", bad("!"), id, resp.ErrorText())
		}
	}
	if !c.jsonOut {
		fmt.Fprintf(c.out, "%s %s, Ctrl-C to stop\n", good("watching"), c.cfg.WSURL)
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case evt := <-events:
			if c.jsonOut {
				outputJSON(c.out, evt)
				continue
			}
			fmt.Fprintln(c.out, formatEvent(evt))
		}
	}
}

func formatEvent(evt bus.Event) string {
	ts := muted(evt.Timestamp.Format("15:04:05"))
	switch p := evt.Payload.(type) {
	case realtime.ConnState:
		switch evt.Kind {
		case bus.KindConnected:
			return fmt.Sprintf("%s %s sid=%s", ts, good("connected"), p.SID)
		case bus.KindDisconnected:
			return fmt.Sprintf("%s %s", ts, warn("disconnected"))
		}
		return fmt.Sprintf("%s %s %s", ts, bad("connect error"), p.LastError)
	case realtime.SessionUpdate:
		line := fmt.Sprintf("%s session %s %s", ts, p.Session.ID, colorStatus(p.Session.Status))
		if p.Change.From != "" && p.Change.From != p.Change.To {
			line += muted(" (from " + string(p.Change.From) + ")")
		}
		if p.Change.Unexpected {
			line += " " + warn("unexpected")
		}
		return line
	case []wire.Session:
		return fmt.Sprintf("%s sessions loaded: %d", ts, len(p))
	case realtime.MessageEvent:
		if p.Outgoing {
			return fmt.Sprintf("%s [%s] → %s: %s", ts, p.SessionID, wa.DisplayNumber(p.Message.To), wa.Preview(p.Message))
		}
		return fmt.Sprintf("%s [%s] ← %s: %s", ts, p.SessionID, wa.DisplayNumber(p.Message.From), wa.Preview(p.Message))
	case wire.MessageAck:
		return fmt.Sprintf("%s ack %s %s %s", ts, p.MessageID, p.Status, wa.AckMark(p.Status))
	}
	return fmt.Sprintf("%s %s", ts, evt.Kind)
}
