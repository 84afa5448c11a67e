package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

var errUsage = errors.New("usage")

type cli struct {
	out        io.Writer
	jsonOut    bool
	profile    string
	configPath string
	cfg        *config.Config
	client     *api.Client
	logger     *zap.Logger
}

func (c *cli) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "health":
		return c.health(ctx)
	case "sessions":
		if len(args) < 2 {
			return errUsage
		}
		return c.sessions(ctx, args[1], args[2:])
	case "send":
		return c.send(ctx, args[1:])
	case "send-media":
		return c.sendMedia(ctx, args[1:])
	case "queue":
		if len(args) < 2 {
			return errUsage
		}
		return c.queue(ctx, args[1], args[2:])
	case "watch":
		return c.watch(ctx, args[1:])
	case "config":
		if len(args) < 2 {
			return errUsage
		}
		return c.configCmd(args[1], args[2:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *cli) health(ctx context.Context) error {
	resp := c.client.Health(ctx)
	if c.jsonOut {
		outputJSON(c.out, resp)
		return resp.Err()
	}
	if err := resp.Err(); err != nil {
		fmt.Fprintf(c.out, "%s %s\n", bad("down"), c.client.BaseURL())
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", good("ok"), c.client.BaseURL())
	return nil
}

func (c *cli) sessions(ctx context.Context, sub string, args []string) error {
	if sub == "list" {
		resp := c.client.Session.List(ctx)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printSessions(c.out, resp.Data)
		return nil
	}

	if sub == "create" {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		if id == "" {
			id = "session-" + uuid.NewString()[:8]
		}
		resp := c.client.Session.Create(ctx, id)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		fmt.Fprintf(c.out, "Created %s (%s)\n", resp.Data.ID, colorStatus(resp.Data.Status))
		fmt.Fprintf(c.out, "Run 'wactl sessions status %s' to see the QR code.\n", resp.Data.ID)
		return nil
	}

	if len(args) < 1 {
		return fmt.Errorf("usage: wactl sessions %s <id>", sub)
	}
	id := args[0]

	switch sub {
	case "status":
		resp := c.client.Session.Get(ctx, id)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printSession(c.out, resp.Data)
		return nil
	case "logout":
		return c.done(c.client.Session.Logout(ctx, id), "Logged out "+id)
	case "destroy":
		return c.done(c.client.Session.Destroy(ctx, id), "Destroyed "+id)
	case "refresh-qr":
		return c.done(c.client.Session.RefreshQR(ctx, id), "QR refresh requested for "+id)
	case "stats":
		resp := c.client.Stats.Session(ctx, id)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printStats(c.out, resp.Data)
		return nil
	case "guidance":
		resp := c.client.Stats.Guidance(ctx, id)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printGuidance(c.out, resp.Data)
		return nil
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", sub)
	}
}

// splitFlag removes every occurrence of name from args.
func splitFlag(args []string, name string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == name {
			found = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, found
}

func (c *cli) send(ctx context.Context, args []string) error {
	args, viaSocket := splitFlag(args, "--ws")
	if len(args) < 3 {
		return errors.New("usage: wactl send <session> <to> <text> [--ws]")
	}
	sessionID := args[0]
	to, err := wa.NormalizeRecipient(args[1])
	if err != nil {
		return err
	}
	text := strings.Join(args[2:], " ")

	var resp wire.Response[wire.SendResult]
	if viaSocket {
		resp, err = c.sendSocket(ctx, sessionID, to, text)
		if err != nil {
			return err
		}
	} else {
		resp = c.client.Message.SendText(ctx, sessionID, wire.SendTextRequest{To: to, Message: text})
	}
	if c.jsonOut || !resp.Success {
		return c.emit(resp)
	}
	fmt.Fprintf(c.out, "Sent to %s: %s\n", wa.DisplayNumber(to), resp.Data.MessageID)
	return nil
}

func (c *cli) sendMedia(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: wactl send-media <session> <to> <file> [caption]")
	}
	to, err := wa.NormalizeRecipient(args[1])
	if err != nil {
		return err
	}
	caption := strings.Join(args[3:], " ")
	resp := c.client.Message.SendMediaFile(ctx, args[0], to, args[2], caption, nil)
	if c.jsonOut || !resp.Success {
		return c.emit(resp)
	}
	fmt.Fprintf(c.out, "Sent %s to %s: %s\n", args[2], wa.DisplayNumber(to), resp.Data.MessageID)
	return nil
}

func (c *cli) queue(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "status":
		resp := c.client.Queue.Status(ctx)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printQueueStatus(c.out, resp.Data)
		return nil
	case "list":
		q, err := parseQueueQuery(args)
		if err != nil {
			return err
		}
		resp := c.client.Queue.Messages(ctx, q)
		if c.jsonOut || !resp.Success {
			return c.emit(resp)
		}
		printQueuePage(c.out, resp.Data, q.Page)
		return nil
	case "pause":
		return c.done(c.client.Queue.Pause(ctx), "Queue paused")
	case "resume":
		return c.done(c.client.Queue.Resume(ctx), "Queue resumed")
	case "retry", "cancel":
		if len(args) < 1 {
			return fmt.Errorf("usage: wactl queue %s <id>", sub)
		}
		if sub == "retry" {
			return c.done(c.client.Queue.Retry(ctx, args[0]), "Retry scheduled for "+args[0])
		}
		return c.done(c.client.Queue.Cancel(ctx, args[0]), "Cancelled "+args[0])
	default:
		return fmt.Errorf("unknown queue subcommand: %s", sub)
	}
}

// parseQueueQuery reads "[page] [status]" in either order.
func parseQueueQuery(args []string) (api.QueueQuery, error) {
	q := api.QueueQuery{Page: 1}
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n < 1 {
				return q, fmt.Errorf("invalid page %d", n)
			}
			q.Page = n
			continue
		}
		switch st := wire.QueueMessageStatus(strings.ToLower(a)); st {
		case wire.QueuePending, wire.QueueProcessing, wire.QueueCompleted, wire.QueueFailed:
			q.Status = st
		case "all":
			q.Status = ""
		default:
			return q, fmt.Errorf("unknown queue status %q", a)
		}
	}
	return q, nil
}

// emit prints resp as JSON when asked and turns a failed envelope into an error.
func (c *cli) emit(resp interface{ Err() error }) error {
	if c.jsonOut {
		outputJSON(c.out, resp)
	}
	return resp.Err()
}

func (c *cli) done(resp wire.Response[json.RawMessage], msg string) error {
	if c.jsonOut || !resp.Success {
		return c.emit(resp)
	}
	fmt.Fprintln(c.out, msg)
	return nil
}

// qrString draws each module as two full blocks so the code stays square in
// a terminal cell grid.
func qrString(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")\n"
	}
	var sb strings.Builder
	for _, row := range qr.Bitmap() {
		for _, dark := range row {
			if dark {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
