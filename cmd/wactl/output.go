package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

var (
	good  = color.New(color.FgGreen).SprintFunc()
	warn  = color.New(color.FgYellow).SprintFunc()
	bad   = color.New(color.FgRed).SprintFunc()
	muted = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func outputJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func bandSprint(b model.Band) func(a ...any) string {
	switch b {
	case model.BandGood:
		return good
	case model.BandWarn:
		return warn
	}
	return bad
}

// colorStatus pads before colouring so escape codes do not break alignment.
func colorStatus(s wire.SessionStatus) string {
	return colorPadded(string(s), 0, sessionBand(s))
}

func colorPadded(s string, width int, b model.Band) string {
	if width > 0 {
		s = fmt.Sprintf("%-*s", width, s)
	}
	return bandSprint(b)(s)
}

func sessionBand(s wire.SessionStatus) model.Band {
	switch s {
	case wire.StatusReady:
		return model.BandGood
	case wire.StatusDisconnected:
		return model.BandBad
	}
	return model.BandWarn
}

func queueBand(s wire.QueueMessageStatus) model.Band {
	switch s {
	case wire.QueueCompleted:
		return model.BandGood
	case wire.QueueFailed:
		return model.BandBad
	}
	return model.BandWarn
}

func printSessions(w io.Writer, sessions []wire.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	fmt.Fprintf(w, "%-24s %-14s %-20s %s\n", "ID", "STATUS", "ACCOUNT", "NUMBER")
	for _, s := range sessions {
		account, number := "-", "-"
		if s.ClientInfo != nil {
			if s.ClientInfo.PushName != "" {
				account = s.ClientInfo.PushName
			}
			if s.ClientInfo.WID != "" {
				number = wa.DisplayNumber(s.ClientInfo.WID)
			}
		}
		fmt.Fprintf(w, "%-24s %s %-20s %s\n", s.ID, colorPadded(string(s.Status), 14, sessionBand(s.Status)), account, number)
	}
	c := model.Counts(sessions)
	fmt.Fprintf(w, "\n%d sessions: %s ready, %s connecting, %s disconnected\n",
		c.Total, good(c.Ready), warn(c.Connecting), bad(c.Disconnected))
}

func printSession(w io.Writer, s wire.Session) {
	fmt.Fprintf(w, "Session: %s\n", s.ID)
	fmt.Fprintf(w, "Status:  %s\n", colorStatus(s.Status))
	if s.ClientInfo != nil {
		fmt.Fprintf(w, "Account: %s (%s)\n", s.ClientInfo.PushName, wa.DisplayNumber(s.ClientInfo.WID))
		if s.ClientInfo.Platform != "" {
			fmt.Fprintf(w, "Platform: %s\n", s.ClientInfo.Platform)
		}
	}
	if s.Status == wire.StatusQR && s.QRCode != "" {
		fmt.Fprintln(w, "\nScan this QR code with WhatsApp (Linked devices):")
		fmt.Fprint(w, qrString(s.QRCode))
	}
}

func printStats(w io.Writer, st wire.SessionStats) {
	now := time.Now()
	score := model.StatsHealthScore(st)
	band := model.HealthBand(score)
	fmt.Fprintf(w, "%s %s\n", bold("Session"), st.SessionID)
	fmt.Fprintf(w, "Status:   %s\n", st.Status)
	fmt.Fprintf(w, "Health:   %s\n", bandSprint(band)(fmt.Sprintf("%d/100 (%s)", score, band)))

	if h := st.SessionHealth; h != nil {
		fmt.Fprintf(w, "Risk:     %s\n", strings.ToUpper(h.RiskLevel))
		if h.BanDetected {
			fmt.Fprintf(w, "Ban:      %s\n", bad("detected"))
		}
		if h.AutoStopped {
			fmt.Fprintf(w, "Sending:  %s\n", bad("auto-stopped"))
		}
		if n := len(h.SuspiciousEvents); n > 0 {
			fmt.Fprintf(w, "Suspicious events: %d\n", n)
		}
	}

	if m := st.MessageStats; m != nil {
		daily := model.Usage(m.MessagesSent, m.DailyLimit)
		contacts := model.Usage(m.NewContacts, m.ContactLimit)
		fmt.Fprintf(w, "Sent:     %s\n", bandSprint(daily.Band)(fmt.Sprintf("%d/%d (%.0f%%)", daily.Used, daily.Limit, daily.Percent)))
		fmt.Fprintf(w, "Contacts: %s\n", bandSprint(contacts.Band)(fmt.Sprintf("%d/%d (%.0f%%)", contacts.Used, contacts.Limit, contacts.Percent)))
		fmt.Fprintf(w, "Received: %d\n", m.MessagesReceived)
		if ago := model.TimeAgoString(m.LastMessageTime, now); ago != "" {
			fmt.Fprintf(w, "Last sent: %s\n", ago)
		}
	}

	if q := st.QueueStats; q != nil {
		fmt.Fprintf(w, "Queue:    %d pending, %d processing, %d completed, %s failed\n",
			q.Pending, q.Processing, q.Completed, bad(q.Failed))
	}
}

func printGuidance(w io.Writer, g wire.UserGuidance) {
	sprint := bandSprint(model.GuidanceBand(g.Level))
	fmt.Fprintf(w, "%s %s\n", sprint("["+g.Level+"]"), bold(g.Title))
	if g.Message != "" {
		fmt.Fprintln(w, g.Message)
	}
	for _, r := range g.Recommendations {
		fmt.Fprintf(w, "  • %s\n", r)
	}
	if !g.CanSendMessages {
		fmt.Fprintln(w, bad("Sending is currently blocked"))
	}
	if g.NextAction != "" {
		fmt.Fprintf(w, "Next: %s\n", g.NextAction)
	}
}

func printQueueStatus(w io.Writer, s wire.QueueStatus) {
	state := good("running")
	if s.IsPaused {
		state = warn("paused")
	} else if !s.IsActive {
		state = muted("idle")
	}
	fmt.Fprintf(w, "Queue:      %s\n", state)
	fmt.Fprintf(w, "Total:      %d\n", s.TotalMessages)
	fmt.Fprintf(w, "Pending:    %d\n", s.PendingMessages)
	fmt.Fprintf(w, "Processing: %d\n", s.ProcessingMessages)
	fmt.Fprintf(w, "Completed:  %d\n", s.CompletedMessages)
	fmt.Fprintf(w, "Failed:     %s\n", bad(s.FailedMessages))
	if s.EstimatedCompletion != "" {
		fmt.Fprintf(w, "ETA:        %s\n", s.EstimatedCompletion)
	}
}

func printQueuePage(w io.Writer, p wire.QueuePage, page int) {
	if len(p.Messages) == 0 {
		fmt.Fprintln(w, "No queued messages.")
		return
	}
	fmt.Fprintf(w, "%-12s %-11s %-8s %-22s %-3s %s\n", "ID", "STATUS", "PRIORITY", "TO", "TRY", "MESSAGE")
	for _, m := range p.Messages {
		fmt.Fprintf(w, "%-12s %s %-8s %-22s %-3d %s\n",
			clip(m.ID, 12), colorPadded(string(m.Status), 11, queueBand(m.Status)),
			m.Priority, wa.DisplayNumber(m.To), m.Attempts, clip(oneLine(m.Message), 40))
		if m.Error != "" {
			fmt.Fprintf(w, "%12s %s\n", "", bad(m.Error))
		}
	}
	pages := p.TotalPages
	if pages < 1 {
		pages = 1
	}
	fmt.Fprintf(w, "\nPage %d of %d, %d total\n", page, pages, p.Total)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
