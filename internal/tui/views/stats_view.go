package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/poll"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

const (
	barWidth     = 30
	maxEventRows = 5
)

// StatsView shows anti-ban counters, health and guidance for the selected
// session.
type StatsView struct {
	*tview.TextView
	host     Host
	vm       *model.ViewModel
	theme    *ui.Theme
	poller   *poll.Poller
	interval time.Duration
	now      func() time.Time
}

// NewStatsView creates the stats page. It reloads every interval while
// visible.
func NewStatsView(host Host, vm *model.ViewModel, theme *ui.Theme, interval time.Duration) *StatsView {
	return &StatsView{
		TextView: newTextView(theme, " Stats "),
		host:     host,
		vm:       vm,
		theme:    theme,
		poller:   poll.New(host.Logger(), host.Dispatch),
		interval: interval,
		now:      time.Now,
	}
}

// Name implements ui.Component.
func (sv *StatsView) Name() string { return PageStats }

// Hints implements ui.Component.
func (sv *StatsView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Start implements ui.Lifecycle.
func (sv *StatsView) Start() {
	if sv.vm.Selected() == "" {
		return
	}
	sv.poller.Start(sv.host.Context(), poll.Loop{
		Name:      "stats",
		Interval:  sv.interval,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			if err := sv.vm.LoadStats(ctx); err != nil {
				return nil, err
			}
			return sv.Refresh, nil
		},
	})
}

// Stop implements ui.Lifecycle.
func (sv *StatsView) Stop() { sv.poller.Stop() }

// Reload fetches stats now.
func (sv *StatsView) Reload() {
	sv.host.Go("load stats", sv.vm.LoadStats, sv.Refresh)
}

// Refresh implements ui.Component.
func (sv *StatsView) Refresh() {
	sv.Clear()
	id := sv.vm.Selected()
	if id == "" {
		sv.SetTitle(" Stats ")
		_, _ = fmt.Fprint(sv, "\n No session selected.")
		return
	}
	sv.SetTitle(fmt.Sprintf(" Stats: %s ", tview.Escape(id)))

	st, g := sv.vm.Stats()
	if st == nil {
		_, _ = fmt.Fprint(sv, "\n [::d]Loading stats...[-:-:-]")
		return
	}
	_, _ = fmt.Fprint(sv, renderStats(sv.theme, *st, g, sv.now()))
}

func renderStats(theme *ui.Theme, st wire.SessionStats, g *wire.UserGuidance, now time.Time) string {
	var sb strings.Builder
	section := func(title string) {
		fmt.Fprintf(&sb, "\n [%s::b]%s[-:-:-]\n", colorTag(theme.TitleColor), title)
	}

	score := model.StatsHealthScore(st)
	band := model.HealthBand(score)
	risk := "low"
	if h := st.SessionHealth; h != nil && h.RiskLevel != "" {
		risk = h.RiskLevel
	}
	section("Health")
	fmt.Fprintf(&sb, "  Score   %s%d/100 (%s)[-]   risk %s\n",
		ui.Tag(theme.BandColor(band)), score, band, strings.ToUpper(risk))
	if h := st.SessionHealth; h != nil {
		fmt.Fprintf(&sb, "  Status  %s   warnings %d\n", tview.Escape(h.Status), h.WarningCount)
		if h.BanDetected {
			fmt.Fprintf(&sb, "  %sBan detected[-]\n", ui.Tag(theme.BadColor))
		}
		if h.AutoStopped {
			fmt.Fprintf(&sb, "  %sSending auto-stopped[-]\n", ui.Tag(theme.WarnColor))
		}
		if h.ProtectionActive != nil {
			fmt.Fprintf(&sb, "  Protection %s\n", onOff(*h.ProtectionActive))
		}
		if h.LastActivity != "" {
			fmt.Fprintf(&sb, "  Active  %s\n", model.TimeAgoString(h.LastActivity, now))
		}
	}

	if ms := st.MessageStats; ms != nil {
		section("Limits")
		fmt.Fprintf(&sb, "  Daily     %s\n", usageBar(theme, model.Usage(ms.MessagesSent, ms.DailyLimit)))
		fmt.Fprintf(&sb, "  Contacts  %s\n", usageBar(theme, model.Usage(ms.NewContacts, ms.ContactLimit)))
		fmt.Fprintf(&sb, "  Received  %d\n", ms.MessagesReceived)
		if ms.LastMessageTime != "" {
			fmt.Fprintf(&sb, "  Last sent %s\n", model.TimeAgoString(ms.LastMessageTime, now))
		}
		if ms.LimitResetTime != "" {
			if t, err := time.Parse(time.RFC3339, ms.LimitResetTime); err == nil {
				fmt.Fprintf(&sb, "  Resets    %s\n", t.Local().Format("Jan 2 15:04"))
			}
		}
	}

	if q := st.QueueStats; q != nil {
		section("Queue")
		fmt.Fprintf(&sb, "  %s%d pending[-]  %s%d processing[-]  %s%d completed[-]  %s%d failed[-]\n",
			ui.Tag(theme.WarnColor), q.Pending,
			ui.Tag(theme.WarnColor), q.Processing,
			ui.Tag(theme.GoodColor), q.Completed,
			ui.Tag(theme.BadColor), q.Failed)
	}

	if ab := st.AntiBanStatus; ab != nil {
		section("Anti-ban")
		fmt.Fprintf(&sb, "  %s   warnings %d   score %d\n", onOff(ab.Enabled), ab.WarningsDetected, ab.HealthScore)
	}

	if h := st.SessionHealth; h != nil && len(h.SuspiciousEvents) > 0 {
		section("Suspicious activity")
		events := h.SuspiciousEvents
		if len(events) > maxEventRows {
			events = events[len(events)-maxEventRows:]
		}
		for _, e := range events {
			fmt.Fprintf(&sb, "  %s%-8s[-] %-10s %s [::d]%s[-:-:-]\n",
				ui.Tag(theme.BandColor(model.GuidanceBand(e.Severity))), tview.Escape(e.Severity),
				tview.Escape(e.Type), tview.Escape(e.Details), model.TimeAgoString(e.Timestamp, now))
		}
	}

	if g != nil {
		section("Guidance")
		fmt.Fprintf(&sb, "  %s[::b]%s[-:-:-]\n", ui.Tag(theme.BandColor(model.GuidanceBand(g.Level))), tview.Escape(g.Title))
		if g.Message != "" {
			fmt.Fprintf(&sb, "  %s\n", tview.Escape(g.Message))
		}
		for _, r := range g.Recommendations {
			fmt.Fprintf(&sb, "   • %s\n", tview.Escape(r))
		}
		if !g.CanSendMessages {
			fmt.Fprintf(&sb, "  %sSending is currently blocked[-]\n", ui.Tag(theme.BadColor))
		}
		if g.NextAction != "" {
			fmt.Fprintf(&sb, "  Next: %s\n", tview.Escape(g.NextAction))
		}
	}
	return sb.String()
}

func usageBar(theme *ui.Theme, u model.UsageLevel) string {
	filled := int(u.Percent * barWidth / 100)
	return fmt.Sprintf("%s%s[-]%s %d/%d (%.0f%%)",
		ui.Tag(theme.BandColor(u.Band)), strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled), u.Used, u.Limit, u.Percent)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func colorTag(c interface{ Hex() int32 }) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
