package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/tui/model"
)

// HeaderData is what the header shows about the dashboard.
type HeaderData struct {
	Profile   string
	API       string
	Connected bool
	LastError string
	// LastSeen is how long ago the socket was last up, shown while offline.
	LastSeen   string
	Counts     model.SessionCounts
	Selected   string
	Unexpected int
}

// Header displays connection state and session counts.
type Header struct {
	*tview.TextView
	theme *Theme
}

// NewHeader creates a new header panel.
func NewHeader(theme *Theme) *Header {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &Header{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the header.
func (h *Header) Update(d HeaderData) {
	h.Clear()

	label := colorName(h.theme.FgColor)
	val := colorName(h.theme.CounterColor)

	conn := Tag(h.theme.GoodColor) + "● connected[-]"
	if !d.Connected {
		conn = Tag(h.theme.BadColor) + "● offline[-]"
		if d.LastError != "" {
			conn += " " + Tag(h.theme.MutedColor) + tview.Escape(truncate(d.LastError, 40)) + "[-]"
		}
		if d.LastSeen != "" {
			conn += " " + Tag(h.theme.MutedColor) + "(last up " + d.LastSeen + ")[-]"
		}
	}

	selected := d.Selected
	if selected == "" {
		selected = "-"
	}

	lines := []string{
		fmt.Sprintf("[%s::b]Profile:[-:-:-]  [%s]%s[-]", label, val, tview.Escape(d.Profile)),
		fmt.Sprintf("[%s::b]API:[-:-:-]      [%s]%s[-]", label, val, tview.Escape(d.API)),
		fmt.Sprintf("[%s::b]Socket:[-:-:-]   %s", label, conn),
		fmt.Sprintf("[%s::b]Sessions:[-:-:-] [%s]%d[-] %s%d ready[-] %s%d connecting[-] %s%d down[-]",
			label, val, d.Counts.Total,
			Tag(h.theme.GoodColor), d.Counts.Ready,
			Tag(h.theme.WarnColor), d.Counts.Connecting,
			Tag(h.theme.BadColor), d.Counts.Disconnected),
		fmt.Sprintf("[%s::b]Selected:[-:-:-] [%s]%s[-]", label, val, tview.Escape(selected)),
	}
	if d.Unexpected > 0 {
		lines = append(lines, fmt.Sprintf("[%s::b]Odd events:[-:-:-] %s%d[-]", label, Tag(h.theme.WarnColor), d.Unexpected))
	}
	_, _ = fmt.Fprint(h, strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
