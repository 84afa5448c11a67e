package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
)

// StatusBar is the one-line footer.
type StatusBar struct {
	*tview.TextView
	theme *ui.Theme
}

// StatusData is what the footer shows.
type StatusData struct {
	Connected bool
	SID       string
	Selected  string
	Messages  int
	Now       time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// Update renders the footer.
func (sb *StatusBar) Update(d StatusData) {
	sb.Clear()

	link := ui.Tag(sb.theme.BadColor) + "○ offline[-]"
	if d.Connected {
		link = ui.Tag(sb.theme.GoodColor) + "● live[-]"
		if d.SID != "" {
			link += " " + tview.Escape(shortID(d.SID))
		}
	}
	selected := d.Selected
	if selected == "" {
		selected = "no session"
	}
	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-] | %s | %d msgs | %s",
		tview.Escape(selected), link, d.Messages, d.Now.Format("15:04"))
}
