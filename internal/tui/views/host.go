// Package views holds the dashboard pages.
package views

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
)

// Page names. They double as crumb labels.
const (
	PageSessions = "Sessions"
	PageSetup    = "Setup"
	PageMessages = "Messages"
	PageQueue    = "Queue"
	PageStats    = "Stats"
	PageSearch   = "Search"
	PageHelp     = "Help"
)

// Host is the shell surface views drive.
type Host interface {
	Context() context.Context
	Logger() *zap.Logger
	// Go runs work off the UI goroutine. A failure is flashed prefixed with
	// label; on success then, if set, runs on the UI goroutine.
	Go(label string, work func(ctx context.Context) error, then func())
	// Dispatch runs fn on the UI goroutine and redraws.
	Dispatch(fn func())
	Navigate(page string)
	Back()
	Focus(p tview.Primitive)
	Ask(title, initial string, fn func(text string))
}

func newTable(theme *ui.Theme, title string) *tview.Table {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(title)
	table.SetTitleColor(theme.TitleColor)
	return table
}

type column struct {
	title string
	exp   int
}

func setHeader(table *tview.Table, theme *ui.Theme, cols ...column) {
	for i, c := range cols {
		table.SetCell(0, i, tview.NewTableCell(c.title).
			SetSelectable(false).
			SetTextColor(theme.TableHeaderFg).
			SetBackgroundColor(theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(c.exp))
	}
}

func textCell(theme *ui.Theme, s string) *tview.TableCell {
	return tview.NewTableCell(" " + tview.Escape(cleanText(s))).
		SetTextColor(theme.FgColor)
}

func newTextView(theme *ui.Theme, title string) *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(title)
	tv.SetTitleColor(theme.TitleColor)
	return tv
}

// unixTime reads a backend timestamp, which whatsapp-web.js sends in
// seconds and the cache may hold in milliseconds.
func unixTime(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}

func formatTimestamp(ts int64, now time.Time) string {
	if ts == 0 {
		return ""
	}
	t := unixTime(ts).Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
