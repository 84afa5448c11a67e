package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is how many hints stack in one menu column.
const menuRows = 5

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update lays hints out top-to-bottom in columns of menuRows.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	if len(hints) == 0 {
		return
	}

	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)

	cells := make([]string, len(hints))
	width := 0
	for i, h := range hints {
		cells[i] = fmt.Sprintf("<%s> %s", h.Key, h.Description)
		width = max(width, len(cells[i]))
	}

	rows := min(len(hints), menuRows)
	lines := make([]string, rows)
	for i, h := range hints {
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		pad := strings.Repeat(" ", width-len(cells[i])+2)
		lines[i%rows] += fmt.Sprintf("[%s::b]<%s>[-:-:-] %s%s", kc, h.Key, tview.Escape(h.Description), pad)
	}
	_, _ = fmt.Fprint(m, strings.Join(lines, "\n"))
}
