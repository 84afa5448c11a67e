package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/tui/model"
)

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders a flash message on the bar. nil clears it.
func (fb *FlashBar) Update(msg *model.FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case model.FlashWarn:
		color = fb.theme.FlashWarnColor
	case model.FlashErr:
		color = fb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(fb, " %s%s[-]", Tag(color), tview.Escape(msg.Text))
}
