package ui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	GoodColor         tcell.Color
	WarnColor         tcell.Color
	BadColor          tcell.Color
	MutedColor        tcell.Color
}

// DefaultTheme returns a dark theme with GitHub-style status colours.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		NumericKeyColor:   tcell.ColorFuchsia,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
		GoodColor:         tcell.NewHexColor(0x238636),
		WarnColor:         tcell.NewHexColor(0xfb8500),
		BadColor:          tcell.NewHexColor(0xda3633),
		MutedColor:        tcell.ColorGray,
	}
}

// BandColor maps a severity band to its colour.
func (t *Theme) BandColor(b model.Band) tcell.Color {
	switch b {
	case model.BandGood:
		return t.GoodColor
	case model.BandWarn:
		return t.WarnColor
	}
	return t.BadColor
}

// StatusColor colours a session status.
func (t *Theme) StatusColor(s wire.SessionStatus) tcell.Color {
	switch s {
	case wire.StatusReady:
		return t.GoodColor
	case wire.StatusQR, wire.StatusInitializing, wire.StatusAuthenticated:
		return t.WarnColor
	case wire.StatusDisconnected:
		return t.BadColor
	}
	return t.MutedColor
}

// QueueStatusColor colours a queue message status.
func (t *Theme) QueueStatusColor(s wire.QueueMessageStatus) tcell.Color {
	switch s {
	case wire.QueueCompleted:
		return t.GoodColor
	case wire.QueuePending, wire.QueueProcessing:
		return t.WarnColor
	case wire.QueueFailed:
		return t.BadColor
	}
	return t.MutedColor
}

// Tag renders c as a tview colour tag.
func Tag(c tcell.Color) string {
	return "[" + colorName(c) + "]"
}
