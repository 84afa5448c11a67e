package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
)

// HelpSection is one titled group of key bindings.
type HelpSection struct {
	Title string
	Hints []ui.MenuHint
}

// Commands lists the ':' commands shown on the help page.
var Commands = []ui.MenuHint{
	{Key: ":sessions", Description: "Sessions table"},
	{Key: ":messages [to]", Description: "Contacts and chat"},
	{Key: ":queue", Description: "Message queue"},
	{Key: ":stats [id]", Description: "Anti-ban stats"},
	{Key: ":setup [id]", Description: "QR pairing"},
	{Key: ":create [id]", Description: "Start a session"},
	{Key: ":select <id>", Description: "Target a session"},
	{Key: ":send <to> <text>", Description: "Send from the selected session"},
	{Key: ":search <query>", Description: "Search cached history"},
	{Key: ":status <state|all>", Description: "Filter the queue"},
	{Key: ":logout", Description: "Unlink the selected session"},
	{Key: ":refresh", Description: "Reload the current page"},
	{Key: ":quit", Description: "Quit"},
}

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
	theme    *ui.Theme
	sections func() []HelpSection
}

// NewHelpView creates a help page rendered from sections on every show.
func NewHelpView(theme *ui.Theme, sections func() []HelpSection) *HelpView {
	return &HelpView{
		TextView: newTextView(theme, " Help "),
		theme:    theme,
		sections: sections,
	}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return PageHelp }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Refresh implements ui.Component.
func (hv *HelpView) Refresh() {
	hv.Clear()
	kc := colorTag(hv.theme.MenuKeyColor)

	var sb strings.Builder
	for _, s := range append(hv.sections(), HelpSection{Title: "Commands", Hints: Commands}) {
		if len(s.Hints) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n\n", s.Title)
		for _, h := range s.Hints {
			fmt.Fprintf(&sb, "  [%s]%-22s[-:-:-] %s\n", kc, tview.Escape(h.Key), tview.Escape(h.Description))
		}
	}
	_, _ = fmt.Fprint(hv, sb.String())
	hv.ScrollToBeginning()
}
