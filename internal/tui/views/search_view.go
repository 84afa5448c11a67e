package views

import (
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/store"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wa"
)

// SearchView searches the local history cache.
type SearchView struct {
	*tview.Flex
	host    Host
	vm      *model.ViewModel
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	data    []store.SearchResult
	onOpen  func(peer string)
	now     func() time.Time
}

// NewSearchView creates a new search view.
func NewSearchView(host Host, vm *model.ViewModel, theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := newTable(theme, " Results ")

	sv := &SearchView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		host:    host,
		vm:      vm,
		theme:   theme,
		input:   input,
		results: results,
		now:     time.Now,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			sv.Query(input.GetText())
		case tcell.KeyTab, tcell.KeyDown:
			host.Focus(results)
		case tcell.KeyEscape:
			host.Back()
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if peer := sv.peerAt(row); peer != "" && sv.onOpen != nil {
			sv.onOpen(peer)
		}
	})
	return sv
}

// Name implements ui.Component.
func (sv *SearchView) Name() string { return PageSearch }

// Hints implements ui.Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focuser.
func (sv *SearchView) FocusTarget() tview.Primitive { return sv.input }

// SetOnOpen sets the callback run with the peer of a chosen result.
func (sv *SearchView) SetOnOpen(fn func(peer string)) {
	sv.onOpen = fn
}

// Query runs a search and shows the results.
func (sv *SearchView) Query(q string) {
	sv.input.SetText(q)
	results, err := sv.vm.Search(q)
	if err != nil {
		sv.vm.Flash.Err("search: " + err.Error())
		return
	}
	sv.data = results
	sv.Refresh()
	if len(results) > 0 {
		sv.host.Focus(sv.results)
	} else if strings.TrimSpace(q) != "" {
		sv.vm.Flash.Info("No messages match " + q)
	}
}

// Refresh implements ui.Component.
func (sv *SearchView) Refresh() {
	sv.results.Clear()
	setHeader(sv.results, sv.theme, column{" CHAT", 0}, column{" SNIPPET", 1}, column{" TIME", 0})

	now := sv.now()
	for i, r := range sv.data {
		row := i + 1
		who := wa.DisplayNumber(resultPeer(r))
		if r.Message.Outgoing {
			who = "→ " + who
		}
		sv.results.SetCell(row, 0, textCell(sv.theme, who).SetMaxWidth(25))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+highlight(r.Snippet)).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(r.Message.Timestamp, now)).SetTextColor(sv.theme.MutedColor))
	}
	sv.results.SetTitle(" Results ")
	if len(sv.data) > 0 {
		sv.results.Select(1, 0)
	}
}

func (sv *SearchView) peerAt(row int) string {
	if row < 1 || row > len(sv.data) {
		return ""
	}
	return resultPeer(sv.data[row-1])
}

func resultPeer(r store.SearchResult) string {
	if r.Message.Outgoing {
		return r.Message.ToJID
	}
	return r.Message.FromJID
}

// highlight turns the cache's <<match>> markers into underline tags.
func highlight(snippet string) string {
	s := tview.Escape(cleanText(snippet))
	s = strings.ReplaceAll(s, "<<", "[::u]")
	return strings.ReplaceAll(s, ">>", "[::-]")
}
