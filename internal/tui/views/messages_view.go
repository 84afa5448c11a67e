package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

const olderPage = 50

// MessagesView shows the contacts seen on the socket next to the thread
// with the chosen peer and a composer.
type MessagesView struct {
	*tview.Flex
	host     Host
	vm       *model.ViewModel
	theme    *ui.Theme
	contacts *tview.Table
	thread   *tview.TextView
	composer *tview.InputField
	list     []wire.Contact
	peer     string
	filter   string
	now      func() time.Time
}

// NewMessagesView creates the messages page.
func NewMessagesView(host Host, vm *model.ViewModel, theme *ui.Theme) *MessagesView {
	contacts := newTable(theme, " Contacts ")
	thread := newTextView(theme, " Messages ")

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(thread, 0, 1, false).
		AddItem(composer, 3, 0, false)

	flex := tview.NewFlex().
		AddItem(contacts, 40, 0, true).
		AddItem(right, 0, 1, false)

	mv := &MessagesView{
		Flex:     flex,
		host:     host,
		vm:       vm,
		theme:    theme,
		contacts: contacts,
		thread:   thread,
		composer: composer,
		now:      time.Now,
	}

	contacts.SetSelectionChangedFunc(func(row, _ int) {
		if peer := mv.peerAt(row); peer != "" && peer != mv.peer {
			mv.peer = peer
			mv.renderThread()
		}
	})
	contacts.SetSelectedFunc(func(row, _ int) {
		if peer := mv.peerAt(row); peer != "" {
			mv.OpenPeer(peer)
			mv.FocusComposer()
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			mv.submit()
		case tcell.KeyEscape:
			host.Focus(contacts)
		}
	})
	return mv
}

// Name implements ui.Component.
func (mv *MessagesView) Name() string { return PageMessages }

// Hints implements ui.Component.
func (mv *MessagesView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focuser.
func (mv *MessagesView) FocusTarget() tview.Primitive { return mv.contacts }

// FocusComposer moves keyboard focus into the composer.
func (mv *MessagesView) FocusComposer() { mv.host.Focus(mv.composer) }

// Peer returns the chat id of the open thread.
func (mv *MessagesView) Peer() string { return mv.peer }

// SetFilter narrows the contact list.
func (mv *MessagesView) SetFilter(filter string) {
	mv.filter = filter
	mv.Refresh()
}

// OpenPeer shows the thread with peer, which need not be a known contact.
func (mv *MessagesView) OpenPeer(peer string) {
	mv.peer = peer
	mv.Refresh()
}

// NewChat asks for a recipient and opens its thread.
func (mv *MessagesView) NewChat() {
	mv.host.Ask("Send to (phone number or chat id)", "", func(to string) {
		jid, err := wa.NormalizeRecipient(to)
		if err != nil {
			mv.vm.Flash.Err(err.Error())
			return
		}
		mv.OpenPeer(jid)
		mv.FocusComposer()
	})
}

// Refresh implements ui.Component. Both panes render from one snapshot.
func (mv *MessagesView) Refresh() {
	snap := mv.vm.Snapshot()
	mv.renderContacts(snap.Contacts)
	mv.renderThreadFrom(snap)
}

func (mv *MessagesView) renderContacts(all []wire.Contact) {
	now := mv.now()

	mv.contacts.Clear()
	setHeader(mv.contacts, mv.theme, column{" CONTACT", 1}, column{" SEEN", 0})

	mv.list = mv.list[:0]
	sel := 0
	for _, c := range all {
		label := wa.DisplayNumber(c.Number)
		if mv.filter != "" && !containsFold(label, mv.filter) && !containsFold(c.Name, mv.filter) {
			continue
		}
		mv.list = append(mv.list, c)
		r := len(mv.list)
		if c.Number == mv.peer {
			sel = r
		}
		mv.contacts.SetCell(r, 0, textCell(mv.theme, label).SetExpansion(1))
		mv.contacts.SetCell(r, 1, tview.NewTableCell(" "+model.TimeAgo(unixTime(c.LastSeen), now)).
			SetTextColor(mv.theme.MutedColor).
			SetAlign(tview.AlignRight))
	}

	if mv.filter != "" {
		mv.contacts.SetTitle(fmt.Sprintf(" Contacts (%d/%d) ", len(mv.list), len(all)))
	} else {
		mv.contacts.SetTitle(fmt.Sprintf(" Contacts (%d) ", len(all)))
	}
	if sel > 0 {
		mv.contacts.Select(sel, 0)
	}
}

// LoadOlder pages earlier messages with the open peer in from the history
// cache and scrolls to them.
func (mv *MessagesView) LoadOlder() {
	peer := mv.peer
	if peer == "" {
		mv.vm.Flash.Warn("Pick a contact first")
		return
	}
	var added int
	mv.host.Go("load history", func(context.Context) error {
		n, err := mv.vm.LoadOlder(peer, olderPage)
		added = n
		return err
	}, func() {
		if added == 0 {
			mv.vm.Flash.Info("No older messages in the cache")
			return
		}
		mv.vm.Flash.Info(fmt.Sprintf("Loaded %d older messages", added))
		if mv.peer == peer {
			mv.renderThread()
			mv.thread.ScrollToBeginning()
		}
	})
}

func (mv *MessagesView) renderThread() {
	mv.renderThreadFrom(mv.vm.Snapshot())
}

func (mv *MessagesView) renderThreadFrom(snap mirror.Snapshot) {
	mv.thread.Clear()
	if mv.peer == "" {
		mv.thread.SetTitle(" Messages ")
		_, _ = fmt.Fprint(mv.thread, "\n [::d]Pick a contact, or press n to message a new number.[-:-:-]")
		return
	}

	entries := mv.vm.SnapshotThread(snap, mv.peer)
	mv.thread.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(wa.DisplayNumber(mv.peer)), len(entries)))
	now := mv.now()
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(mv.formatEntry(e, snap.Acks[e.Message.ID], now))
	}
	_, _ = fmt.Fprint(mv.thread, sb.String())
	mv.thread.ScrollToEnd()
}

func (mv *MessagesView) formatEntry(e mirror.Entry, ack wire.MessageAck, now time.Time) string {
	msg := e.Message
	sender := wa.DisplayNumber(msg.From)
	if msg.Author != "" {
		sender = wa.DisplayNumber(msg.Author)
	}
	color := mv.theme.CounterColor
	suffix := ""
	if e.Outgoing {
		sender, color = "You", mv.theme.GoodColor
		suffix = " " + wa.AckMark(ack.Status)
	}

	body := wa.Preview(msg)
	if body == "" {
		body = "[" + wa.MessageKind(msg) + "]"
	}
	return fmt.Sprintf("%s[::b]%s[-:-:-] [::d]%s%s[-:-:-]\n%s\n\n",
		ui.Tag(color), tview.Escape(cleanText(sender)),
		formatTimestamp(msg.Timestamp, now), suffix,
		tview.Escape(cleanText(body)))
}

func (mv *MessagesView) peerAt(row int) string {
	if row < 1 || row > len(mv.list) {
		return ""
	}
	return mv.list[row-1].Number
}

func (mv *MessagesView) submit() {
	text := strings.TrimSpace(mv.composer.GetText())
	if text == "" {
		return
	}
	peer := mv.peer
	if peer == "" {
		mv.vm.Flash.Warn("Pick a contact first, or press n for a new chat")
		return
	}
	mv.composer.SetText("")
	mv.host.Go("send", func(ctx context.Context) error {
		_, err := mv.vm.Send(ctx, peer, text)
		return err
	}, mv.renderThread)
}
