package views

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/poll"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// SessionsView lists every backend session.
type SessionsView struct {
	*tview.Table
	host     Host
	vm       *model.ViewModel
	theme    *ui.Theme
	poller   *poll.Poller
	interval time.Duration
	filter   string
	rows     []wire.Session
}

// NewSessionsView creates the sessions table. It re-lists sessions over
// REST every interval while visible.
func NewSessionsView(host Host, vm *model.ViewModel, theme *ui.Theme, interval time.Duration) *SessionsView {
	sv := &SessionsView{
		Table:    newTable(theme, " Sessions "),
		host:     host,
		vm:       vm,
		theme:    theme,
		poller:   poll.New(host.Logger(), host.Dispatch),
		interval: interval,
	}
	sv.SetSelectedFunc(func(row, _ int) {
		if id := sv.idAt(row); id != "" {
			sv.open(id)
		}
	})
	return sv
}

// Name implements ui.Component.
func (sv *SessionsView) Name() string { return PageSessions }

// Hints implements ui.Component.
func (sv *SessionsView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Start implements ui.Lifecycle.
func (sv *SessionsView) Start() {
	sv.poller.Start(sv.host.Context(), poll.Loop{
		Name:      "sessions",
		Interval:  sv.interval,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			if err := sv.vm.RefreshSessions(ctx); err != nil {
				return nil, err
			}
			return sv.Refresh, nil
		},
	})
}

// Stop implements ui.Lifecycle.
func (sv *SessionsView) Stop() { sv.poller.Stop() }

// SetFilter narrows the table to ids and accounts containing filter.
func (sv *SessionsView) SetFilter(filter string) {
	sv.filter = filter
	sv.Refresh()
}

// Refresh implements ui.Component.
func (sv *SessionsView) Refresh() {
	sessions := sv.vm.Sessions()
	selected := sv.vm.Selected()
	counts := model.Counts(sessions)

	row, _ := sv.GetSelection()
	sv.Clear()
	setHeader(sv.Table, sv.theme,
		column{" #", 0},
		column{" ID", 1},
		column{" STATUS", 0},
		column{" ACCOUNT", 1},
		column{" NUMBER", 1},
		column{" PLATFORM", 0},
	)

	sv.rows = sv.rows[:0]
	for _, s := range sessions {
		var name, number, platform string
		if s.ClientInfo != nil {
			name, number, platform = s.ClientInfo.PushName, s.ClientInfo.WID, s.ClientInfo.Platform
		}
		if sv.filter != "" && !containsFold(s.ID, sv.filter) && !containsFold(name, sv.filter) && !containsFold(number, sv.filter) {
			continue
		}
		sv.rows = append(sv.rows, s)
		r := len(sv.rows)

		marker := fmt.Sprintf("%d", r)
		if s.ID == selected {
			marker = "*" + marker
		}
		sv.SetCell(r, 0, tview.NewTableCell(" "+marker).SetTextColor(sv.theme.NumericKeyColor))
		sv.SetCell(r, 1, textCell(sv.theme, s.ID).SetExpansion(1))
		sv.SetCell(r, 2, tview.NewTableCell(" "+string(s.Status)).SetTextColor(sv.theme.StatusColor(s.Status)))
		sv.SetCell(r, 3, textCell(sv.theme, name).SetExpansion(1))
		sv.SetCell(r, 4, textCell(sv.theme, number).SetExpansion(1))
		sv.SetCell(r, 5, textCell(sv.theme, platform))
	}

	title := fmt.Sprintf(" Sessions (%d) ready %d | connecting %d | disconnected %d ",
		counts.Total, counts.Ready, counts.Connecting, counts.Disconnected)
	if sv.filter != "" {
		title = fmt.Sprintf(" Sessions (%d/%d) filter: %s ", len(sv.rows), counts.Total, tview.Escape(sv.filter))
	}
	sv.SetTitle(title)

	if len(sv.rows) > 0 {
		sv.Select(min(max(row, 1), len(sv.rows)), 0)
	}
}

// SelectedID returns the id under the cursor.
func (sv *SessionsView) SelectedID() string {
	row, _ := sv.GetSelection()
	return sv.idAt(row)
}

// JumpTo opens the nth visible session (1-based).
func (sv *SessionsView) JumpTo(n int) {
	if id := sv.idAt(n); id != "" {
		sv.Select(n, 0)
		sv.open(id)
	}
}

func (sv *SessionsView) idAt(row int) string {
	if row < 1 || row > len(sv.rows) {
		return ""
	}
	return sv.rows[row-1].ID
}

// open selects a session and shows the page that fits its state.
func (sv *SessionsView) open(id string) {
	sv.vm.Select(id)
	s, _ := sv.vm.Session(id)
	if s.Status == wire.StatusReady {
		sv.host.Navigate(PageStats)
		return
	}
	sv.host.Navigate(PageSetup)
}

// Create asks for a session id and starts the session.
func (sv *SessionsView) Create() {
	sv.host.Ask("New session id (blank to generate)", "", sv.CreateNamed)
}

// CreateNamed starts a session. An empty id gets a generated one.
func (sv *SessionsView) CreateNamed(id string) {
	if id == "" {
		id = "session-" + uuid.NewString()[:8]
	}
	sv.host.Go("create session", func(ctx context.Context) error {
		_, err := sv.vm.CreateSession(ctx, id)
		return err
	}, func() {
		sv.vm.Flash.Info("Session " + id + " created, waiting for QR code")
		sv.host.Navigate(PageSetup)
	})
}

// Logout unlinks the session under the cursor.
func (sv *SessionsView) Logout() {
	id := sv.SelectedID()
	if id == "" {
		return
	}
	sv.host.Go("logout", func(ctx context.Context) error {
		return sv.vm.Logout(ctx, id)
	}, func() {
		sv.vm.Flash.Info("Session " + id + " logged out")
		sv.Refresh()
	})
}

// Destroy deletes the session under the cursor.
func (sv *SessionsView) Destroy() {
	sv.DestroyID(sv.SelectedID())
}

// DestroyID deletes a session after the operator retypes its id.
func (sv *SessionsView) DestroyID(id string) {
	if id == "" {
		return
	}
	sv.host.Ask("Type "+id+" to destroy it", "", func(answer string) {
		if answer != id {
			sv.vm.Flash.Warn("Destroy cancelled")
			return
		}
		sv.host.Go("destroy", func(ctx context.Context) error {
			return sv.vm.Destroy(ctx, id)
		}, func() {
			sv.vm.Flash.Info("Session " + id + " destroyed")
			sv.Refresh()
		})
	})
}

// RefreshQR requests a new QR code for the session under the cursor.
func (sv *SessionsView) RefreshQR() {
	id := sv.SelectedID()
	if id == "" {
		return
	}
	sv.vm.Select(id)
	sv.host.Go("refresh QR", func(ctx context.Context) error {
		return sv.vm.RefreshQR(ctx, id)
	}, func() {
		sv.host.Navigate(PageSetup)
	})
}
