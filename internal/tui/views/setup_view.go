package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/moatasem-alhilali/wadash/internal/poll"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// SetupView walks the selected session through QR pairing.
type SetupView struct {
	*tview.TextView
	host     Host
	vm       *model.ViewModel
	theme    *ui.Theme
	poller   *poll.Poller
	interval time.Duration
}

// NewSetupView creates the pairing page. While visible it polls the
// selected session every interval until it is ready or disconnected.
func NewSetupView(host Host, vm *model.ViewModel, theme *ui.Theme, interval time.Duration) *SetupView {
	tv := newTextView(theme, " Setup ")
	tv.SetWordWrap(false)
	tv.SetTextAlign(tview.AlignCenter)

	return &SetupView{
		TextView: tv,
		host:     host,
		vm:       vm,
		theme:    theme,
		poller:   poll.New(host.Logger(), host.Dispatch),
		interval: interval,
	}
}

// Name implements ui.Component.
func (sv *SetupView) Name() string { return PageSetup }

// Hints implements ui.Component.
func (sv *SetupView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Start implements ui.Lifecycle.
func (sv *SetupView) Start() {
	id := sv.vm.Selected()
	if id == "" {
		return
	}
	sv.poller.Start(sv.host.Context(), poll.Loop{
		Name:      "qr",
		Interval:  sv.interval,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			done, err := sv.vm.PollQR(ctx, id)
			if err != nil {
				return nil, err
			}
			if done {
				return sv.Refresh, poll.ErrDone
			}
			return sv.Refresh, nil
		},
	})
}

// Stop implements ui.Lifecycle.
func (sv *SetupView) Stop() { sv.poller.Stop() }

// Refresh implements ui.Component.
func (sv *SetupView) Refresh() {
	sv.Clear()
	id := sv.vm.Selected()
	s, ok := sv.vm.Session(id)
	if id == "" || !ok {
		sv.SetTitle(" Setup ")
		_, _ = fmt.Fprint(sv, "\n\nNo session selected.\n\nPress [::b]n[-:-:-] to create one.")
		return
	}
	sv.SetTitle(fmt.Sprintf(" Setup: %s ", tview.Escape(id)))
	_, _ = fmt.Fprint(sv, setupText(sv.theme, s, sv.vm.QRCode(id)))
}

// RefreshQR asks the backend for a new code and restarts polling.
func (sv *SetupView) RefreshQR() {
	id := sv.vm.Selected()
	if id == "" {
		return
	}
	sv.host.Go("refresh QR", func(ctx context.Context) error {
		return sv.vm.RefreshQR(ctx, id)
	}, func() {
		sv.vm.Flash.Info("Requested a new QR code")
		sv.Start()
	})
}

func setupText(theme *ui.Theme, s wire.Session, qr string) string {
	state := ui.Tag(theme.StatusColor(s.Status)) + string(s.Status) + "[-]"
	switch s.Status {
	case wire.StatusQR:
		if qr == "" {
			qr = s.QRCode
		}
		if qr == "" {
			return fmt.Sprintf("\n\n%s\n\nWaiting for QR code...", state)
		}
		return fmt.Sprintf("\nScan this QR code with WhatsApp on your phone:\n\n%s\n[::d]Linked devices > Link a device[-:-:-]\n", renderQR(qr))
	case wire.StatusInitializing:
		return fmt.Sprintf("\n\n%s\n\nStarting the browser session...", state)
	case wire.StatusAuthenticated:
		return fmt.Sprintf("\n\n%s\n\nAuthenticated, loading chats...", state)
	case wire.StatusReady:
		who := "unknown account"
		if ci := s.ClientInfo; ci != nil {
			who = strings.TrimSpace(ci.PushName + " " + ci.WID)
		}
		return fmt.Sprintf("\n\n%s\n\nConnected as [::b]%s[-:-:-]", state, tview.Escape(who))
	case wire.StatusDisconnected:
		return fmt.Sprintf("\n\n%s\n\nSession disconnected. Press [::b]r[-:-:-] for a new QR code.", state)
	}
	return fmt.Sprintf("\n\n%s", state)
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters, two modules per cell.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
