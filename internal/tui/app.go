// Package tui is the terminal dashboard.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/poll"
	"github.com/moatasem-alhilali/wadash/internal/tui/keys"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/tui/views"
	"github.com/moatasem-alhilali/wadash/internal/wa"
)

const (
	headerHeight = 6
	promptHeight = 3
)

// Options configures the TUI shell.
type Options struct {
	Profile string
	APIURL  string
	Poll    config.Poll
	Bus     *bus.Bus
	Logger  *zap.Logger
	// LastConnected reports the last successful socket connect from the
	// cache. Optional.
	LastConnected func() (time.Time, error)
}

type filterable interface {
	SetFilter(filter string)
}

// App is the main TUI application shell.
type App struct {
	app    *tview.Application
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	vm     *model.ViewModel
	bus    *bus.Bus
	opts   Options

	theme    *ui.Theme
	registry *keys.Registry
	pages    *ui.Pages
	header   *ui.Header
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flash    *ui.FlashBar
	prompt   *ui.Prompt
	status   *views.StatusBar
	root     *tview.Flex
	chrome   *poll.Poller

	promptActive bool

	sessions *views.SessionsView
	setup    *views.SetupView
	messages *views.MessagesView
	queue    *views.QueueView
	stats    *views.StatsView
	search   *views.SearchView
	help     *views.HelpView
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		ctx:      ctx,
		cancel:   cancel,
		logger:   opts.Logger.Named("tui"),
		vm:       vm,
		bus:      opts.Bus,
		opts:     opts,
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		header:   ui.NewHeader(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		status:   views.NewStatusBar(theme),
	}
	a.chrome = poll.New(a.logger, a.Dispatch)

	a.sessions = views.NewSessionsView(a, vm, theme, opts.Poll.Dashboard.Duration)
	a.setup = views.NewSetupView(a, vm, theme, opts.Poll.QR.Duration)
	a.messages = views.NewMessagesView(a, vm, theme)
	a.queue = views.NewQueueView(a, vm, theme, opts.Poll.Queue.Duration)
	a.stats = views.NewStatsView(a, vm, theme, opts.Poll.Stats.Duration)
	a.search = views.NewSearchView(a, vm, theme)
	a.help = views.NewHelpView(theme, a.helpSections)
	a.search.SetOnOpen(func(peer string) {
		a.Navigate(views.PageMessages)
		a.messages.OpenPeer(peer)
	})

	for _, c := range []ui.Component{a.sessions, a.setup, a.messages, a.queue, a.stats, a.search, a.help} {
		a.pages.Add(c)
	}

	a.setupBindings()
	a.setupPrompt()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	r := a.registry
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: ':', Description: "Command", Handler: func() { a.activatePrompt(ui.PromptCommand) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: '/', Description: "Filter", Handler: func() { a.activatePrompt(ui.PromptFilter) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Handler: func() { a.Navigate(views.PageHelp) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyF2, Description: "Sessions", Handler: func() { a.goTo(views.PageSessions) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyF3, Description: "Messages", Handler: func() { a.goTo(views.PageMessages) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyF4, Description: "Queue", Handler: func() { a.goTo(views.PageQueue) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyF5, Description: "Stats", Handler: func() { a.goTo(views.PageStats) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyCtrlR, Label: "Ctrl-R", Description: "Reload", Handler: a.reload})
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: 'q', Description: "Back/Quit", Handler: func() {
		if a.pages.Depth() > 1 {
			a.Back()
			return
		}
		a.Stop()
	}})
	r.AddGlobal(&keys.Action{Key: tcell.KeyEscape, Hidden: true, Handler: a.Back})

	s := views.PageSessions
	r.AddView(s, &keys.Action{Key: tcell.KeyRune, Rune: 'n', Description: "New session", Handler: a.sessions.Create})
	r.AddView(s, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Description: "Refresh QR", Handler: a.sessions.RefreshQR})
	r.AddView(s, &keys.Action{Key: tcell.KeyRune, Rune: 'l', Description: "Logout", Handler: a.sessions.Logout})
	r.AddView(s, &keys.Action{Key: tcell.KeyRune, Rune: 'D', Description: "Destroy", Handler: a.sessions.Destroy})
	r.AddView(s, &keys.Action{Key: tcell.KeyRune, Rune: 's', Description: "Stats", Handler: func() {
		if id := a.sessions.SelectedID(); id != "" {
			a.vm.Select(id)
			a.Navigate(views.PageStats)
		}
	}})

	r.AddView(views.PageSetup, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Description: "New QR code", Handler: a.setup.RefreshQR})
	r.AddView(views.PageSetup, &keys.Action{Key: tcell.KeyRune, Rune: 'n', Description: "New session", Handler: a.sessions.Create})

	r.AddView(views.PageMessages, &keys.Action{Key: tcell.KeyRune, Rune: 'i', Description: "Compose", Handler: a.messages.FocusComposer})
	r.AddView(views.PageMessages, &keys.Action{Key: tcell.KeyRune, Rune: 'n', Description: "New chat", Handler: a.messages.NewChat})
	r.AddView(views.PageMessages, &keys.Action{Key: tcell.KeyRune, Rune: 'o', Description: "Older history", Handler: a.messages.LoadOlder})

	q := views.PageQueue
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: ']', Description: "Next page", Handler: a.queue.NextPage})
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: '[', Description: "Prev page", Handler: a.queue.PrevPage})
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: 'f', Description: "Cycle status", Handler: a.queue.CycleFilter})
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: 'p', Description: "Pause/Resume", Handler: a.queue.TogglePause})
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Description: "Retry", Handler: a.queue.Retry})
	r.AddView(q, &keys.Action{Key: tcell.KeyRune, Rune: 'c', Description: "Cancel", Handler: a.queue.Cancel})

	r.AddView(views.PageStats, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Description: "Reload", Handler: a.stats.Reload})
}

func (a *App) helpSections() []views.HelpSection {
	out := []views.HelpSection{{Title: "Global", Hints: a.registry.Hints("")}}
	for _, page := range []string{views.PageSessions, views.PageSetup, views.PageMessages, views.PageQueue, views.PageStats} {
		var local []ui.MenuHint
		if c, ok := a.pages.Component(page); ok {
			local = append(local, c.Hints()...)
		}
		all := a.registry.Hints(page)
		local = append(local, all[:len(all)-len(a.registry.Hints(""))]...)
		out = append(out, views.HelpSection{Title: page, Hints: local})
	}
	return out
}

func (a *App) setupPrompt() {
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			if f, ok := a.pages.Top().(filterable); ok {
				f.SetFilter(text)
			}
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	top := tview.NewFlex().
		AddItem(a.header, 0, 2, false).
		AddItem(a.menu, 0, 3, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, headerHeight, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flash, 1, 0, false).
		AddItem(a.status, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateMenu()
	})

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if a.promptActive {
		return ev
	}
	// Text inputs own their keys; they hand focus back on Esc themselves.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return ev
	}

	page := a.pages.Current()
	if page == views.PageSessions && ev.Key() == tcell.KeyRune && ev.Rune() >= '1' && ev.Rune() <= '9' {
		a.sessions.JumpTo(int(ev.Rune() - '0'))
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if c := a.pages.Top(); c != nil {
		hints = append(hints, c.Hints()...)
	}
	a.menu.Update(append(hints, a.registry.Hints(a.pages.Current())...))
}

func (a *App) refreshChrome() {
	conn := a.vm.Connection()
	lastSeen := ""
	if !conn.Connected && a.opts.LastConnected != nil {
		if at, err := a.opts.LastConnected(); err == nil && !at.IsZero() {
			lastSeen = model.TimeAgo(at, time.Now())
		}
	}
	a.header.Update(ui.HeaderData{
		Profile:    a.opts.Profile,
		API:        a.opts.APIURL,
		Connected:  conn.Connected,
		LastError:  conn.LastError,
		LastSeen:   lastSeen,
		Counts:     a.vm.Counts(),
		Selected:   a.vm.Selected(),
		Unexpected: a.vm.Unexpected(),
	})
	a.flash.Update(a.vm.Flash.Message())
	a.status.Update(views.StatusData{
		Connected: conn.Connected,
		SID:       conn.SID,
		Selected:  a.vm.Selected(),
		Messages:  a.vm.MessageCount(),
		Now:       time.Now(),
	})
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.showPrompt()
}

func (a *App) showPrompt() {
	a.promptActive = true
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptActive = false
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusTop()
}

func (a *App) focusTop() {
	c := a.pages.Top()
	if c == nil {
		return
	}
	if f, ok := c.(ui.Focuser); ok {
		a.app.SetFocus(f.FocusTarget())
		return
	}
	a.app.SetFocus(c)
}

// goTo shows page directly above the sessions root.
func (a *App) goTo(page string) {
	a.pages.Reset(views.PageSessions)
	if page != views.PageSessions {
		a.pages.Push(page)
	}
	a.focusTop()
}

func (a *App) reload() {
	c := a.pages.Top()
	if lc, ok := c.(ui.Lifecycle); ok {
		lc.Start()
		return
	}
	if c != nil {
		c.Refresh()
	}
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.Navigate(views.PageHelp)
	case "sessions":
		a.goTo(views.PageSessions)
	case "messages":
		a.goTo(views.PageMessages)
		if cmd.Args != "" {
			a.openPeer(cmd.Args)
		}
	case "queue":
		a.goTo(views.PageQueue)
	case "stats", "setup", "qr":
		if cmd.Args != "" {
			a.vm.Select(cmd.Args)
		}
		page := views.PageStats
		if cmd.Name != "stats" {
			page = views.PageSetup
		}
		a.goTo(page)
	case "create":
		a.sessions.CreateNamed(cmd.Args)
	case "select":
		if cmd.Args == "" {
			a.vm.Flash.Warn("usage: select <session>")
			return
		}
		a.vm.Select(cmd.Args)
		a.vm.Flash.Info("Selected " + cmd.Args)
		a.refreshTop()
	case "send":
		to, text, ok := strings.Cut(cmd.Args, " ")
		if !ok || strings.TrimSpace(text) == "" {
			a.vm.Flash.Warn("usage: send <to> <text>")
			return
		}
		var id string
		a.Go("send", func(ctx context.Context) error {
			var err error
			id, err = a.vm.Send(ctx, to, strings.TrimSpace(text))
			return err
		}, func() {
			a.vm.Flash.Info("Sent " + id)
			a.refreshTop()
		})
	case "search":
		a.goTo(views.PageSearch)
		if cmd.Args != "" {
			a.search.Query(cmd.Args)
		}
	case "status":
		a.goTo(views.PageQueue)
		a.queue.SetFilter(cmd.Args)
	case "logout":
		id := cmd.Args
		if id == "" {
			id = a.vm.Selected()
		}
		if id == "" {
			a.vm.Flash.Warn(model.ErrNoSession.Error())
			return
		}
		a.Go("logout", func(ctx context.Context) error {
			return a.vm.Logout(ctx, id)
		}, func() { a.vm.Flash.Info("Session " + id + " logged out") })
	case "destroy":
		id := cmd.Args
		if id == "" {
			id = a.vm.Selected()
		}
		a.sessions.DestroyID(id)
	case "refresh":
		a.reload()
	default:
		a.vm.Flash.Warn("Unknown command: " + cmd.Name)
	}
}

func (a *App) openPeer(to string) {
	jid, err := wa.NormalizeRecipient(to)
	if err != nil {
		a.vm.Flash.Err(err.Error())
		return
	}
	a.messages.OpenPeer(jid)
}

func (a *App) refreshTop() {
	if c := a.pages.Top(); c != nil {
		c.Refresh()
	}
	a.refreshChrome()
}

// watch redraws the visible page when the synchronizer publishes. Bursts
// are coalesced into one redraw.
func (a *App) watch() {
	if a.bus == nil {
		return
	}
	ch, unsub := a.bus.Subscribe("", 256)
	go func() {
		defer unsub()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ch:
			}
		drain:
			for {
				select {
				case <-ch:
				default:
					break drain
				}
			}
			a.Dispatch(a.refreshTop)
		}
	}()
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	a.pages.Reset(views.PageSessions)
	a.focusTop()
	a.refreshChrome()
	a.watch()
	a.chrome.Start(a.ctx, poll.Loop{
		Name:     "chrome",
		Interval: time.Second,
		Fn: func(context.Context) (func(), error) {
			return a.refreshChrome, nil
		},
	})
	defer a.shutdown()
	return a.app.Run()
}

func (a *App) shutdown() {
	a.cancel()
	a.chrome.Stop()
	a.pages.StopAll()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Context implements views.Host.
func (a *App) Context() context.Context { return a.ctx }

// Logger implements views.Host.
func (a *App) Logger() *zap.Logger { return a.logger }

// Dispatch implements views.Host.
func (a *App) Dispatch(fn func()) {
	if a.ctx.Err() != nil {
		return
	}
	a.app.QueueUpdateDraw(fn)
}

// Go implements views.Host.
func (a *App) Go(label string, work func(ctx context.Context) error, then func()) {
	go func() {
		err := work(a.ctx)
		if err != nil && a.ctx.Err() == nil {
			a.logger.Warn("action failed", zap.String("action", label), zap.Error(err))
		}
		a.Dispatch(func() {
			if err != nil {
				a.vm.Flash.Err(label + ": " + err.Error())
			} else if then != nil {
				then()
			}
			a.refreshChrome()
		})
	}()
}

// Navigate implements views.Host.
func (a *App) Navigate(page string) {
	a.pages.Push(page)
	a.focusTop()
}

// Back implements views.Host.
func (a *App) Back() {
	a.pages.Pop()
	a.focusTop()
}

// Focus implements views.Host.
func (a *App) Focus(p tview.Primitive) {
	a.app.SetFocus(p)
}

// Ask implements views.Host.
func (a *App) Ask(title, initial string, fn func(text string)) {
	a.prompt.Ask(title, initial, fn)
	a.showPrompt()
}
