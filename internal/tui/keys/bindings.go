package keys

import (
	"github.com/gdamore/tcell/v2"

	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
)

// Action is one keybinding.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string // key label shown in the menu, e.g. "Ctrl-R"
	Description string
	Handler     func()
	Hidden      bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings by scope, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddView registers a binding for one page.
func (r *Registry) AddView(view string, a *Action) {
	r.views[view] = append(r.views[view], a)
}

// Hints returns the visible bindings of a page followed by the globals.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, set := range [][]*Action{r.views[view], r.global} {
		for _, a := range set {
			if !a.Hidden {
				hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
			}
		}
	}
	return hints
}

// HandleEvent runs the first matching binding, page bindings first.
// It reports whether one matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, a := range r.views[view] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
