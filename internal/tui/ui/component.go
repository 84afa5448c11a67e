package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // rendered in the numeric key colour
}

// Component is a page the shell can push onto the stack.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
	// Refresh re-renders from the view model. It runs on the UI goroutine.
	Refresh()
}

// Lifecycle is implemented by components that run background work only
// while they are the visible page.
type Lifecycle interface {
	Start()
	Stop()
}

// Focuser is implemented by components whose focus target is a child
// primitive rather than the component itself.
type Focuser interface {
	FocusTarget() tview.Primitive
}
