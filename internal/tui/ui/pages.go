package ui

import "github.com/rivo/tview"

// Pages is a stack-based page manager wrapping tview.Pages. Components that
// implement Lifecycle are started when they reach the top of the stack and
// stopped when they leave it.
type Pages struct {
	*tview.Pages
	comps    map[string]Component
	stack    []string
	onChange func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
		comps: make(map[string]Component),
	}
}

// Add registers a hidden page under the component's name.
func (p *Pages) Add(c Component) {
	p.comps[c.Name()] = c
	p.AddPage(c.Name(), c, true, false)
}

// Component returns a registered component by name.
func (p *Pages) Component(name string) (Component, bool) {
	c, ok := p.comps[name]
	return c, ok
}

// Top returns the component on top of the stack, or nil.
func (p *Pages) Top() Component {
	return p.comps[p.Current()]
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. Pushing the current page is a no-op.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	if len(p.stack) > 0 {
		p.leave(p.stack[len(p.stack)-1])
	}
	p.stack = append(p.stack, name)
	p.enter(name)
	p.notify()
}

// Pop removes the top page and shows the previous one. The root page is
// never popped. Returns the popped name, or "".
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.leave(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.enter(p.stack[len(p.stack)-1])
	p.notify()
	return top
}

// Current returns the name of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset clears the stack and shows only the given page.
func (p *Pages) Reset(name string) {
	if len(p.stack) > 0 {
		p.leave(p.stack[len(p.stack)-1])
	}
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.enter(name)
	p.notify()
}

// StopAll stops the running top page.
func (p *Pages) StopAll() {
	if len(p.stack) > 0 {
		p.leave(p.Current())
	}
}

func (p *Pages) enter(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
	if c, ok := p.comps[name]; ok {
		c.Refresh()
		if lc, ok := c.(Lifecycle); ok {
			lc.Start()
		}
	}
}

func (p *Pages) leave(name string) {
	p.HidePage(name)
	if lc, ok := p.comps[name].(Lifecycle); ok {
		lc.Stop()
	}
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
