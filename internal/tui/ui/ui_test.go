package ui

import (
	"strings"
	"testing"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/tui/model"
)

type fakePage struct {
	*tview.Box
	name string
	log  *[]string
}

func (f *fakePage) Name() string      { return f.name }
func (f *fakePage) Hints() []MenuHint { return nil }
func (f *fakePage) Refresh()          { *f.log = append(*f.log, "refresh "+f.name) }
func (f *fakePage) Start()            { *f.log = append(*f.log, "start "+f.name) }
func (f *fakePage) Stop()             { *f.log = append(*f.log, "stop "+f.name) }

func newFakePages(log *[]string, names ...string) *Pages {
	p := NewPages()
	for _, n := range names {
		p.Add(&fakePage{Box: tview.NewBox(), name: n, log: log})
	}
	return p
}

func TestPagesLifecycle(t *testing.T) {
	var log []string
	p := newFakePages(&log, "Sessions", "Queue")
	var stacks [][]string
	p.SetOnChange(func(s []string) { stacks = append(stacks, s) })

	p.Reset("Sessions")
	p.Push("Queue")
	p.Push("Queue")
	if got := p.Pop(); got != "Queue" {
		t.Fatalf("Pop = %q", got)
	}
	if got := p.Pop(); got != "" {
		t.Fatalf("root popped: %q", got)
	}

	want := []string{
		"refresh Sessions", "start Sessions",
		"stop Sessions", "refresh Queue", "start Queue",
		"stop Queue", "refresh Sessions", "start Sessions",
	}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Fatalf("lifecycle = %v\nwant %v", log, want)
	}
	if len(stacks) != 3 {
		t.Fatalf("onChange fired %d times, want 3", len(stacks))
	}
	if p.Current() != "Sessions" || p.Depth() != 1 {
		t.Fatalf("stack = %v", p.Stack())
	}
	if p.Top().Name() != "Sessions" {
		t.Fatalf("Top = %s", p.Top().Name())
	}
}

func TestPagesStopAll(t *testing.T) {
	var log []string
	p := newFakePages(&log, "Sessions")
	p.Reset("Sessions")
	p.StopAll()
	if log[len(log)-1] != "stop Sessions" {
		t.Fatalf("log = %v", log)
	}
}

func TestCrumbs(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	c.Update([]string{"Sessions", "Queue"})
	if got := c.GetText(true); got != " <sessions>   <queue> " {
		t.Fatalf("crumbs = %q", got)
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	hints := make([]MenuHint, 7)
	for i := range hints {
		hints[i] = MenuHint{Key: string(rune('a' + i)), Description: "x"}
	}
	m.Update(hints)
	lines := strings.Split(m.GetText(true), "\n")
	if len(lines) != menuRows {
		t.Fatalf("rows = %d, want %d", len(lines), menuRows)
	}
	if !strings.HasPrefix(lines[0], "<a> x") || !strings.Contains(lines[0], "<f> x") {
		t.Fatalf("first row = %q", lines[0])
	}
}

func TestFlashBar(t *testing.T) {
	fb := NewFlashBar(DefaultTheme())
	fb.Update(&model.FlashMessage{Text: "saved [ok]", Level: model.FlashErr})
	if got := fb.GetText(true); got != " saved [ok]" {
		t.Fatalf("flash = %q", got)
	}
	fb.Update(nil)
	if got := fb.GetText(true); got != "" {
		t.Fatalf("cleared flash = %q", got)
	}
}

func TestHeader(t *testing.T) {
	h := NewHeader(DefaultTheme())
	h.Update(HeaderData{
		Profile:   "default",
		API:       "http://localhost:3001/api",
		LastError: "dial tcp: connection refused",
		LastSeen:  "5m ago",
		Counts:    model.SessionCounts{Total: 3, Ready: 1, Connecting: 1, Disconnected: 1},
	})
	text := h.GetText(true)
	for _, want := range []string{"default", "offline", "connection refused", "(last up 5m ago)", "3 1 ready 1 connecting 1 down", "Selected: -"} {
		if !strings.Contains(text, want) {
			t.Errorf("header missing %q:\n%s", want, text)
		}
	}
}
