package views

import (
	"context"
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/moatasem-alhilali/wadash/internal/poll"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
	"github.com/moatasem-alhilali/wadash/internal/tui/ui"
	"github.com/moatasem-alhilali/wadash/internal/wa"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// queueFilters is the order the status filter cycles through.
var queueFilters = []wire.QueueMessageStatus{
	"",
	wire.QueuePending,
	wire.QueueProcessing,
	wire.QueueCompleted,
	wire.QueueFailed,
}

// QueueView pages through the backend anti-ban queue.
type QueueView struct {
	*tview.Flex
	host     Host
	vm       *model.ViewModel
	theme    *ui.Theme
	poller   *poll.Poller
	interval time.Duration
	summary  *tview.TextView
	table    *tview.Table
	rows     []wire.QueueMessage
	now      func() time.Time
}

// NewQueueView creates the queue page. It reloads every interval while
// visible.
func NewQueueView(host Host, vm *model.ViewModel, theme *ui.Theme, interval time.Duration) *QueueView {
	summary := tview.NewTextView().SetDynamicColors(true)
	summary.SetBackgroundColor(theme.BgColor)
	summary.SetBorderPadding(0, 0, 1, 1)

	table := newTable(theme, " Queue ")

	return &QueueView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(summary, 2, 0, false).
			AddItem(table, 0, 1, true),
		host:     host,
		vm:       vm,
		theme:    theme,
		poller:   poll.New(host.Logger(), host.Dispatch),
		interval: interval,
		summary:  summary,
		table:    table,
		now:      time.Now,
	}
}

// Name implements ui.Component.
func (qv *QueueView) Name() string { return PageQueue }

// Hints implements ui.Component.
func (qv *QueueView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focuser.
func (qv *QueueView) FocusTarget() tview.Primitive { return qv.table }

// Start implements ui.Lifecycle.
func (qv *QueueView) Start() {
	qv.poller.Start(qv.host.Context(), poll.Loop{
		Name:      "queue",
		Interval:  qv.interval,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			if err := qv.vm.LoadQueue(ctx); err != nil {
				return nil, err
			}
			return qv.Refresh, nil
		},
	})
}

// Stop implements ui.Lifecycle.
func (qv *QueueView) Stop() { qv.poller.Stop() }

// Reload fetches the current page now.
func (qv *QueueView) Reload() {
	qv.host.Go("load queue", qv.vm.LoadQueue, qv.Refresh)
}

// Refresh implements ui.Component.
func (qv *QueueView) Refresh() {
	page, pager := qv.vm.QueuePage()
	filter := qv.vm.QueueFilter()
	qv.renderSummary(qv.vm.QueueStatus())

	row, _ := qv.table.GetSelection()
	qv.table.Clear()
	setHeader(qv.table, qv.theme,
		column{" ID", 0},
		column{" TO", 0},
		column{" MESSAGE", 2},
		column{" PRIO", 0},
		column{" STATUS", 0},
		column{" TRIES", 0},
		column{" CREATED", 0},
		column{" ERROR", 1},
	)

	now := qv.now()
	qv.rows = append(qv.rows[:0], page.Messages...)
	for i, m := range qv.rows {
		r := i + 1
		qv.table.SetCell(r, 0, tview.NewTableCell(" "+shortID(m.ID)).SetTextColor(qv.theme.MutedColor))
		qv.table.SetCell(r, 1, textCell(qv.theme, wa.DisplayNumber(m.To)))
		qv.table.SetCell(r, 2, textCell(qv.theme, clip(m.Message, 60)).SetExpansion(2))
		qv.table.SetCell(r, 3, textCell(qv.theme, string(m.Priority)))
		qv.table.SetCell(r, 4, tview.NewTableCell(" "+string(m.Status)).SetTextColor(qv.theme.QueueStatusColor(m.Status)))
		qv.table.SetCell(r, 5, tview.NewTableCell(fmt.Sprintf(" %d", m.Attempts)).SetTextColor(qv.theme.FgColor).SetAlign(tview.AlignRight))
		qv.table.SetCell(r, 6, textCell(qv.theme, model.TimeAgoString(m.CreatedAt, now)))
		qv.table.SetCell(r, 7, tview.NewTableCell(" "+tview.Escape(clip(m.Error, 40))).SetTextColor(qv.theme.BadColor).SetExpansion(1))
	}

	label := "all"
	if filter != "" {
		label = string(filter)
	}
	qv.table.SetTitle(fmt.Sprintf(" Queue: %s | %s | %d total ", label, pager, page.Total))
	if len(qv.rows) > 0 {
		qv.table.Select(min(max(row, 1), len(qv.rows)), 0)
	}
}

func (qv *QueueView) renderSummary(st *wire.QueueStatus) {
	qv.summary.Clear()
	if st == nil {
		_, _ = fmt.Fprint(qv.summary, "[::d]Loading queue...[-:-:-]")
		return
	}
	state := ui.Tag(qv.theme.MutedColor) + "idle[-]"
	switch {
	case st.IsPaused:
		state = ui.Tag(qv.theme.WarnColor) + "paused[-]"
	case st.IsActive:
		state = ui.Tag(qv.theme.GoodColor) + "running[-]"
	}
	_, _ = fmt.Fprintf(qv.summary,
		"[::b]Queue:[-:-:-] %s  total %d  %s%d pending[-]  %s%d processing[-]  %s%d completed[-]  %s%d failed[-]\n"+
			"[::b]Avg:[-:-:-] %.1fs",
		state, st.TotalMessages,
		ui.Tag(qv.theme.WarnColor), st.PendingMessages,
		ui.Tag(qv.theme.WarnColor), st.ProcessingMessages,
		ui.Tag(qv.theme.GoodColor), st.CompletedMessages,
		ui.Tag(qv.theme.BadColor), st.FailedMessages,
		st.AvgProcessingTime)
	if st.EstimatedCompletion != "" {
		if t, err := time.Parse(time.RFC3339, st.EstimatedCompletion); err == nil {
			_, _ = fmt.Fprintf(qv.summary, "  [::b]ETA:[-:-:-] %s", t.Local().Format("15:04:05"))
		}
	}
}

// Selected returns the message under the cursor.
func (qv *QueueView) Selected() (wire.QueueMessage, bool) {
	row, _ := qv.table.GetSelection()
	if row < 1 || row > len(qv.rows) {
		return wire.QueueMessage{}, false
	}
	return qv.rows[row-1], true
}

// NextPage loads the following page.
func (qv *QueueView) NextPage() {
	if qv.vm.NextPage() {
		qv.Reload()
	}
}

// PrevPage loads the preceding page.
func (qv *QueueView) PrevPage() {
	if qv.vm.PrevPage() {
		qv.Reload()
	}
}

// CycleFilter moves to the next status filter.
func (qv *QueueView) CycleFilter() {
	cur := qv.vm.QueueFilter()
	next := queueFilters[0]
	for i, f := range queueFilters {
		if f == cur {
			next = queueFilters[(i+1)%len(queueFilters)]
			break
		}
	}
	qv.vm.SetQueueFilter(next)
	qv.Reload()
}

// SetFilter applies a status filter by name; "" and "all" clear it.
func (qv *QueueView) SetFilter(name string) {
	st := wire.QueueMessageStatus(name)
	if name == "all" {
		st = ""
	}
	for _, f := range queueFilters {
		if f == st {
			qv.vm.SetQueueFilter(st)
			qv.Reload()
			return
		}
	}
	qv.vm.Flash.Warn("Unknown queue status " + name)
}

// TogglePause pauses a running queue and resumes a paused one.
func (qv *QueueView) TogglePause() {
	st := qv.vm.QueueStatus()
	if st != nil && st.IsPaused {
		qv.host.Go("resume queue", qv.vm.ResumeQueue, func() {
			qv.vm.Flash.Info("Queue resumed")
			qv.Reload()
		})
		return
	}
	qv.host.Go("pause queue", qv.vm.PauseQueue, func() {
		qv.vm.Flash.Info("Queue paused")
		qv.Reload()
	})
}

// Retry re-queues the failed message under the cursor.
func (qv *QueueView) Retry() {
	m, ok := qv.Selected()
	if !ok {
		return
	}
	if !model.CanRetry(m.Status) {
		qv.vm.Flash.Warn("Only failed messages can be retried")
		return
	}
	qv.host.Go("retry", func(ctx context.Context) error {
		return qv.vm.Retry(ctx, m.ID)
	}, func() {
		qv.vm.Flash.Info("Message " + shortID(m.ID) + " re-queued")
		qv.Reload()
	})
}

// Cancel removes the pending or failed message under the cursor.
func (qv *QueueView) Cancel() {
	m, ok := qv.Selected()
	if !ok {
		return
	}
	if !model.CanCancel(m.Status) {
		qv.vm.Flash.Warn("Only pending or failed messages can be cancelled")
		return
	}
	qv.host.Go("cancel", func(ctx context.Context) error {
		return qv.vm.Cancel(ctx, m.ID)
	}, func() {
		qv.vm.Flash.Info("Message " + shortID(m.ID) + " cancelled")
		qv.Reload()
	})
}
