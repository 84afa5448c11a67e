// Package poll runs the periodic refresh loops behind dashboard pages.
//
// Each loop ticks serially: a slow poll delays the next tick instead of
// overlapping it. Results are handed to a dispatcher (the UI thread) and are
// dropped if the loops were stopped or restarted in the meantime.
package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDone ends the loop that returned it without affecting the others.
var ErrDone = errors.New("poll done")

// Func performs one poll. The returned apply, if any, runs on the dispatcher
// unless the loops were torn down first.
type Func func(ctx context.Context) (apply func(), err error)

// Loop is one periodic poll.
type Loop struct {
	Name      string
	Interval  time.Duration
	Immediate bool
	Fn        Func
}

// Poller owns a group of loops for one page.
type Poller struct {
	logger   *zap.Logger
	dispatch func(func())

	epoch atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a poller. dispatch runs apply closures, typically on the UI
// goroutine; nil runs them inline.
func New(logger *zap.Logger, dispatch func(func())) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Poller{logger: logger.Named("poll"), dispatch: dispatch}
}

// Start tears down any running loops and starts loops under ctx.
func (p *Poller) Start(ctx context.Context, loops ...Loop) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	epoch := p.epoch.Add(1)
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		g.Go(func() error { return p.run(gctx, epoch, l) })
	}
	p.cancel = cancel
	p.group = g
}

// Stop cancels the running loops. Results still in flight are dropped. Stop
// does not wait, so it is safe to call from the dispatcher.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	p.epoch.Add(1)
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until the loops of the last Start have exited.
func (p *Poller) Wait() error {
	p.mu.Lock()
	g := p.group
	p.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

func (p *Poller) live(epoch uint64) bool {
	return p.epoch.Load() == epoch
}

func (p *Poller) run(ctx context.Context, epoch uint64, l Loop) error {
	if l.Immediate {
		if p.tick(ctx, epoch, l) {
			return nil
		}
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.tick(ctx, epoch, l) {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// tick runs one poll and reports whether the loop should end.
func (p *Poller) tick(ctx context.Context, epoch uint64, l Loop) bool {
	apply, err := l.Fn(ctx)
	if ctx.Err() != nil || !p.live(epoch) {
		return true
	}
	done := errors.Is(err, ErrDone)
	if err != nil && !done {
		p.logger.Warn("poll failed", zap.String("loop", l.Name), zap.Error(err))
	}
	if apply != nil {
		p.dispatch(func() {
			if p.live(epoch) {
				apply()
			}
		})
	}
	return done
}
