package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopTicksSerially(t *testing.T) {
	p := New(nil, nil)

	var running, maxRunning, calls atomic.Int32
	p.Start(context.Background(), Loop{
		Name:     "slow",
		Interval: 5 * time.Millisecond,
		Fn: func(ctx context.Context) (func(), error) {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			calls.Add(1)
			return nil, nil
		},
	})

	time.Sleep(150 * time.Millisecond)
	p.Stop()
	_ = p.Wait()

	if maxRunning.Load() != 1 {
		t.Errorf("max concurrent polls = %d, want 1", maxRunning.Load())
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2", calls.Load())
	}
}

func TestImmediateRunsBeforeFirstTick(t *testing.T) {
	p := New(nil, nil)
	applied := make(chan struct{}, 1)
	p.Start(context.Background(), Loop{
		Name:      "now",
		Interval:  time.Hour,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			return func() { applied <- struct{}{} }, nil
		},
	})
	defer p.Stop()

	select {
	case <-applied:
	case <-time.After(time.Second):
		t.Fatal("immediate poll was not applied")
	}
}

func TestResultAfterTeardownIsDropped(t *testing.T) {
	p := New(nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var applied atomic.Bool
	p.Start(context.Background(), Loop{
		Name:      "late",
		Interval:  time.Hour,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			close(started)
			<-release
			return func() { applied.Store(true) }, nil
		},
	})

	<-started
	p.Stop()
	close(release)
	_ = p.Wait()

	if applied.Load() {
		t.Error("result applied after Stop")
	}
}

func TestQueuedApplyIsDroppedAfterTeardown(t *testing.T) {
	var mu sync.Mutex
	var queued []func()
	p := New(nil, func(f func()) {
		mu.Lock()
		queued = append(queued, f)
		mu.Unlock()
	})

	var applied atomic.Bool
	p.Start(context.Background(), Loop{
		Name:      "queued",
		Interval:  time.Hour,
		Immediate: true,
		Fn: func(ctx context.Context) (func(), error) {
			return func() { applied.Store(true) }, nil
		},
	})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(queued)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("nothing dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	p.Stop()
	mu.Lock()
	for _, f := range queued {
		f()
	}
	mu.Unlock()
	if applied.Load() {
		t.Error("queued apply ran after Stop")
	}
}

func TestErrDoneEndsOnlyThatLoop(t *testing.T) {
	p := New(nil, nil)

	var doneCalls, otherCalls atomic.Int32
	p.Start(context.Background(),
		Loop{
			Name:     "qr",
			Interval: 5 * time.Millisecond,
			Fn: func(ctx context.Context) (func(), error) {
				doneCalls.Add(1)
				return nil, ErrDone
			},
		},
		Loop{
			Name:     "dashboard",
			Interval: 5 * time.Millisecond,
			Fn: func(ctx context.Context) (func(), error) {
				otherCalls.Add(1)
				return nil, nil
			},
		},
	)

	time.Sleep(80 * time.Millisecond)
	p.Stop()
	_ = p.Wait()

	if doneCalls.Load() != 1 {
		t.Errorf("finished loop ran %d times, want 1", doneCalls.Load())
	}
	if otherCalls.Load() < 3 {
		t.Errorf("sibling loop ran %d times, want it to keep going", otherCalls.Load())
	}
}

func TestErrorsAreLoggedNotFatal(t *testing.T) {
	p := New(nil, nil)

	var calls atomic.Int32
	p.Start(context.Background(), Loop{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Fn: func(ctx context.Context) (func(), error) {
			calls.Add(1)
			return nil, errors.New("backend down")
		},
	})

	time.Sleep(60 * time.Millisecond)
	p.Stop()
	if err := p.Wait(); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, failing poll should keep ticking", calls.Load())
	}
}

func TestRestartReplacesLoops(t *testing.T) {
	p := New(nil, nil)

	var first, second atomic.Int32
	p.Start(context.Background(), Loop{Name: "a", Interval: 5 * time.Millisecond, Fn: func(ctx context.Context) (func(), error) {
		first.Add(1)
		return nil, nil
	}})
	time.Sleep(20 * time.Millisecond)
	p.Start(context.Background(), Loop{Name: "b", Interval: 5 * time.Millisecond, Fn: func(ctx context.Context) (func(), error) {
		second.Add(1)
		return nil, nil
	}})
	time.Sleep(10 * time.Millisecond)
	before := first.Load()
	time.Sleep(40 * time.Millisecond)
	p.Stop()
	_ = p.Wait()

	if first.Load() != before {
		t.Errorf("first loop kept running after restart: %d -> %d", before, first.Load())
	}
	if second.Load() == 0 {
		t.Error("second loop never ran")
	}
}
