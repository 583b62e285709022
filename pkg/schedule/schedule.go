// Package schedule runs callbacks on cancellable tickers.
//
// Every timer the board uses (refresh, rotation, scroll frames, clock) is a
// Ticker, and tickers that share a lifetime are collected in a Group so one
// Stop tears all of them down.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Func is invoked on every tick with the tick time.
type Func func(ctx context.Context, at time.Time)

// Ticker calls a Func at a fixed interval until stopped or its context ends.
type Ticker struct {
	reset chan time.Duration
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// Every starts a ticker running fn every interval. A non-positive interval
// returns a ticker that is already stopped.
func Every(ctx context.Context, interval time.Duration, fn Func) *Ticker {
	t := &Ticker{
		reset: make(chan time.Duration, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if interval <= 0 || fn == nil {
		t.once.Do(func() { close(t.stop) })
		close(t.done)
		return t
	}
	go t.run(ctx, interval, fn)
	return t
}

func (t *Ticker) run(ctx context.Context, interval time.Duration, fn Func) {
	defer close(t.done)
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case d := <-t.reset:
			tk.Reset(d)
		case at := <-tk.C:
			// stop wins over a tick that raced with it
			select {
			case <-t.stop:
				return
			default:
			}
			fn(ctx, at)
		}
	}
}

// Reset changes the interval. Non-positive intervals are ignored.
func (t *Ticker) Reset(interval time.Duration) {
	if interval <= 0 {
		return
	}
	select {
	case <-t.reset:
	default:
	}
	select {
	case t.reset <- interval:
	default:
	}
}

// Stop cancels the ticker. It is idempotent and does not wait for an
// in-flight callback; use Done for that.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Done is closed once the ticker goroutine has exited.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

// Stopped reports whether Stop was called.
func (t *Ticker) Stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Group owns tickers that are torn down together.
type Group struct {
	mu      sync.Mutex
	tickers []*Ticker
}

// Every starts a ticker and adds it to the group.
func (g *Group) Every(ctx context.Context, interval time.Duration, fn Func) *Ticker {
	t := Every(ctx, interval, fn)
	g.mu.Lock()
	g.tickers = append(g.tickers, t)
	g.mu.Unlock()
	return t
}

// Stop stops every ticker of the group and forgets them.
func (g *Group) Stop() {
	g.mu.Lock()
	tickers := g.tickers
	g.tickers = nil
	g.mu.Unlock()
	for _, t := range tickers {
		t.Stop()
	}
}

// Len returns the number of tickers started since the last Stop.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tickers)
}
