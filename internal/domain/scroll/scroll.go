// Package scroll models the continuous wrap-around scroll of a board.
//
// The display draws its content twice, one copy after the other, and moves a
// virtual offset down at a constant speed. When the offset reaches the height
// of one copy it jumps back to 0, which looks seamless because the second copy
// sits exactly where the first one started.
package scroll

import (
	"context"
	"sync"
	"time"

	"github.com/okian/standings/pkg/schedule"
)

// Advance moves offset by speed and wraps to 0 once it reaches
// contentHeight. The result is always in [0, contentHeight) for a positive
// contentHeight.
func Advance(offset, speed, contentHeight float64) float64 {
	if contentHeight <= 0 {
		return 0
	}
	offset += speed
	if offset >= contentHeight || offset < 0 {
		return 0
	}
	return offset
}

// Option applies a configuration option to the Animator.
type Option func(*Animator)

// WithFrameInterval makes the animator step itself every d. With no frame
// interval the owner calls Step.
func WithFrameInterval(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.frame = d
		}
	}
}

// WithFrameListener is called with the new offset after every step.
func WithFrameListener(fn func(offset float64)) Option {
	return func(a *Animator) {
		a.onFrame = fn
	}
}

// Animator holds one scroll animation at a time.
type Animator struct {
	mu      sync.Mutex
	offset  float64
	content float64
	speed   float64
	active  bool
	gen     uint64
	ticker  *schedule.Ticker
	frame   time.Duration
	onFrame func(float64)
}

// New creates an idle Animator.
func New(opts ...Option) *Animator {
	a := &Animator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start cancels any running animation and begins a new one from offset 0.
// It returns false, leaving the animator idle, when the content fits in the
// viewport or speed is not positive.
func (a *Animator) Start(ctx context.Context, contentHeight, viewportHeight, speed float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	if contentHeight <= viewportHeight || speed <= 0 {
		return false
	}
	a.content = contentHeight
	a.speed = speed
	a.active = true
	if a.frame > 0 {
		gen := a.gen
		a.ticker = schedule.Every(ctx, a.frame, func(context.Context, time.Time) {
			a.step(gen)
		})
	}
	return true
}

// Step advances one frame and returns the offset. It is a no-op when idle.
func (a *Animator) Step() float64 {
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	return a.step(gen)
}

func (a *Animator) step(gen uint64) float64 {
	a.mu.Lock()
	if !a.active || gen != a.gen {
		off := a.offset
		a.mu.Unlock()
		return off
	}
	a.offset = Advance(a.offset, a.speed, a.content)
	off, fn := a.offset, a.onFrame
	a.mu.Unlock()

	if fn != nil {
		fn(off)
	}
	return off
}

// Stop cancels the animation and resets the offset.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// cancelLocked invalidates the current handle; frames from it are ignored.
func (a *Animator) cancelLocked() {
	a.gen++
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
	a.active = false
	a.offset = 0
	a.content = 0
	a.speed = 0
}

// Offset returns the current offset.
func (a *Animator) Offset() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

// Active reports whether an animation is running.
func (a *Animator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// ContentHeight returns the height of one copy of the animated content.
func (a *Animator) ContentHeight() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content
}
