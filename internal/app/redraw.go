package app

import (
	"sync"
	"time"
)

// Redrawer coalesces redraw requests. Any number of Request calls within the
// delay produce a single callback.
type Redrawer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	pending bool
	stopped bool
	timer   *time.Timer
}

// NewRedrawer creates a Redrawer that calls fn on its own goroutine.
func NewRedrawer(delay time.Duration, fn func()) *Redrawer {
	return &Redrawer{delay: delay, fn: fn}
}

// Request marks the surfaces dirty.
func (r *Redrawer) Request() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending || r.stopped {
		return
	}
	r.pending = true
	r.timer = time.AfterFunc(r.delay, r.fire)
}

func (r *Redrawer) fire() {
	r.mu.Lock()
	r.pending = false
	stopped := r.stopped
	r.mu.Unlock()

	if !stopped {
		r.fn()
	}
}

// Stop cancels a pending redraw and ignores later requests.
func (r *Redrawer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
