// Package scheduler recomputes the color overlay in the background. The
// interactive side polls with Tick; at most one computation is in flight, and
// parameter changes made meanwhile collapse into a single follow-up run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"pattern-projector/internal/effects"
	srcimage "pattern-projector/internal/image"
)

// ErrClosed is returned by operations on a closed scheduler.
var ErrClosed = errors.New("scheduler closed")

// State is the scheduler phase.
type State int

const (
	Idle State = iota
	Recomputing
)

func (s State) String() string {
	if s == Recomputing {
		return "Recomputing"
	}
	return "Idle"
}

// ComputeFunc produces an overlay from a source and color parameters.
type ComputeFunc func(src *image.RGBA, p effects.Params) (*image.RGBA, error)

// Overlay is a published recolored page. BGR holds the same pixels prepared
// for drawing; it is released when the overlay is replaced.
type Overlay struct {
	Image      *image.RGBA
	BGR        *srcimage.SharedMat
	Source     *srcimage.Source // page the overlay was computed from
	Params     effects.Params
	Generation uint64
}

type job struct {
	source *srcimage.Source
	params effects.Params
	gen    uint64
}

type outcome struct {
	image  *image.RGBA
	bgr    *srcimage.SharedMat
	source *srcimage.Source
	params effects.Params
	gen    uint64
	err    error
}

// Scheduler owns the background worker and the published overlay.
type Scheduler struct {
	compute ComputeFunc
	jobs    chan job
	results chan outcome
	wg      sync.WaitGroup

	mu      sync.Mutex
	state   State
	source  *srcimage.Source
	gen     uint64
	target  effects.Params
	current effects.Params
	force   bool
	closed  bool

	overlay atomic.Pointer[Overlay]
	runs    atomic.Int64
}

// New starts a scheduler with its worker goroutine. A nil compute uses effects.Apply.
func New(compute ComputeFunc) *Scheduler {
	if compute == nil {
		compute = effects.Apply
	}
	s := &Scheduler{
		compute: compute,
		jobs:    make(chan job, 1),
		results: make(chan outcome, 1),
		target:  effects.Defaults(),
		current: effects.Defaults(),
	}
	s.wg.Add(1)
	go s.work()
	return s
}

// SetTarget records the latest requested parameters. Only the color fields
// matter; a newer target replaces an older one that was never started.
func (s *Scheduler) SetTarget(p effects.Params) {
	p = p.Normalize()
	s.mu.Lock()
	s.target = p
	s.mu.Unlock()
}

// Target returns the latest requested parameters.
func (s *Scheduler) Target() effects.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetSource replaces the page and forces a recomputation. Results computed
// from an earlier source are discarded.
func (s *Scheduler) SetSource(src *srcimage.Source) {
	s.mu.Lock()
	s.source = src
	s.gen++
	s.force = true
	s.mu.Unlock()
}

// Invalidate forces a recomputation with unchanged parameters.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
}

// State returns the current phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Runs returns how many computations the worker has started.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// Overlay returns the latest published overlay, or nil.
func (s *Scheduler) Overlay() *Overlay {
	return s.overlay.Load()
}

// Tick collects a finished computation and starts the next one if needed.
// It never blocks on the worker and reports whether a new overlay was published.
func (s *Scheduler) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	published := false
	if s.state == Recomputing {
		select {
		case out := <-s.results:
			s.state = Idle
			published = s.finish(out)
		default:
			return false
		}
	}

	if s.source != nil && !s.source.Empty() && (s.force || !s.target.ColorEqual(s.current)) {
		s.force = false
		s.jobs <- job{source: s.source, params: s.target, gen: s.gen}
		s.state = Recomputing
	}
	return published
}

// finish applies an outcome. Callers hold s.mu.
func (s *Scheduler) finish(out outcome) bool {
	if out.gen != s.gen {
		out.bgr.Release()
		return false
	}
	s.current = out.params
	if out.err != nil {
		log.Printf("Scheduler: overlay computation failed: %v", out.err)
		return false
	}
	s.publish(&Overlay{
		Image:      out.image,
		BGR:        out.bgr,
		Source:     out.source,
		Params:     out.params,
		Generation: out.gen,
	})
	return true
}

// publish swaps in ov and drops the scheduler's hold on the previous overlay.
// Readers that acquired its matrix keep it alive until they release it.
func (s *Scheduler) publish(ov *Overlay) {
	if old := s.overlay.Swap(ov); old != nil {
		old.BGR.Release()
	}
}

// Run ticks every interval until ctx is done, calling onPublish after each
// newly published overlay.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, onPublish func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Tick() && onPublish != nil {
				onPublish()
			}
		}
	}
}

// Close stops the worker and waits for it to exit before dropping the overlay.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	select {
	case out := <-s.results:
		out.bgr.Release()
	default:
	}
	s.source = nil
	s.state = Idle
	s.mu.Unlock()

	s.publish(nil)
	return nil
}

func (s *Scheduler) work() {
	defer s.wg.Done()
	for j := range s.jobs {
		s.runs.Add(1)
		out := outcome{source: j.source, params: j.params, gen: j.gen}
		out.image, out.err = s.compute(j.source.Image, j.params)
		if out.err == nil {
			out.bgr, out.err = prepare(out.image)
		}
		s.results <- out
	}
}

// prepare converts a computed overlay for drawing, off the interactive path.
func prepare(img *image.RGBA) (*srcimage.SharedMat, error) {
	m, err := srcimage.ToBGR(img)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare overlay: %w", err)
	}
	return srcimage.NewSharedMat(m), nil
}
