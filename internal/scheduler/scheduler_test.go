package scheduler

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"pattern-projector/internal/effects"
	srcimage "pattern-projector/internal/image"
)

// gated returns a compute function that reports each start and then waits
// for a release before echoing its input.
func gated() (ComputeFunc, chan effects.Params, chan struct{}) {
	started := make(chan effects.Params, 16)
	release := make(chan struct{})
	fn := func(src *image.RGBA, p effects.Params) (*image.RGBA, error) {
		started <- p
		<-release
		return src, nil
	}
	return fn, started, release
}

func testSource() *srcimage.Source {
	return srcimage.NewSource(image.NewRGBA(image.Rect(0, 0, 4, 4)), 72, 72)
}

// tickUntilPublished polls Tick the way the UI loop does.
func tickUntilPublished(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Tick() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no overlay published")
}

func receive(t *testing.T, ch chan effects.Params) effects.Params {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("computation did not start")
	}
	return effects.Params{}
}

func TestChangesWhileBusyCoalesce(t *testing.T) {
	fn, started, release := gated()
	s := New(fn)
	defer s.Close()

	s.SetSource(testSource())
	s.Tick()
	receive(t, started)
	if s.State() != Recomputing {
		t.Fatalf("state = %v; want Recomputing", s.State())
	}

	for i := 1; i <= 5; i++ {
		p := effects.Defaults()
		p.HueOffset = float64(i * 10)
		s.SetTarget(p)
		if s.Tick() {
			t.Fatal("published while the worker was busy")
		}
	}

	release <- struct{}{}
	tickUntilPublished(t, s)

	second := receive(t, started)
	if second.HueOffset != 50 {
		t.Errorf("follow-up run used hue %v; want the last target 50", second.HueOffset)
	}

	release <- struct{}{}
	tickUntilPublished(t, s)

	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if got := s.Runs(); got != 2 {
		t.Errorf("Runs = %d; want 2", got)
	}
	if ov := s.Overlay(); ov == nil || ov.Params.HueOffset != 50 {
		t.Errorf("overlay = %+v; want hue 50", ov)
	}
	if s.State() != Idle {
		t.Errorf("state = %v; want Idle", s.State())
	}
}

func TestNoSourceSkipsWork(t *testing.T) {
	s := New(nil)
	defer s.Close()

	p := effects.Defaults()
	p.HueOffset = 30
	s.SetTarget(p)
	for i := 0; i < 5; i++ {
		if s.Tick() {
			t.Fatal("published without a source")
		}
	}
	if s.Runs() != 0 || s.State() != Idle || s.Overlay() != nil {
		t.Errorf("runs=%d state=%v overlay=%v", s.Runs(), s.State(), s.Overlay())
	}
}

func TestStaleSourceResultIsDiscarded(t *testing.T) {
	fn, started, release := gated()
	s := New(fn)
	defer s.Close()

	first, second := testSource(), testSource()
	s.SetSource(first)
	s.Tick()
	receive(t, started)

	s.SetSource(second)
	release <- struct{}{}

	// The first result is stale; the next tick restarts on the new page.
	receiveAfterTicks(t, s, started)
	release <- struct{}{}
	tickUntilPublished(t, s)

	ov := s.Overlay()
	if ov == nil || ov.Image != second.Image {
		t.Fatalf("overlay = %+v; want the second page", ov)
	}
	if ov.Generation != 2 {
		t.Errorf("Generation = %d; want 2", ov.Generation)
	}
}

func receiveAfterTicks(t *testing.T, s *Scheduler, started chan effects.Params) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Tick() {
			t.Fatal("stale result was published")
		}
		select {
		case <-started:
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("no recomputation for the new source")
}

func TestFailedComputationIsNotRetried(t *testing.T) {
	s := New(func(*image.RGBA, effects.Params) (*image.RGBA, error) {
		return nil, errors.New("boom")
	})
	defer s.Close()

	s.SetSource(testSource())
	deadline := time.Now().Add(time.Second)
	for s.Runs() == 0 || s.State() == Recomputing {
		if time.Now().After(deadline) {
			t.Fatal("computation never finished")
		}
		s.Tick()
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if s.Runs() != 1 {
		t.Errorf("Runs = %d; want 1", s.Runs())
	}
	if s.Overlay() != nil {
		t.Error("failed computation published an overlay")
	}
}

func TestInvalidateForcesRun(t *testing.T) {
	fn, started, release := gated()
	s := New(fn)
	defer s.Close()

	s.SetSource(testSource())
	s.Tick()
	receive(t, started)
	release <- struct{}{}
	tickUntilPublished(t, s)

	s.Invalidate()
	s.Tick()
	receive(t, started)
	release <- struct{}{}
	tickUntilPublished(t, s)

	if s.Runs() != 2 {
		t.Errorf("Runs = %d; want 2", s.Runs())
	}
}

func TestRunPublishesWithRealTransform(t *testing.T) {
	s := New(nil)
	defer s.Close()

	published := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, time.Millisecond, func() { published <- struct{}{} })

	p := effects.Defaults()
	p.HueOffset = 90
	s.SetTarget(p)
	s.SetSource(testSource())

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("Run never published")
	}
	if ov := s.Overlay(); ov == nil || ov.Params.HueOffset != 90 {
		t.Errorf("overlay = %+v", ov)
	}
}

func TestCloseJoinsWorker(t *testing.T) {
	fn, started, release := gated()
	s := New(fn)

	s.SetSource(testSource())
	s.Tick()
	receive(t, started)

	done := make(chan error)
	go func() { done <- s.Close() }()

	select {
	case <-done:
		t.Fatal("Close returned while the worker was still computing")
	case <-time.After(20 * time.Millisecond):
	}

	release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Overlay() != nil {
		t.Error("overlay survived Close")
	}
	if s.Tick() {
		t.Error("Tick published after Close")
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v; want ErrClosed", err)
	}
}

func TestReplacedOverlayReleasesMatrix(t *testing.T) {
	fn, started, release := gated()
	s := New(fn)
	defer s.Close()

	page := testSource()
	s.SetSource(page)
	s.Tick()
	receive(t, started)
	release <- struct{}{}
	tickUntilPublished(t, s)

	first := s.Overlay()
	if first == nil || first.Source != page {
		t.Fatalf("overlay = %+v; want one bound to the loaded page", first)
	}
	held, ok := first.BGR.Acquire()
	if !ok || held.Rows() != 4 {
		t.Fatal("published overlay has no drawable matrix")
	}

	s.Invalidate()
	s.Tick()
	receive(t, started)
	release <- struct{}{}
	tickUntilPublished(t, s)

	if _, ok := first.BGR.Acquire(); !ok {
		t.Fatal("matrix closed while a reader still holds it")
	}
	first.BGR.Release()
	first.BGR.Release()
	if _, ok := first.BGR.Acquire(); ok {
		t.Error("replaced overlay kept its matrix after readers released it")
	}
	if s.Overlay() == first {
		t.Error("overlay was not replaced")
	}
}
