// Package app holds the projection pipeline state shared by the preview and
// projector windows, its events, and its background helpers.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"pattern-projector/internal/config"
	"pattern-projector/internal/effects"
	srcimage "pattern-projector/internal/image"
	"pattern-projector/internal/placement"
	"pattern-projector/internal/raster"
	"pattern-projector/internal/scheduler"
	"pattern-projector/internal/surface"
	"pattern-projector/pkg/colorutil"
	"pattern-projector/pkg/geometry"
)

// EventType identifies different application events.
type EventType int

const (
	EventDocumentOpened EventType = iota
	EventPageLoaded
	EventTransformChanged
	EventEffectsChanged
	EventOverlayPublished
	EventRedraw
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Opener opens a document for rasterization.
type Opener func(path string) (raster.Rasterizer, error)

// OpenFiles is the default Opener, reading raster image files.
func OpenFiles(path string) (raster.Rasterizer, error) {
	return raster.Open(path)
}

// State is the pipeline context: the open document and page, the placement,
// the effect targets, and the recompute scheduler. It is created at startup,
// gets a new source on every page load, and is torn down by Close.
type State struct {
	mu sync.RWMutex

	cfg    config.Config
	opener Opener

	// Document
	docPath string
	doc     raster.Rasterizer
	page    int
	source  *srcimage.Source
	pageBGR *srcimage.SharedMat // source prepared for drawing

	// Placement
	transform placement.Transform
	preview   geometry.Size

	// Effect targets, including the draw-time fields
	params effects.Params

	sched  *scheduler.Scheduler
	redraw *Redrawer

	cancel context.CancelFunc
	done   chan struct{}

	listeners map[EventType][]EventListener
}

// NewState creates a pipeline context. The scheduler worker starts now; call
// Start to begin polling it and Close to stop it.
func NewState(cfg config.Config) *State {
	s := &State{
		cfg:       cfg,
		opener:    OpenFiles,
		transform: placement.Transform{Scale: 1},
		params:    effects.Defaults(),
		sched:     scheduler.New(nil),
		listeners: make(map[EventType][]EventListener),
	}
	s.redraw = NewRedrawer(cfg.RedrawDelay, func() { s.Emit(EventRedraw, nil) })
	return s
}

// SetOpener replaces the document opener.
func (s *State) SetOpener(fn Opener) {
	s.mu.Lock()
	s.opener = fn
	s.mu.Unlock()
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Start polls the scheduler until ctx is cancelled or Close is called.
func (s *State) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.sched.Run(ctx, s.cfg.TickInterval, func() {
			s.Emit(EventOverlayPublished, nil)
			s.redraw.Request()
		})
	}()
}

// Close stops polling, joins the scheduler worker, and only then releases
// the page and overlay.
func (s *State) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.redraw.Stop()

	err := s.sched.Close()

	s.mu.Lock()
	pageBGR := s.pageBGR
	s.source, s.pageBGR = nil, nil
	s.doc = nil
	s.mu.Unlock()
	pageBGR.Release()

	if errors.Is(err, scheduler.ErrClosed) {
		return nil
	}
	return err
}

// Config returns the configuration the state was created with.
func (s *State) Config() config.Config {
	return s.cfg
}

// Scheduler exposes the recompute scheduler.
func (s *State) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// OpenDocument opens path and loads its first page with a fresh placement.
func (s *State) OpenDocument(path string) error {
	s.mu.RLock()
	opener := s.opener
	s.mu.RUnlock()

	doc, err := opener(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	s.mu.Lock()
	s.docPath = path
	s.doc = doc
	s.page = 0
	s.mu.Unlock()

	if err := s.LoadPage(0, true); err != nil {
		return err
	}
	s.Emit(EventDocumentOpened, path)
	return nil
}

// OpenDocumentAt opens path and goes to page when the document has it,
// staying on the first page otherwise.
func (s *State) OpenDocumentAt(path string, page int) error {
	if err := s.OpenDocument(path); err != nil {
		return err
	}
	if page <= 0 || page >= s.PageCount() {
		return nil
	}
	return s.LoadPage(page, true)
}

// LoadPage rasterizes a page at the render DPI and makes it the source.
// With reset the placement returns to the fit-to-surface default; without it
// the current placement is kept.
func (s *State) LoadPage(page int, reset bool) error {
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()
	if doc == nil {
		return errors.New("no document open")
	}

	dpiX, dpiY := s.cfg.RenderDPIs()
	src, err := doc.RenderPage(page, dpiX, dpiY)
	if err != nil {
		return fmt.Errorf("failed to load page %d: %w", page, err)
	}

	bgr, err := srcimage.ToBGR(src.Image)
	if err != nil {
		return fmt.Errorf("failed to prepare page %d: %w", page, err)
	}

	s.mu.Lock()
	first := s.source == nil
	old := s.pageBGR
	s.page = page
	s.source = src
	s.pageBGR = srcimage.NewSharedMat(bgr)
	if reset || first {
		s.transform = s.frameLocked().Fit(src.Size())
	}
	s.sched.SetSource(src)
	s.mu.Unlock()
	old.Release()

	log.Printf("Loaded page %d (%dx%d at %.0fx%.0f DPI)", page+1, src.Width(), src.Height(), dpiX, dpiY)

	s.Emit(EventPageLoaded, page)
	s.redraw.Request()
	return nil
}

// ReloadPage re-renders the current page, keeping the placement.
func (s *State) ReloadPage() error {
	return s.LoadPage(s.Page(), false)
}

// DocumentPath returns the open document, or "".
func (s *State) DocumentPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docPath
}

// Document returns the open document, or nil.
func (s *State) Document() raster.Rasterizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Page returns the current page index.
func (s *State) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// PageCount returns the number of pages in the open document.
func (s *State) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return 0
	}
	return s.doc.PageCount()
}

// Source returns the current page raster, or nil.
func (s *State) Source() *srcimage.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Frame returns the surface geometry around the placement.
func (s *State) Frame() placement.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameLocked()
}

func (s *State) frameLocked() placement.Frame {
	return placement.Frame{
		Preview: s.preview,
		Output:  s.cfg.OutputSize(),
		Device:  s.cfg.DeviceScale(),
	}
}

// RenderDPI is the horizontal page rasterization resolution.
func (s *State) RenderDPI() float64 {
	x, _ := s.cfg.RenderDPIs()
	return x
}

// Transform returns the current placement.
func (s *State) Transform() placement.Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transform
}

// SetTransform replaces the placement, clamping the scale, and requests a redraw.
func (s *State) SetTransform(t placement.Transform) {
	s.mu.Lock()
	t = t.Normalize()
	t.Scale = s.frameLocked().Clamp(t.Scale)
	s.transform = t
	s.mu.Unlock()

	s.Emit(EventTransformChanged, t)
	s.redraw.Request()
}

// SetPreviewSize records the preview surface size and re-clamps the scale.
func (s *State) SetPreviewSize(w, h float64) {
	s.mu.Lock()
	if s.preview.Width == w && s.preview.Height == h {
		s.mu.Unlock()
		return
	}
	wasEmpty := s.preview.Empty()
	s.preview = geometry.NewSize(w, h)
	if wasEmpty && s.source != nil {
		s.transform = s.frameLocked().Fit(s.source.Size())
	}
	t := s.transform
	s.mu.Unlock()

	s.SetTransform(t)
}

// ResetOffsetRotation returns to the fit-to-surface placement, keeping the mirror.
func (s *State) ResetOffsetRotation() {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return
	}
	t := s.frameLocked().Fit(s.source.Size())
	t.Mirror = s.transform.Mirror
	s.mu.Unlock()

	s.SetTransform(t)
}

// SetMirror flips the page horizontally.
func (s *State) SetMirror(mirror bool) {
	s.mu.Lock()
	s.transform.Mirror = mirror
	t := s.transform
	s.mu.Unlock()

	s.sched.Invalidate()
	s.Emit(EventTransformChanged, t)
	s.redraw.Request()
}

// Effects returns the current effect targets.
func (s *State) Effects() effects.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetHue sets the hue rotation, wrapping into [0,180).
func (s *State) SetHue(h float64) {
	s.updateEffects(func(p *effects.Params) { p.HueOffset = colorutil.WrapHue(h) })
}

// SetSaturation sets the saturation multiplier.
func (s *State) SetSaturation(m float64) {
	s.updateEffects(func(p *effects.Params) { p.Saturation = m })
}

// SetValue sets the value multiplier.
func (s *State) SetValue(m float64) {
	s.updateEffects(func(p *effects.Params) { p.Value = m })
}

// SetLineGrowth sets the number of erosion passes on the projector.
func (s *State) SetLineGrowth(n int) {
	s.updateEffects(func(p *effects.Params) { p.LineGrowth = n })
}

// SetInvert sets inversion on the projector and the preview.
func (s *State) SetInvert(projector, preview bool) {
	s.updateEffects(func(p *effects.Params) {
		p.InvertProjector = projector
		p.InvertPreview = preview
	})
}

// ResetEffects returns hue, saturation and value to neutral.
func (s *State) ResetEffects() {
	s.updateEffects(func(p *effects.Params) {
		d := effects.Defaults()
		p.HueOffset, p.Saturation, p.Value = d.HueOffset, d.Saturation, d.Value
	})
}

func (s *State) updateEffects(fn func(*effects.Params)) {
	s.mu.Lock()
	fn(&s.params)
	s.params = s.params.Normalize()
	p := s.params
	s.mu.Unlock()

	s.sched.SetTarget(p)
	s.Emit(EventEffectsChanged, p)
	s.redraw.Request()
}

// snapshot gathers one consistent surface input. The matrices it hands out
// stay valid until release is called.
func (s *State) snapshot() (in surface.Input, release func()) {
	var held []*srcimage.SharedMat

	s.mu.RLock()
	in = surface.Input{
		Source:    s.source,
		Transform: s.transform,
		Frame:     s.frameLocked(),
		Effects:   s.params,
	}
	if m, ok := s.pageBGR.Acquire(); ok {
		in.SourceBGR = &m
		held = append(held, s.pageBGR)
	}
	s.mu.RUnlock()

	// An overlay computed from another page is never drawn over this one.
	if ov := s.sched.Overlay(); ov != nil && ov.Image != nil && in.Source != nil && ov.Source == in.Source {
		in.Overlay = ov.Image
		if m, ok := ov.BGR.Acquire(); ok {
			in.OverlayBGR = &m
			held = append(held, ov.BGR)
		}
	}

	return in, func() {
		for _, m := range held {
			m.Release()
		}
	}
}

// RenderPreview draws the preview frame at the current preview size.
func (s *State) RenderPreview() (*image.RGBA, error) {
	in, release := s.snapshot()
	defer release()
	return surface.RenderPreview(in)
}

// RenderProjector draws the projector frame at the output size.
func (s *State) RenderProjector() (*image.RGBA, error) {
	in, release := s.snapshot()
	defer release()
	return surface.RenderProjector(in)
}
