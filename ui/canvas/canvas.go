// Package canvas provides the widget that shows a display surface and feeds
// pointer, wheel and keyboard input to the interaction controller.
package canvas

import (
	"image"
	"log"
	"sync"

	"pattern-projector/internal/control"
	"pattern-projector/pkg/colorutil"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// RenderFunc draws a surface frame.
type RenderFunc func() (*image.RGBA, error)

// SurfaceCanvas displays one surface. Input coordinates are converted to the
// pixel grid of the last drawn frame before they reach the controller.
type SurfaceCanvas struct {
	widget.BaseWidget

	surface control.Surface
	ctrl    *control.Controller
	render  RenderFunc
	raster  *fynecanvas.Raster

	mu       sync.Mutex
	frame    image.Point // size of the last drawn frame
	onResize func(w, h int)
}

var (
	_ desktop.Mouseable = (*SurfaceCanvas)(nil)
	_ desktop.Hoverable = (*SurfaceCanvas)(nil)
	_ desktop.Keyable   = (*SurfaceCanvas)(nil)
	_ fyne.Draggable    = (*SurfaceCanvas)(nil)
	_ fyne.Scrollable   = (*SurfaceCanvas)(nil)
)

// NewSurfaceCanvas creates a canvas for surface, drawing frames with render.
func NewSurfaceCanvas(surface control.Surface, ctrl *control.Controller, render RenderFunc) *SurfaceCanvas {
	c := &SurfaceCanvas{
		surface: surface,
		ctrl:    ctrl,
		render:  render,
	}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.ExtendBaseWidget(c)
	return c
}

// OnResize registers a callback receiving the raster size in pixels before
// each draw.
func (c *SurfaceCanvas) OnResize(fn func(w, h int)) {
	c.mu.Lock()
	c.onResize = fn
	c.mu.Unlock()
}

func (c *SurfaceCanvas) draw(w, h int) image.Image {
	c.mu.Lock()
	onResize := c.onResize
	c.mu.Unlock()
	if onResize != nil {
		onResize(w, h)
	}

	img, err := c.render()
	if err != nil {
		log.Printf("Canvas: render failed: %v", err)
		img = image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] =
				colorutil.Gray.R, colorutil.Gray.G, colorutil.Gray.B, 255
		}
	}

	c.mu.Lock()
	c.frame = img.Rect.Size()
	c.mu.Unlock()
	return img
}

// toFrame maps a widget position to frame pixels.
func (c *SurfaceCanvas) toFrame(pos fyne.Position) (float64, float64) {
	c.mu.Lock()
	frame := c.frame
	c.mu.Unlock()

	size := c.Size()
	if size.Width <= 0 || size.Height <= 0 || frame.X == 0 || frame.Y == 0 {
		return float64(pos.X), float64(pos.Y)
	}
	return float64(pos.X) * float64(frame.X) / float64(size.Width),
		float64(pos.Y) * float64(frame.Y) / float64(size.Height)
}

func (c *SurfaceCanvas) MouseDown(ev *desktop.MouseEvent) {
	if cv := fyne.CurrentApp().Driver().CanvasForObject(c); cv != nil {
		cv.Focus(c)
	}
	x, y := c.toFrame(ev.Position)
	c.ctrl.PointerDown(c.surface, button(ev.Button), x, y)
}

func (c *SurfaceCanvas) MouseUp(ev *desktop.MouseEvent) {
	c.ctrl.PointerUp(button(ev.Button))
}

func (c *SurfaceCanvas) MouseIn(*desktop.MouseEvent) {}

func (c *SurfaceCanvas) MouseMoved(ev *desktop.MouseEvent) {
	x, y := c.toFrame(ev.Position)
	c.ctrl.PointerMove(c.surface, x, y)
}

func (c *SurfaceCanvas) MouseOut() {}

func (c *SurfaceCanvas) Dragged(ev *fyne.DragEvent) {
	x, y := c.toFrame(ev.Position)
	c.ctrl.PointerMove(c.surface, x, y)
}

func (c *SurfaceCanvas) DragEnd() {
	c.ctrl.PointerUp(control.ButtonPrimary)
}

func (c *SurfaceCanvas) Scrolled(ev *fyne.ScrollEvent) {
	c.ctrl.Wheel(float64(ev.Scrolled.DY))
}

func (c *SurfaceCanvas) FocusGained() {}

func (c *SurfaceCanvas) FocusLost() {
	c.ctrl.FocusLost()
}

func (c *SurfaceCanvas) TypedRune(rune) {}

func (c *SurfaceCanvas) TypedKey(*fyne.KeyEvent) {}

func (c *SurfaceCanvas) KeyDown(ev *fyne.KeyEvent) {
	c.ctrl.KeyDown(key(ev.Name))
}

func (c *SurfaceCanvas) KeyUp(ev *fyne.KeyEvent) {
	c.ctrl.KeyUp(key(ev.Name))
}

func (c *SurfaceCanvas) MinSize() fyne.Size {
	return fyne.NewSize(160, 120)
}

func (c *SurfaceCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}

// Refresh redraws the frame.
func (c *SurfaceCanvas) Refresh() {
	c.raster.Refresh()
}

func button(b desktop.MouseButton) control.Button {
	switch b {
	case desktop.MouseButtonPrimary:
		return control.ButtonPrimary
	case desktop.MouseButtonSecondary:
		return control.ButtonSecondary
	default:
		return control.ButtonOther
	}
}

func key(name fyne.KeyName) control.Key {
	switch name {
	case fyne.KeyLeft:
		return control.KeyLeft
	case fyne.KeyRight:
		return control.KeyRight
	case fyne.KeyUp:
		return control.KeyUp
	case fyne.KeyDown:
		return control.KeyDown
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return control.KeyModifier
	default:
		return control.KeyOther
	}
}
