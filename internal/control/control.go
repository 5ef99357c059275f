// Package control turns pointer, wheel and keyboard input on either display
// surface into placement updates.
package control

import (
	"math"

	"pattern-projector/internal/placement"
	"pattern-projector/pkg/geometry"
)

// Mode is the drag state.
type Mode int

const (
	Idle Mode = iota
	Panning
	Rotating
)

func (m Mode) String() string {
	switch m {
	case Panning:
		return "Panning"
	case Rotating:
		return "Rotating"
	default:
		return "Idle"
	}
}

// Surface identifies where an input event happened.
type Surface int

const (
	Preview Surface = iota
	Projector
)

// Button is a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonOther
)

// Key is a keyboard key the controller reacts to.
type Key int

const (
	KeyOther Key = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyModifier
)

const (
	// SlowFactor scales pan and nudge distances while the modifier is held.
	SlowFactor = 0.1
	// FineRotation is degrees per pointer pixel of vertical drag in slow mode.
	FineRotation = 0.2
	// SnapAngle is the rotation step without the modifier.
	SnapAngle = 45.0
	// SnapThreshold is the vertical drag, in pixels, that triggers a snap step.
	SnapThreshold = 50.0
	// ZoomIn and ZoomOut are the wheel scale factors.
	ZoomIn  = 1.2
	ZoomOut = 0.8
)

// Target owns the placement state the controller edits. SetTransform marks the
// transform dirty and requests a redraw.
type Target interface {
	Transform() placement.Transform
	SetTransform(placement.Transform)
	Frame() placement.Frame
	RenderDPI() float64
}

// Controller is the interaction state machine. It is driven from the UI
// goroutine and is not safe for concurrent use.
type Controller struct {
	target  Target
	nudgeCM float64

	mode   Mode
	slow   bool
	anchor geometry.Point2D
}

// New creates a controller. nudgeCM is the physical arrow-key step.
func New(target Target, nudgeCM float64) *Controller {
	return &Controller{target: target, nudgeCM: nudgeCM}
}

// Mode returns the current drag state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Slow reports whether fine adjustment is active.
func (c *Controller) Slow() bool {
	return c.slow
}

// PointerDown starts a pan (primary) or rotation (secondary) drag.
func (c *Controller) PointerDown(s Surface, b Button, x, y float64) {
	switch b {
	case ButtonPrimary:
		c.mode = Panning
	case ButtonSecondary:
		c.mode = Rotating
	default:
		return
	}
	c.anchor = c.toDocumentUnits(s, x, y)
}

// PointerUp ends any drag.
func (c *Controller) PointerUp(Button) {
	c.mode = Idle
}

// PointerMove updates the transform for the active drag.
func (c *Controller) PointerMove(s Surface, x, y float64) {
	if c.mode == Idle {
		return
	}
	pos := c.toDocumentUnits(s, x, y)
	dx := pos.X - c.anchor.X
	dy := pos.Y - c.anchor.Y
	t := c.target.Transform()

	switch c.mode {
	case Panning:
		c.anchor = pos
		if c.slow {
			dx *= SlowFactor
			dy *= SlowFactor
		}
		d := placement.ScreenDeltaToDocument(dx, dy, t.Rotation, c.divisor(s, t))
		t.Pivot.X -= d.X
		t.Pivot.Y -= d.Y

	case Rotating:
		if c.slow {
			c.anchor = pos
			t.Rotation -= dy * FineRotation
			break
		}
		angle := math.Floor(t.Rotation/SnapAngle) * SnapAngle
		switch {
		case dy > SnapThreshold:
			angle += SnapAngle
			c.anchor = pos
		case dy < -SnapThreshold:
			angle -= SnapAngle
			c.anchor = pos
		}
		t.Rotation = angle
	}

	c.target.SetTransform(t.Normalize())
}

// Wheel zooms the preview. Positive dy zooms in.
func (c *Controller) Wheel(dy float64) {
	if dy == 0 {
		return
	}
	t := c.target.Transform()
	if dy > 0 {
		t.Scale *= ZoomIn
	} else {
		t.Scale *= ZoomOut
	}
	t.Scale = c.target.Frame().Clamp(t.Scale)
	c.target.SetTransform(t)
}

// KeyDown nudges on arrow keys and enables slow mode on the modifier.
func (c *Controller) KeyDown(k Key) {
	var dx, dy float64
	switch k {
	case KeyModifier:
		c.slow = true
		return
	case KeyLeft:
		dx = -1
	case KeyRight:
		dx = 1
	case KeyUp:
		dy = -1
	case KeyDown:
		dy = 1
	default:
		return
	}

	step := c.NudgeStep()
	if c.slow {
		step *= SlowFactor
	}
	t := c.target.Transform()
	d := placement.ScreenDeltaToDocument(dx*step, dy*step, t.Rotation, 1)
	t.Pivot.X -= d.X
	t.Pivot.Y -= d.Y
	c.target.SetTransform(t)
}

// KeyUp leaves slow mode when the modifier is released.
func (c *Controller) KeyUp(k Key) {
	if k == KeyModifier {
		c.slow = false
	}
}

// FocusLost drops transient state so a modifier released elsewhere does not stick.
func (c *Controller) FocusLost() {
	c.slow = false
	c.mode = Idle
}

// NudgeStep is the arrow-key step in document pixels.
func (c *Controller) NudgeStep() float64 {
	return c.nudgeCM / 2.54 * c.target.RenderDPI()
}

// toDocumentUnits brings projector coordinates, which are device pixels, to
// the document pixel grid. Preview coordinates pass through.
func (c *Controller) toDocumentUnits(s Surface, x, y float64) geometry.Point2D {
	if s == Projector {
		return geometry.Point2D(c.target.Frame().Device.ToDocument(geometry.OutputPoint{X: x, Y: y}))
	}
	return geometry.NewPoint2D(x, y)
}

func (c *Controller) divisor(s Surface, t placement.Transform) float64 {
	if s == Projector {
		return 1
	}
	return t.Scale
}
