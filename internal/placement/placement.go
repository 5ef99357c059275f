// Package placement maps a source page onto the preview and projector
// surfaces: pivot, rotation, scale and mirror, in document and output space.
package placement

import (
	"fmt"
	"math"

	"pattern-projector/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// MinScale keeps the preview scale away from zero.
const MinScale = 1e-3

// Transform places a page. Pivot is the document point shown at the centre of
// every surface; Rotation is in degrees, clockwise on screen; Scale is preview
// pixels per document pixel.
type Transform struct {
	Pivot    geometry.DocPoint `json:"pivot"`
	Rotation float64           `json:"rotation"`
	Scale    float64           `json:"scale"`
	Mirror   bool              `json:"mirror"`
}

// Normalize wraps the rotation into [0,360) and replaces a non-positive scale.
func (t Transform) Normalize() Transform {
	t.Rotation = math.Mod(t.Rotation, 360)
	if t.Rotation < 0 {
		t.Rotation += 360
	}
	if !(t.Scale > 0) || math.IsInf(t.Scale, 0) {
		t.Scale = 1
	}
	return t
}

// Frame is the fixed geometry around a Transform.
type Frame struct {
	Preview geometry.Size        // preview surface, pixels
	Output  geometry.Size        // projector surface, device pixels
	Device  geometry.DeviceScale // device pixels per document pixel
}

// FieldOfView is the projector's visible area in document pixels.
func (f Frame) FieldOfView() geometry.Size {
	return geometry.NewSize(f.Output.Width/f.Device.X, f.Output.Height/f.Device.Y)
}

// MaxScale is the largest preview scale at which the whole projector field
// of view still fits on the preview. It is +Inf until both sizes are known.
func (f Frame) MaxScale() float64 {
	fov := f.FieldOfView()
	if f.Preview.Empty() || fov.Empty() {
		return math.Inf(1)
	}
	return math.Min(f.Preview.Width/fov.Width, f.Preview.Height/fov.Height)
}

// Clamp limits a preview scale to [MinScale, MaxScale].
func (f Frame) Clamp(scale float64) float64 {
	scale = math.Min(scale, f.MaxScale())
	return math.Max(scale, MinScale)
}

// Fit returns the default placement for content: centred, unrotated, scaled
// to fit the preview and clamped.
func (f Frame) Fit(content geometry.Size) Transform {
	scale := 1.0
	if !f.Preview.Empty() && !content.Empty() {
		scale = math.Min(f.Preview.Width/content.Width, f.Preview.Height/content.Height)
	}
	return Transform{
		Pivot: geometry.DocPoint(content.Center()),
		Scale: f.Clamp(scale),
	}
}

// ProjectionRect is the projector field of view drawn on the preview.
func (f Frame) ProjectionRect(t Transform) geometry.Rect {
	fov := f.FieldOfView()
	return geometry.CenteredRect(f.Preview, geometry.NewSize(fov.Width*t.Scale, fov.Height*t.Scale))
}

// PreviewMatrix maps source pixels to preview pixels.
func (t Transform) PreviewMatrix(f Frame, content geometry.Size) geometry.AffineTransform {
	return t.matrix(f.Preview.Center(), t.Scale, t.Scale, content.Width)
}

// ProjectorMatrix maps source pixels to projector pixels. The projector shows
// the page at physical size, so the preview scale is replaced by the device scale.
func (t Transform) ProjectorMatrix(f Frame, content geometry.Size) geometry.AffineTransform {
	return t.matrix(f.Output.Center(), f.Device.X, f.Device.Y, content.Width)
}

// matrix composes T(centre) * K * R * T(-pivot) * M.
func (t Transform) matrix(center geometry.Point2D, kx, ky, contentW float64) geometry.AffineTransform {
	sin, cos := math.Sincos(t.Rotation * math.Pi / 180)

	mirror := affine(1, 0, 0, 0, 1, 0)
	if t.Mirror {
		mirror = affine(-1, 0, contentW-1, 0, 1, 0)
	}

	return compose(
		affine(1, 0, center.X, 0, 1, center.Y),
		affine(kx, 0, 0, 0, ky, 0),
		affine(cos, -sin, 0, sin, cos, 0),
		affine(1, 0, -t.Pivot.X, 0, 1, -t.Pivot.Y),
		mirror,
	)
}

// SurfaceToDocument maps a surface pixel back into the (unmirrored) source.
func SurfaceToDocument(m geometry.AffineTransform, p geometry.Point2D) (geometry.DocPoint, error) {
	var inv mat.Dense
	if err := inv.Inverse(toDense(m)); err != nil {
		return geometry.DocPoint{}, fmt.Errorf("transform is not invertible: %w", err)
	}
	return geometry.DocPoint(fromDense(&inv).Apply(p)), nil
}

// ScreenDeltaToDocument converts a pointer movement on a rotated surface into
// a document-space movement. divisor is the surface's pixels per document pixel.
func ScreenDeltaToDocument(dx, dy, rotation, divisor float64) geometry.Point2D {
	return geometry.NewPoint2D(dx, dy).Rotate(-rotation).Scale(1 / divisor)
}

func affine(a, b, tx, c, d, ty float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		a, b, tx,
		c, d, ty,
		0, 0, 1,
	})
}

func compose(ms ...*mat.Dense) geometry.AffineTransform {
	acc := mat.DenseCopyOf(ms[0])
	for _, m := range ms[1:] {
		next := mat.NewDense(3, 3, nil)
		next.Mul(acc, m)
		acc = next
	}
	return fromDense(acc)
}

func toDense(t geometry.AffineTransform) *mat.Dense {
	return affine(t.A, t.B, t.TX, t.C, t.D, t.TY)
}

func fromDense(m *mat.Dense) geometry.AffineTransform {
	return geometry.AffineTransform{
		A: m.At(0, 0), B: m.At(0, 1), TX: m.At(0, 2),
		C: m.At(1, 0), D: m.At(1, 1), TY: m.At(1, 2),
	}
}
