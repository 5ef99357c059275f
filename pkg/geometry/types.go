// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Rotate returns the point rotated about the origin by degrees.
// Positive angles turn clockwise on a y-down raster.
func (p Point2D) Rotate(degrees float64) Point2D {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	return Point2D{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// DocPoint is a position in document space: source raster pixels at render DPI.
type DocPoint Point2D

// OutputPoint is a position in output-device space: projector pixels.
type OutputPoint Point2D

// DeviceScale is the number of output-device pixels per document pixel,
// tracked separately per axis because projector DPI need not be square.
type DeviceScale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewDeviceScale derives the scale from an output DPI pair and a render DPI pair.
func NewDeviceScale(outDPIX, outDPIY, renderDPIX, renderDPIY float64) DeviceScale {
	return DeviceScale{X: outDPIX / renderDPIX, Y: outDPIY / renderDPIY}
}

// ToDocument converts an output-space vector into document units.
func (d DeviceScale) ToDocument(p OutputPoint) DocPoint {
	return DocPoint{X: p.X / d.X, Y: p.Y / d.Y}
}

// ToOutput converts a document-space vector into output-device units.
func (d DeviceScale) ToOutput(p DocPoint) OutputPoint {
	return OutputPoint{X: p.X * d.X, Y: p.Y * d.Y}
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenteredRect returns a rectangle of the given size centred in an outer size.
func CenteredRect(outer, inner Size) Rect {
	return Rect{
		X:      (outer.Width - inner.Width) / 2,
		Y:      (outer.Height - inner.Height) / 2,
		Width:  inner.Width,
		Height: inner.Height,
	}
}

// Pixels returns the smallest pixel rectangle covering r.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// ToMatrix returns the transform as a [2][3]float64 array.
func (t AffineTransform) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Center returns the centre of a rectangle of this size anchored at the origin.
func (s Size) Center() Point2D {
	return Point2D{X: s.Width / 2, Y: s.Height / 2}
}
