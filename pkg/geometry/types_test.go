package geometry

import (
	"image"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRotate(t *testing.T) {
	tests := []struct {
		deg  float64
		want Point2D
	}{
		{0, Point2D{1, 0}},
		{90, Point2D{0, 1}},
		{180, Point2D{-1, 0}},
		{360, Point2D{1, 0}},
		{-90, Point2D{0, -1}},
	}
	for _, tt := range tests {
		got := Point2D{1, 0}.Rotate(tt.deg)
		if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
			t.Errorf("Rotate(%v) = %+v; want %+v", tt.deg, got, tt.want)
		}
	}
}

func TestDeviceScaleRoundTrip(t *testing.T) {
	d := NewDeviceScale(96, 48, 48, 48)
	if d.X != 2 || d.Y != 1 {
		t.Fatalf("NewDeviceScale = %+v; want {2 1}", d)
	}
	out := d.ToOutput(DocPoint{X: 10, Y: 10})
	if out != (OutputPoint{X: 20, Y: 10}) {
		t.Errorf("ToOutput = %+v", out)
	}
	if back := d.ToDocument(out); back != (DocPoint{X: 10, Y: 10}) {
		t.Errorf("ToDocument = %+v", back)
	}
}

func TestCenteredRect(t *testing.T) {
	r := CenteredRect(NewSize(100, 50), NewSize(40, 10))
	if r != (Rect{X: 30, Y: 20, Width: 40, Height: 10}) {
		t.Errorf("CenteredRect = %+v", r)
	}
}

func TestRectPixels(t *testing.T) {
	tests := []struct {
		r    Rect
		want image.Rectangle
	}{
		{Rect{X: 25, Y: 37.5, Width: 50, Height: 25}, image.Rect(25, 37, 75, 63)},
		{Rect{X: -1.5, Y: 0, Width: 3, Height: 2}, image.Rect(-2, 0, 2, 2)},
		{Rect{X: 4, Y: 4}, image.Rect(4, 4, 4, 4)},
	}
	for _, tt := range tests {
		if got := tt.r.Pixels(); got != tt.want {
			t.Errorf("%+v.Pixels() = %v; want %v", tt.r, got, tt.want)
		}
	}
}

func TestAffineApply(t *testing.T) {
	a := AffineTransform{A: 2, B: 1, TX: 3, C: -1, D: 4, TY: 5}
	if p := a.Apply(Point2D{1, 1}); p != (Point2D{6, 8}) {
		t.Errorf("Apply = %+v", p)
	}
	if m := a.ToMatrix(); m != [2][3]float64{{2, 1, 3}, {-1, 4, 5}} {
		t.Errorf("ToMatrix = %v", m)
	}
}
