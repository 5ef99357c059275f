package placement

import (
	"math"
	"testing"

	"pattern-projector/pkg/geometry"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nearPoint(a, b geometry.Point2D) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func testFrame() Frame {
	return Frame{
		Preview: geometry.NewSize(800, 600),
		Output:  geometry.NewSize(1920, 1080),
		Device:  geometry.DeviceScale{X: 1, Y: 1},
	}
}

func TestMaxScaleAndClamp(t *testing.T) {
	f := testFrame()
	want := 800.0 / 1920.0
	if got := f.MaxScale(); !near(got, want) {
		t.Fatalf("MaxScale = %v; want %v", got, want)
	}
	if got := f.Clamp(5); !near(got, want) {
		t.Errorf("Clamp(5) = %v; want %v", got, want)
	}
	if got := f.Clamp(0.1); got != 0.1 {
		t.Errorf("Clamp(0.1) = %v", got)
	}
	if got := f.Clamp(0); got != MinScale {
		t.Errorf("Clamp(0) = %v; want MinScale", got)
	}

	f.Preview = geometry.Size{}
	if !math.IsInf(f.MaxScale(), 1) {
		t.Error("MaxScale without a preview size should be unbounded")
	}
}

func TestMaxScaleUsesDeviceScale(t *testing.T) {
	f := testFrame()
	f.Device = geometry.DeviceScale{X: 2, Y: 2}
	// Field of view halves in document pixels, so the preview can zoom twice as far.
	if got, want := f.MaxScale(), 2*800.0/1920.0; !near(got, want) {
		t.Errorf("MaxScale = %v; want %v", got, want)
	}
}

func TestFit(t *testing.T) {
	f := testFrame()
	tr := f.Fit(geometry.NewSize(4000, 3000))
	if !near(tr.Scale, 0.2) {
		t.Errorf("Scale = %v; want 0.2", tr.Scale)
	}
	if tr.Pivot != (geometry.DocPoint{X: 2000, Y: 1500}) || tr.Rotation != 0 || tr.Mirror {
		t.Errorf("Fit = %+v", tr)
	}

	// A small page would fit at 4x but the projector bound wins.
	small := f.Fit(geometry.NewSize(200, 150))
	if !near(small.Scale, f.MaxScale()) {
		t.Errorf("Scale = %v; want clamped %v", small.Scale, f.MaxScale())
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {360, 0}, {405, 45}, {-45, 315}, {-720, 0},
	}
	for _, tt := range tests {
		got := Transform{Rotation: tt.in, Scale: 1}.Normalize().Rotation
		if !near(got, tt.want) {
			t.Errorf("Normalize(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestPivotLandsAtCentre(t *testing.T) {
	f := testFrame()
	content := geometry.NewSize(1000, 500)
	tr := Transform{Pivot: geometry.DocPoint{X: 300, Y: 200}, Rotation: 33, Scale: 0.3}

	pv := tr.PreviewMatrix(f, content).Apply(geometry.Point2D(tr.Pivot))
	if !nearPoint(pv, geometry.NewPoint2D(400, 300)) {
		t.Errorf("preview pivot at %+v", pv)
	}
	pj := tr.ProjectorMatrix(f, content).Apply(geometry.Point2D(tr.Pivot))
	if !nearPoint(pj, geometry.NewPoint2D(960, 540)) {
		t.Errorf("projector pivot at %+v", pj)
	}
}

func TestMirrorTwiceIsIdentity(t *testing.T) {
	f := testFrame()
	content := geometry.NewSize(640, 480)
	tr := Transform{Pivot: geometry.DocPoint{X: 100, Y: 50}, Rotation: 12, Scale: 0.25}
	base := tr.PreviewMatrix(f, content)

	tr.Mirror = !tr.Mirror
	tr.Mirror = !tr.Mirror
	if got := tr.PreviewMatrix(f, content); got != base {
		t.Errorf("double mirror changed matrix: %+v vs %+v", got, base)
	}

	tr.Mirror = true
	m := tr.PreviewMatrix(f, content)
	a := m.Apply(geometry.NewPoint2D(0, 10))
	b := base.Apply(geometry.NewPoint2D(content.Width-1, 10))
	if !nearPoint(a, b) {
		t.Errorf("mirrored left edge %+v should land where right edge was %+v", a, b)
	}
}

func TestRotate360IsIdentity(t *testing.T) {
	f := testFrame()
	content := geometry.NewSize(640, 480)
	tr := Transform{Pivot: geometry.DocPoint{X: 320, Y: 240}, Rotation: 20, Scale: 0.4}
	base := tr.PreviewMatrix(f, content)

	tr.Rotation += 360
	tr = tr.Normalize()
	got := tr.PreviewMatrix(f, content)
	p := geometry.NewPoint2D(17, 99)
	if !nearPoint(got.Apply(p), base.Apply(p)) {
		t.Errorf("rotation by 360 moved %+v to %+v", base.Apply(p), got.Apply(p))
	}
}

func TestSurfaceToDocumentInvertsMatrix(t *testing.T) {
	f := testFrame()
	content := geometry.NewSize(1000, 800)
	tr := Transform{Pivot: geometry.DocPoint{X: 410, Y: 380}, Rotation: 71, Scale: 0.35, Mirror: true}
	m := tr.PreviewMatrix(f, content)

	doc := geometry.NewPoint2D(123, 456)
	back, err := SurfaceToDocument(m, m.Apply(doc))
	if err != nil {
		t.Fatalf("SurfaceToDocument: %v", err)
	}
	if !nearPoint(geometry.Point2D(back), doc) {
		t.Errorf("round trip = %+v; want %+v", back, doc)
	}

	if _, err := SurfaceToDocument(geometry.AffineTransform{}, doc); err == nil {
		t.Error("singular transform should fail")
	}
}

func TestPanningKeepsPointUnderPointer(t *testing.T) {
	f := testFrame()
	content := geometry.NewSize(1000, 800)
	for _, rot := range []float64{0, 90, 37} {
		tr := Transform{Pivot: geometry.DocPoint{X: 500, Y: 400}, Rotation: rot, Scale: 0.3}
		doc := geometry.NewPoint2D(600, 420)
		before := tr.PreviewMatrix(f, content).Apply(doc)

		d := ScreenDeltaToDocument(10, 0, tr.Rotation, tr.Scale)
		tr.Pivot.X -= d.X
		tr.Pivot.Y -= d.Y

		after := tr.PreviewMatrix(f, content).Apply(doc)
		if !nearPoint(after, geometry.NewPoint2D(before.X+10, before.Y)) {
			t.Errorf("rotation %v: point moved from %+v to %+v", rot, before, after)
		}
	}
}

func TestScreenDeltaAtQuarterTurn(t *testing.T) {
	// At 90 degrees a screen-right drag is a document-up movement.
	d := ScreenDeltaToDocument(10, 0, 90, 1)
	if !nearPoint(d, geometry.NewPoint2D(0, -10)) {
		t.Errorf("delta = %+v; want (0,-10)", d)
	}
}

func TestProjectionRect(t *testing.T) {
	f := testFrame()
	r := f.ProjectionRect(Transform{Scale: 0.25})
	if !near(r.Width, 480) || !near(r.Height, 270) || !near(r.X, 160) || !near(r.Y, 165) {
		t.Errorf("ProjectionRect = %+v", r)
	}
}
