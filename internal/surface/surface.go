// Package surface composes the frames shown on the preview and the projector.
package surface

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"pattern-projector/internal/effects"
	srcimage "pattern-projector/internal/image"
	"pattern-projector/internal/placement"
	"pattern-projector/pkg/colorutil"
	"pattern-projector/pkg/geometry"

	"github.com/gogpu/gg"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// BoundaryWidth is the outline width of the projection area on the preview.
const BoundaryWidth = 3.0

// UnderlaySaturation fades the page outside the projection area on the preview.
const UnderlaySaturation = 0.2

// Input is one consistent snapshot of everything a surface draws.
type Input struct {
	Source    *srcimage.Source
	Overlay   *image.RGBA // recolored page; nil until the first publish
	Transform placement.Transform
	Frame     placement.Frame
	Effects   effects.Params

	// Optional BGR forms of Source.Image and Overlay. When set they are
	// drawn directly instead of converting the images on every frame.
	SourceBGR  *gocv.Mat
	OverlayBGR *gocv.Mat
}

func (in Input) hasSource() bool {
	return in.Source != nil && !in.Source.Empty()
}

// content is the page to place at full color: the overlay when published,
// else the raw page.
func (in Input) content() (*image.RGBA, *gocv.Mat) {
	if in.Overlay != nil {
		return in.Overlay, in.OverlayBGR
	}
	return in.Source.Image, in.SourceBGR
}

// RenderProjector draws the full-resolution projector frame: the page at
// physical size on white, lines grown, optionally inverted.
func RenderProjector(in Input) (*image.RGBA, error) {
	w, h := pixels(in.Frame.Output)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("projector size %vx%v is empty", in.Frame.Output.Width, in.Frame.Output.Height)
	}
	if !in.hasSource() {
		return Placeholder(w, h), nil
	}

	m := in.Transform.ProjectorMatrix(in.Frame, in.Source.Size())
	img, prepared := in.content()
	mat, err := place(img, prepared, m, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to place projector frame: %w", err)
	}
	defer mat.Close()

	effects.GrowMat(&mat, in.Effects.LineGrowth)
	if in.Effects.InvertProjector {
		effects.InvertMat(&mat)
	}
	return srcimage.FromBGR(mat), nil
}

// RenderPreview draws the operator preview: the page at preview scale, in full
// color inside the projector's field of view and faded outside it, optionally
// inverted, with the field of view marked.
func RenderPreview(in Input) (*image.RGBA, error) {
	w, h := pixels(in.Frame.Preview)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("preview size %vx%v is empty", in.Frame.Preview.Width, in.Frame.Preview.Height)
	}

	rect := in.Frame.ProjectionRect(in.Transform)
	var out *image.RGBA
	if !in.hasSource() {
		out = Placeholder(w, h)
	} else {
		mat, err := in.previewMat(rect, w, h)
		if err != nil {
			return nil, err
		}
		if in.Effects.InvertPreview {
			effects.InvertMat(&mat)
		}
		out = srcimage.FromBGR(mat)
		mat.Close()
	}

	out, err := drawBoundary(out, rect)
	if err != nil {
		return nil, fmt.Errorf("failed to draw projection boundary: %w", err)
	}
	return out, nil
}

// previewMat composes the faded raw page with the full-color content pasted
// over the projection area. The caller closes the result.
func (in Input) previewMat(rect geometry.Rect, w, h int) (gocv.Mat, error) {
	m := in.Transform.PreviewMatrix(in.Frame, in.Source.Size())

	under, err := place(in.Source.Image, in.SourceBGR, m, w, h)
	if err != nil {
		return under, fmt.Errorf("failed to place preview frame: %w", err)
	}

	var top gocv.Mat
	if in.Overlay != nil {
		top, err = place(in.Overlay, in.OverlayBGR, m, w, h)
		if err != nil {
			under.Close()
			return gocv.NewMat(), fmt.Errorf("failed to place preview overlay: %w", err)
		}
	} else {
		top = under.Clone()
	}
	defer top.Close()

	if err := effects.ScaleSaturationMat(&under, UnderlaySaturation); err != nil {
		under.Close()
		return gocv.NewMat(), fmt.Errorf("failed to fade preview: %w", err)
	}
	paste(top, &under, rect.Pixels())
	return under, nil
}

// paste copies the r region of src into dst. Both have the same size.
func paste(src gocv.Mat, dst *gocv.Mat, r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, dst.Cols(), dst.Rows()))
	if r.Empty() {
		return
	}
	from := src.Region(r)
	defer from.Close()
	to := dst.Region(r)
	defer to.Close()
	from.CopyTo(&to)
}

// Placeholder is the neutral frame shown before any page is loaded.
func Placeholder(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(colorutil.Gray), image.Point{}, draw.Src)
	return img
}

// place draws img on a w by h BGR canvas using m, on white. prepared, when
// set, is the BGR form of img. The caller closes the result.
func place(img *image.RGBA, prepared *gocv.Mat, m geometry.AffineTransform, w, h int) (gocv.Mat, error) {
	if prepared != nil && !prepared.Empty() {
		return warp(*prepared, m, w, h, colorutil.White), nil
	}
	src, err := srcimage.ToBGR(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer src.Close()
	return warp(src, m, w, h, colorutil.White), nil
}

func warp(src gocv.Mat, m geometry.AffineTransform, w, h int, border color.RGBA) gocv.Mat {
	affine := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer affine.Close()
	for r, row := range m.ToMatrix() {
		for c, v := range row {
			affine.SetDoubleAt(r, c, v)
		}
	}

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, affine, image.Point{X: w, Y: h},
		gocv.InterpolationLinear, gocv.BorderConstant, border)
	return dst
}

// drawBoundary returns frame with everything outside r shaded and r outlined.
func drawBoundary(frame *image.RGBA, r geometry.Rect) (*image.RGBA, error) {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	dc := gg.NewContextForImage(frame)
	defer dc.Close()

	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetColor(colorutil.BoundaryShade)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	if err := dc.Fill(); err != nil {
		return nil, err
	}

	dc.SetColor(colorutil.Boundary)
	dc.SetLineWidth(BoundaryWidth)
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}

	return srcimage.ToRGBA(dc.Image()), nil
}

func pixels(s geometry.Size) (int, int) {
	w, h := int(math.Round(s.Width)), int(math.Round(s.Height))
	if w < 0 || h < 0 {
		return 0, 0
	}
	return w, h
}
