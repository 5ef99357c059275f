package effects

import (
	"fmt"
	"image"

	srcimage "pattern-projector/internal/image"

	"gocv.io/x/gocv"
)

// Grow thickens dark line art by eroding the image with a small round kernel
// iterations times. Zero iterations returns src unchanged.
func Grow(src *image.RGBA, iterations int) (*image.RGBA, error) {
	if iterations <= 0 {
		return src, nil
	}
	mat, err := srcimage.ToBGR(src)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare line growth: %w", err)
	}
	defer mat.Close()

	GrowMat(&mat, iterations)
	return srcimage.FromBGR(mat), nil
}

// GrowMat erodes m in place. Pixels outside the frame count as the maximum
// value, so the image border never turns dark.
func GrowMat(m *gocv.Mat, iterations int) {
	if iterations <= 0 {
		return
	}
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 3, Y: 3})
	defer kernel.Close()

	for i := 0; i < iterations; i++ {
		gocv.Erode(*m, m, kernel)
	}
}

// Invert returns a copy of src with color channels inverted and alpha kept.
func Invert(src *image.RGBA) (*image.RGBA, error) {
	mat, err := srcimage.ToBGR(src)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare inversion: %w", err)
	}
	defer mat.Close()

	InvertMat(&mat)
	out := srcimage.FromBGR(mat)

	in := srcimage.ToRGBA(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = in.Pix[i]
	}
	return out, nil
}

// InvertMat inverts every channel of m in place.
func InvertMat(m *gocv.Mat) {
	gocv.BitwiseNot(*m, m)
}
