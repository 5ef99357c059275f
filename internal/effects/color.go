package effects

import (
	"errors"
	"fmt"
	"image"
	"math"

	srcimage "pattern-projector/internal/image"
	"pattern-projector/pkg/colorutil"

	"gocv.io/x/gocv"
)

// ErrNoSource is returned when there is no image to transform.
var ErrNoSource = errors.New("no source image")

// Apply returns a recolored copy of src: hue rotated by HueOffset, saturation
// and value multiplied and saturated at 255, alpha fully opaque.
func Apply(src *image.RGBA, p Params) (*image.RGBA, error) {
	if src == nil || src.Rect.Empty() {
		return nil, ErrNoSource
	}
	p = p.Normalize()

	if p.ColorNeutral() {
		out := srcimage.Clone(srcimage.ToRGBA(src))
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = 255
		}
		return out, nil
	}

	bgr, err := srcimage.ToBGR(src)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare color transform: %w", err)
	}
	defer bgr.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	buf := hsv.ToBytes()
	adjustHSV(buf, p)

	adjusted, err := gocv.NewMatFromBytes(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild HSV image: %w", err)
	}
	defer adjusted.Close()

	gocv.CvtColor(adjusted, &bgr, gocv.ColorHSVToBGR)
	return srcimage.FromBGR(bgr), nil
}

// adjustHSV rewrites packed 8-bit HSV triples in place.
func adjustHSV(buf []byte, p Params) {
	hueShift := int(math.Round(p.HueOffset)) % colorutil.HueRange

	var satLUT, valLUT [256]uint8
	for i := range satLUT {
		satLUT[i] = colorutil.ClampChannel(float64(i) * p.Saturation)
		valLUT[i] = colorutil.ClampChannel(float64(i) * p.Value)
	}

	for i := 0; i+2 < len(buf); i += 3 {
		h := int(buf[i]) + hueShift
		if h >= colorutil.HueRange {
			h -= colorutil.HueRange
		}
		buf[i] = uint8(h)
		buf[i+1] = satLUT[buf[i+1]]
		buf[i+2] = valLUT[buf[i+2]]
	}
}

// ScaleSaturationMat multiplies the saturation of a BGR matrix in place.
func ScaleSaturationMat(m *gocv.Mat, factor float64) error {
	if m.Empty() {
		return nil
	}
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*m, &hsv, gocv.ColorBGRToHSV)

	buf := hsv.ToBytes()
	adjustHSV(buf, Params{Saturation: factor, Value: 1})

	adjusted, err := gocv.NewMatFromBytes(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return fmt.Errorf("failed to rebuild HSV image: %w", err)
	}
	defer adjusted.Close()

	gocv.CvtColor(adjusted, m, gocv.ColorHSVToBGR)
	return nil
}
