// Package colorutil provides shared color utilities for the pattern projector.
//
// HSV values follow the OpenCV 8-bit convention: H in [0,180), S and V in [0,255].
package colorutil

import (
	"image/color"
	"math"
)

// HueRange is the period of the hue channel in the 8-bit convention.
const HueRange = 180

// Colors used by the display surfaces.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}

	// Boundary marks the projection area on the preview.
	Boundary = color.RGBA{R: 3, G: 252, B: 227, A: 255}
	// BoundaryShade is the translucent fill outside the projection area.
	BoundaryShade = color.NRGBA{R: 3, G: 252, B: 227, A: 80}
)

// WrapHue maps any hue into [0, HueRange).
func WrapHue(h float64) float64 {
	h = math.Mod(h, HueRange)
	if h < 0 {
		h += HueRange
	}
	return h
}

// ClampChannel rounds v and saturates it to a byte.
func ClampChannel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
