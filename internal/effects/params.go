// Package effects implements the per-pixel color and morphology effects
// applied to a source page before it is placed on a display surface.
package effects

import (
	"math"

	"pattern-projector/pkg/colorutil"
)

// Params are the color effect settings. HueOffset, Saturation and Value
// determine the recomputed overlay; the inversion flags and LineGrowth are
// applied by the display surfaces at draw time.
type Params struct {
	HueOffset       float64 `json:"hue_offset"` // [0,180)
	Saturation      float64 `json:"saturation"` // multiplier, > 0
	Value           float64 `json:"value"`      // multiplier, > 0
	InvertProjector bool    `json:"invert_projector"`
	InvertPreview   bool    `json:"invert_preview"`
	LineGrowth      int     `json:"line_growth"` // erosion iterations
}

// Defaults returns neutral parameters.
func Defaults() Params {
	return Params{Saturation: 1, Value: 1}
}

// Normalize wraps the hue and replaces out-of-range values with neutral ones.
func (p Params) Normalize() Params {
	p.HueOffset = colorutil.WrapHue(p.HueOffset)
	if !(p.Saturation > 0) || math.IsInf(p.Saturation, 0) {
		p.Saturation = 1
	}
	if !(p.Value > 0) || math.IsInf(p.Value, 0) {
		p.Value = 1
	}
	if p.LineGrowth < 0 {
		p.LineGrowth = 0
	}
	return p
}

// ColorEqual reports whether two parameter sets produce the same overlay.
func (p Params) ColorEqual(o Params) bool {
	return p.HueOffset == o.HueOffset && p.Saturation == o.Saturation && p.Value == o.Value
}

// ColorNeutral reports whether the color transform is the identity.
func (p Params) ColorNeutral() bool {
	return p.ColorEqual(Defaults())
}

// SliderMultiplier maps a slider position in [-100,100] to a multiplier.
// Positive positions scale up to 11x; negative positions scale down to 1/11.
func SliderMultiplier(v int) float64 {
	if v > 100 {
		v = 100
	}
	if v < -100 {
		v = -100
	}
	m := 10*math.Abs(float64(v))/100 + 1
	if v < 0 {
		return 1 / m
	}
	return m
}

// MultiplierSlider is the inverse of SliderMultiplier, rounded to a slider step.
func MultiplierSlider(m float64) int {
	if !(m > 0) {
		return 0
	}
	if m < 1 {
		return -int(math.Round((1/m - 1) * 10))
	}
	return int(math.Round((m - 1) * 10))
}
