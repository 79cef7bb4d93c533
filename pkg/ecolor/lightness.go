package ecolor

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Lightness maps an 8-bit sRGB triple into the L channel of CIE LCh(ab),
// which is perceptually uniform. The result is in [0,1]: black is 0,
// white is 1.
func Lightness(r, g, b uint8) float64 {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	_, _, l := c.Hcl()

	// Rounding in the conversion can push white a hair over 1
	if l < 0 || math.IsNaN(l) {
		return 0
	}
	if l > 1 {
		return 1
	}
	return l
}

// Gray maps an 8-bit RGB triple to its BT.601 luma, in [0,255] - the
// same weights OpenCV and most JPEG decoders use.
func Gray(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// GrayU8 is Gray, rounded to the nearest integer.
func GrayU8(r, g, b uint8) uint8 {
	return uint8(Gray(r, g, b) + 0.5)
}
