package ecolor

import "math"

// A GammaLUT maps each 8-bit channel value v to (v/255)^gamma * 255,
// truncated back to 8 bits.
type GammaLUT [256]uint8

func NewGammaLUT(gamma float64) GammaLUT {
	lut := GammaLUT{}
	for v := 0; v < 256; v++ {
		out := math.Pow(float64(v)/255.0, gamma) * 255.0
		if out > 255 {
			out = 255
		}
		if out < 0 || math.IsNaN(out) {
			out = 0
		}
		lut[v] = uint8(out)
	}
	return lut
}
