package stitch

import (
	"fmt"
	"sort"

	"github.com/abworrall/panostitch/pkg/ecolor"
	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// Blend places `right` after `left`, with their last/first `overlap`
// columns laid on top of each other, and returns the combined raster
// plus the confidence grid used across the overlap.
//
// Across the overlap the right image fades in along t^2. Where either
// image is too dark to trust (shadows, reflections), the confidence
// drops and the pixel is pulled back toward an attenuated copy of the
// left image. A 3x3 median then cleans up any speckle in the band.
func Blend(left, right *raster.Raster, overlap int, opts BlendOptions) (*raster.Raster, emath.FloatGrid, error) {
	if left.Empty() || right.Empty() {
		return nil, emath.FloatGrid{}, fmt.Errorf("blend: empty input raster (left empty: %v, right empty: %v)", left.Empty(), right.Empty())
	}
	if overlap < 0 || overlap > left.W || overlap > right.W {
		return nil, emath.FloatGrid{}, fmt.Errorf("blend: overlap %d doesn't fit %s and %s", overlap, left, right)
	}

	h := left.H
	if right.H > h {
		h = right.H
	}
	left, right = left.PadToHeight(h), right.PadToHeight(h)

	out := raster.New(left.W+right.W-overlap, h)
	start := left.W - overlap

	// The left image goes in as is; the overlap gets overwritten below.
	for y := 0; y < h; y++ {
		for x := 0; x < left.W; x++ {
			red, green, blue := left.RGB(x, y)
			out.SetRGB(x, y, red, green, blue)
		}
	}

	// The right image's remainder
	for y := 0; y < h; y++ {
		for x := overlap; x < right.W; x++ {
			red, green, blue := right.RGB(x, y)
			out.SetRGB(start+x, y, red, green, blue)
		}
	}

	if overlap == 0 {
		return out, emath.FloatGrid{}, nil
	}

	conf := confidenceGrid(left, right, start, overlap, opts)

	band := raster.New(overlap, h)
	for y := 0; y < h; y++ {
		for j := 0; j < overlap; j++ {
			t := 0.0
			if overlap > 1 {
				t = float64(j) / float64(overlap-1)
			}
			w := t * t
			c := conf.Get(j, y)
			for ch := 0; ch < 3; ch++ {
				l := float64(left.Channel(start+j, y, ch))
				r := float64(right.Channel(j, y, ch))
				v := c*((1-w)*l+w*r) + (1-c)*opts.Attenuation*l
				band.SetChannel(j, y, ch, emath.ClipU8(v))
			}
		}
	}

	band = median3x3(band)
	for y := 0; y < h; y++ {
		for j := 0; j < overlap; j++ {
			red, green, blue := band.RGB(j, y)
			out.SetRGB(start+j, y, red, green, blue)
		}
	}

	return out, conf, nil
}

// confidenceGrid scores each pixel in the overlap by whether it has
// enough light in it, in either image, to be trusted.
func confidenceGrid(left, right *raster.Raster, start, overlap int, opts BlendOptions) emath.FloatGrid {
	h := left.H
	lg, rg := emath.NewFloatGrid(overlap, h), emath.NewFloatGrid(overlap, h)
	for y := 0; y < h; y++ {
		for j := 0; j < overlap; j++ {
			lg.Set(j, y, float64(ecolor.GrayU8(left.RGB(start+j, y))))
			rg.Set(j, y, float64(ecolor.GrayU8(right.RGB(j, y))))
		}
	}
	lg, rg = lg.GaussianBlur5x5(), rg.GaussianBlur5x5()

	conf := emath.NewFloatGrid(overlap, h)
	for y := 0; y < h; y++ {
		for j := 0; j < overlap; j++ {
			lt, rt := 0.0, 0.0
			if v := lg.Get(j, y); v > opts.DarkThreshold {
				lt = v / 256.0
			}
			if v := rg.Get(j, y); v > opts.DarkThreshold {
				rt = v / 256.0
			}
			conf.Set(j, y, (lt+rt)/(lt+rt+opts.Epsilon))
		}
	}
	conf.NormalizeByMax()
	return conf
}

// median3x3 runs a per-channel 3x3 median filter, replicating the edge
// pixels outwards.
func median3x3(r *raster.Raster) *raster.Raster {
	out := raster.New(r.W, r.H)
	win := make([]int, 0, 9)
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			for ch := 0; ch < 3; ch++ {
				win = win[:0]
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						xx := emath.ClampInt(x+dx, 0, r.W-1)
						yy := emath.ClampInt(y+dy, 0, r.H-1)
						win = append(win, int(r.Channel(xx, yy, ch)))
					}
				}
				sort.Ints(win)
				out.SetChannel(x, y, ch, uint8(win[4]))
			}
		}
	}
	return out
}
