package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// Options tune the Harris detector and the matcher.
type Options struct {
	MaxFeatures       int     `yaml:"max_features"`       // Keep at most this many of the strongest corners
	HarrisK           float64 `yaml:"harris_k"`           // The k in det(M) - k.trace(M)^2
	RelativeThreshold float64 `yaml:"relative_threshold"` // Drop corners weaker than this fraction of the strongest
	NMSRadius         int     `yaml:"nms_radius"`         // A corner must be the max within this radius
	RatioTest         float64 `yaml:"ratio_test"`         // Accept a match only if best < RatioTest * secondBest
}

func DefaultOptions() Options {
	return Options{
		MaxFeatures:       5000,
		HarrisK:           0.04,
		RelativeThreshold: 0.01,
		NMSRadius:         2,
		RatioTest:         0.7,
	}
}

// Descriptors are an 8x8 grid of samples, 2px apart, centered on the
// keypoint; so keypoints need this much clearance from the edge.
const (
	descGrid    = 8
	descSpacing = 2
	descMargin  = descGrid*descSpacing/2 + 1
)

// HarrisEngine is the default Engine: Harris corners, described by a
// normalized patch of the blurred image, matched by brute force with
// Lowe's ratio test.
type HarrisEngine struct {
	Options
}

func NewHarrisEngine(opts Options) *HarrisEngine {
	return &HarrisEngine{Options: opts}
}

type corner struct {
	P        emath.Point
	Response float64
}

func (he *HarrisEngine) Detect(r *raster.Raster) (Features, error) {
	if r.Empty() {
		return Features{}, fmt.Errorf("harris: empty raster")
	}

	gray := r.GrayGrid()
	smooth := gray.GaussianBlur5x5()
	w, h := smooth.Dx(), smooth.Dy()

	// Structure tensor, from Sobel gradients
	ixx, iyy, ixy := emath.NewFloatGrid(w, h), emath.NewFloatGrid(w, h), emath.NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx, gy := sobel(&smooth, x, y)
			ixx.Set(x, y, gx*gx)
			iyy.Set(x, y, gy*gy)
			ixy.Set(x, y, gx*gy)
		}
	}
	ixx, iyy, ixy = ixx.GaussianBlur5x5(), iyy.GaussianBlur5x5(), ixy.GaussianBlur5x5()

	resp := emath.NewFloatGrid(w, h)
	maxR := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a, b, c := ixx.Get(x, y), iyy.Get(x, y), ixy.Get(x, y)
			R := (a*b - c*c) - he.HarrisK*(a+b)*(a+b)
			resp.Set(x, y, R)
			if R > maxR {
				maxR = R
			}
		}
	}
	if maxR <= 0 {
		return Features{}, nil // flat image, no corners
	}

	thresh := he.RelativeThreshold * maxR
	corners := []corner{}
	rad := he.NMSRadius
	for y := descMargin; y < h-descMargin; y++ {
		for x := descMargin; x < w-descMargin; x++ {
			R := resp.Get(x, y)
			if R <= thresh || !isLocalMax(&resp, x, y, rad) {
				continue
			}
			corners = append(corners, corner{P: emath.Point{X: float64(x), Y: float64(y)}, Response: R})
		}
	}

	sort.SliceStable(corners, func(i, j int) bool { return corners[i].Response > corners[j].Response })
	if he.MaxFeatures > 0 && len(corners) > he.MaxFeatures {
		corners = corners[:he.MaxFeatures]
	}

	f := Features{
		Keypoints:   make([]emath.Point, 0, len(corners)),
		Descriptors: make([][]float32, 0, len(corners)),
	}
	for _, c := range corners {
		if d, ok := describe(&smooth, int(c.P.X), int(c.P.Y)); ok {
			f.Keypoints = append(f.Keypoints, c.P)
			f.Descriptors = append(f.Descriptors, d)
		}
	}
	return f, nil
}

func sobel(g *emath.FloatGrid, x, y int) (float64, float64) {
	w, h := g.Dx(), g.Dy()
	at := func(xx, yy int) float64 {
		return g.Get(emath.ClampInt(xx, 0, w-1), emath.ClampInt(yy, 0, h-1))
	}
	gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) - (at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
	gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) - (at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
	return gx, gy
}

// isLocalMax is strict towards earlier pixels and non-strict towards later
// ones, so a plateau yields exactly one corner.
func isLocalMax(g *emath.FloatGrid, x, y, rad int) bool {
	v := g.Get(x, y)
	for dy := -rad; dy <= rad; dy++ {
		for dx := -rad; dx <= rad; dx++ {
			xx, yy := x+dx, y+dy
			if (dx == 0 && dy == 0) || xx < 0 || yy < 0 || xx >= g.Dx() || yy >= g.Dy() {
				continue
			}
			n := g.Get(xx, yy)
			if n > v || (n == v && (dy < 0 || (dy == 0 && dx < 0))) {
				return false
			}
		}
	}
	return true
}

// describe samples the patch around (x,y), and normalizes it to zero
// mean and unit length so it doesn't care about exposure differences.
func describe(g *emath.FloatGrid, x, y int) ([]float32, bool) {
	vals := make([]float64, 0, descGrid*descGrid)
	mean := 0.0
	for j := 0; j < descGrid; j++ {
		for i := 0; i < descGrid; i++ {
			xx := x + (i-descGrid/2)*descSpacing
			yy := y + (j-descGrid/2)*descSpacing
			if xx < 0 || yy < 0 || xx >= g.Dx() || yy >= g.Dy() {
				return nil, false
			}
			v := g.Get(xx, yy)
			vals = append(vals, v)
			mean += v
		}
	}
	mean /= float64(len(vals))

	norm := 0.0
	for i := range vals {
		vals[i] -= mean
		norm += vals[i] * vals[i]
	}
	norm = math.Sqrt(norm)
	if norm < 1e-9 {
		return nil, false
	}

	d := make([]float32, len(vals))
	for i, v := range vals {
		d[i] = float32(v / norm)
	}
	return d, true
}
