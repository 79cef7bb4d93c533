package stitch

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/abworrall/panostitch/pkg/ecolor"
	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// An ExposureFit is the gamma that makes the second image's lightness
// line up with the first's, where they overlap.
type ExposureFit struct {
	Outcome          // Found, or Degenerate if too few usable samples
	Gamma    float64 // Always within the configured range; 1.0 when Degenerate
	Samples  int     // How many sample points were drawn
	Valid    int     // How many survived projection and the darkness test
	Steps    int     // Gradient descent steps taken
}

func (ef ExposureFit) String() string {
	return fmt.Sprintf("Exposure[%s, gamma %.4f, %d/%d samples, %d steps]", ef.Outcome, ef.Gamma, ef.Valid, ef.Samples, ef.Steps)
}

// MatchExposure picks random pixels of img2, maps them into img1 with
// `xform`, and fits gamma so that L2^gamma ~= L1, where L is CIE
// lightness in [0,1]. It never fails; with too little to go on, it
// returns gamma 1.0.
func MatchExposure(img1, img2 *raster.Raster, xform emath.Transform, rng *rand.Rand, opts ExposureOptions) ExposureFit {
	fit := ExposureFit{Outcome: Degenerate, Gamma: 1.0}
	if img1.Empty() || img2.Empty() {
		return fit
	}

	nSamples := int(math.Round(float64(img2.H*img2.W) * opts.SampleFraction))
	if nSamples < opts.MinSamples {
		nSamples = opts.MinSamples
	}
	fit.Samples = nSamples

	l1s, l2s := make([]float64, 0, nSamples), make([]float64, 0, nSamples)
	for i := 0; i < nSamples; i++ {
		x2, y2 := rng.Intn(img2.W), rng.Intn(img2.H)
		p, ok := xform.ApplyToPoint(emath.Point{X: float64(x2), Y: float64(y2)})
		if !ok {
			continue
		}
		x1, y1 := int(p.X), int(p.Y)
		if x1 < 0 || y1 < 0 || x1 >= img1.W || y1 >= img1.H {
			continue
		}
		l1 := ecolor.Lightness(img1.RGB(x1, y1))
		l2 := ecolor.Lightness(img2.RGB(x2, y2))
		if l1 <= opts.DarkThreshold || l2 <= opts.DarkThreshold {
			continue
		}
		l1s = append(l1s, l1)
		l2s = append(l2s, l2)
	}
	fit.Valid = len(l1s)
	if fit.Valid < opts.MinValid {
		return fit
	}

	gamma, steps := fitGamma(l1s, l2s, opts)
	if math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		return fit
	}
	fit.Outcome = Found
	fit.Gamma = emath.ClampF64(gamma, opts.MinGamma, opts.MaxGamma)
	fit.Steps = steps
	return fit
}

// fitGamma minimizes sum((L2^g - L1)^2) by plain gradient descent from g=1.
func fitGamma(l1s, l2s []float64, opts ExposureOptions) (float64, int) {
	g := 1.0
	n := float64(len(l1s))
	steps := 0
	for steps < opts.Iterations {
		grad := 0.0
		for i := range l1s {
			p := math.Pow(l2s[i], g)
			grad += (p - l1s[i]) * math.Log(l2s[i]) * p
		}
		grad /= n

		next := g - opts.StepSize*grad
		steps++
		delta := math.Abs(next - g)
		g = next
		if delta < opts.Tolerance {
			break
		}
	}
	return g, steps
}

// ApplyGamma returns a new raster with every sample mapped through
// (v/255)^gamma * 255.
func ApplyGamma(r *raster.Raster, gamma float64) *raster.Raster {
	if gamma == 1.0 {
		return r.Copy()
	}
	return r.MapChannels(ecolor.NewGammaLUT(gamma))
}
