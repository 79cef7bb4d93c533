package stitch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/abworrall/panostitch/pkg/ecolor"
	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

func noisyRaster(rng *rand.Rand, w, h int) *raster.Raster {
	r := raster.New(w, h)
	for i := range r.Pix {
		r.Pix[i] = uint8(rng.Intn(256))
	}
	return r
}

func TestMatchExposureDarkerImage(t *testing.T) {
	img1 := raster.NewUniform(100, 100, 128, 128, 128)
	img2 := raster.NewUniform(100, 100, 64, 64, 64)

	fit := MatchExposure(img1, img2, emath.Identity(), rand.New(rand.NewSource(1)), NewConfig().Exposure)
	if fit.Outcome != Found {
		t.Fatalf("expected a fit, got %s", fit)
	}
	if fit.Samples != 100 {
		t.Fatalf("expected 1%% of 100x100 = 100 samples, got %d", fit.Samples)
	}
	// The fit minimises (L1 - L2^g)^2, and ApplyGamma writes (p/255)^g*255.
	// With L2 and p/255 both in (0,1), x^g rises as g drops below 1, so a
	// darker second image is brightened by g < 1, not g > 1.
	if !(fit.Gamma < 1.0 && fit.Gamma >= 0.5) {
		t.Fatalf("expected gamma in [0.5,1), got %f", fit.Gamma)
	}

	l1 := ecolor.Lightness(128, 128, 128)
	l2 := ecolor.Lightness(64, 64, 64)
	if math.Abs(math.Pow(l2, fit.Gamma)-l1) >= math.Abs(l2-l1) {
		t.Fatalf("gamma %f didn't move image2 toward image1", fit.Gamma)
	}
}

func TestMatchExposureBrighterImage(t *testing.T) {
	img1 := raster.NewUniform(80, 60, 128, 128, 128)
	img2 := raster.NewUniform(80, 60, 200, 200, 200)

	fit := MatchExposure(img1, img2, emath.Identity(), rand.New(rand.NewSource(2)), NewConfig().Exposure)
	if fit.Outcome != Found || fit.Gamma <= 1.0 || fit.Gamma > 2.0 {
		t.Fatalf("expected gamma in (1,2], got %s", fit)
	}
}

func TestMatchExposureIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	img := noisyRaster(rng, 50, 50)
	fit := MatchExposure(img, img.Copy(), emath.Identity(), rng, NewConfig().Exposure)
	if fit.Gamma != 1.0 {
		t.Fatalf("identical images should need no correction, got %f", fit.Gamma)
	}
}

func TestMatchExposureDegenerate(t *testing.T) {
	opts := NewConfig().Exposure
	tests := []struct {
		name       string
		img1, img2 *raster.Raster
		xform      emath.Transform
	}{
		{"all black", raster.New(40, 40), raster.New(40, 40), emath.Identity()},
		{"off the edge", raster.NewUniform(40, 40, 90, 90, 90), raster.NewUniform(40, 40, 90, 90, 90), emath.NewTranslation(1000, 0)},
		{"empty", raster.New(0, 0), raster.NewUniform(4, 4, 90, 90, 90), emath.Identity()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fit := MatchExposure(tc.img1, tc.img2, tc.xform, rand.New(rand.NewSource(4)), opts)
			if fit.Gamma != 1.0 || fit.Outcome != Degenerate {
				t.Fatalf("expected degenerate gamma 1.0, got %s", fit)
			}
		})
	}
}

func TestMatchExposureMinSamples(t *testing.T) {
	img := raster.NewUniform(5, 5, 100, 100, 100)
	fit := MatchExposure(img, img, emath.Identity(), rand.New(rand.NewSource(5)), NewConfig().Exposure)
	if fit.Samples != 10 {
		t.Fatalf("expected the minimum of 10 samples, got %d", fit.Samples)
	}
}

func TestMatchExposureGammaAlwaysInRange(t *testing.T) {
	opts := NewConfig().Exposure
	opts.StepSize = 5.0 // big steps, to try and push it out of range
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		v1 := uint8(20 + rng.Intn(236))
		v2 := uint8(20 + rng.Intn(236))
		img1 := raster.NewUniform(30, 30, v1, v1, v1)
		img2 := raster.NewUniform(30, 30, v2, v2, v2)
		fit := MatchExposure(img1, img2, emath.Identity(), rng, opts)
		if fit.Gamma < 0.5 || fit.Gamma > 2.0 {
			t.Fatalf("seed %d: gamma %f out of range", seed, fit.Gamma)
		}
	}
}

func TestApplyGamma(t *testing.T) {
	img := raster.NewUniform(3, 3, 128, 0, 255)

	same := ApplyGamma(img, 1.0)
	if same == img || string(same.Pix) != string(img.Pix) {
		t.Fatalf("gamma 1.0 should return an equal copy")
	}

	dark := ApplyGamma(img, 2.0)
	r, g, b := dark.RGB(1, 1)
	if r != 64 || g != 0 || b != 255 {
		t.Fatalf("gamma 2.0 of (128,0,255) gave (%d,%d,%d)", r, g, b)
	}
	if img.Pix[0] != 128 {
		t.Fatalf("input was modified")
	}
}
