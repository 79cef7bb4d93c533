package stitch

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/features"
	"github.com/abworrall/panostitch/pkg/raster"
)

// stubEngine hands back canned correspondences, whatever it's asked.
type stubEngine struct {
	corrs   []features.Correspondence
	matches int
}

func (s *stubEngine) Detect(r *raster.Raster) (features.Features, error) {
	return features.Features{}, nil
}

func (s *stubEngine) Match(a, b features.Features) []features.Correspondence {
	s.matches++
	return s.corrs
}

// shiftedCorrs makes n correspondences spread over a w x h area, where
// the second point is the first moved by (dx,dy). Coords are whole
// pixels, so the shifts come out exact.
func shiftedCorrs(rng *rand.Rand, n int, w, h int, dx, dy float64) []features.Correspondence {
	out := make([]features.Correspondence, n)
	for i := range out {
		p := emath.Point{X: float64(rng.Intn(w)), Y: float64(rng.Intn(h))}
		out[i] = features.Correspondence{P1: p, P2: emath.Point{X: p.X + dx, Y: p.Y + dy}}
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// brightTexture is random, but never dark enough to count as border.
func brightTexture(rng *rand.Rand, w, h int) *raster.Raster {
	r := raster.New(w, h)
	for i := range r.Pix {
		r.Pix[i] = uint8(50 + rng.Intn(200))
	}
	return r
}

func subRaster(r *raster.Raster, x0, w int) *raster.Raster {
	out := raster.New(w, r.H)
	for y := 0; y < r.H; y++ {
		for x := 0; x < w; x++ {
			red, green, blue := r.RGB(x0+x, y)
			out.SetRGB(x, y, red, green, blue)
		}
	}
	return out
}
