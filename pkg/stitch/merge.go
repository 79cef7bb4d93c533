package stitch

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/features"
	"github.com/abworrall/panostitch/pkg/raster"
)

// The biggest canvas MergeSequence will allocate; a wild homography can
// otherwise ask for something absurd.
const maxCanvasDim = 20000

// DistanceMask weights each pixel by how far it is from the nearest
// black (or off-image) pixel, scaled so the most interior pixel is 1.0.
// An all-black raster gets an all-zero mask.
func DistanceMask(r *raster.Raster) emath.FloatGrid {
	d := emath.DistanceTransform(r.Foreground(0), r.W, r.H)
	d.NormalizeByMax()
	return d
}

// A Merger composites every image into one shared frame at once, rather
// than growing a panorama one seam at a time. Each image is feathered by
// its own distance mask, so seams fall away smoothly.
type Merger struct {
	Config
	Engine features.Engine
	Rng    *rand.Rand
	Log    logrus.FieldLogger
}

func NewMerger(cfg Config, e features.Engine, rng *rand.Rand, log logrus.FieldLogger) *Merger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Merger{Config: cfg, Engine: e, Rng: rng, Log: log}
}

// Merge warps every image into a w x h canvas via xforms[i], and
// averages them, weighted by their distance masks. Before that, each
// image gets the gamma that matches it to its predecessor.
func (m *Merger) Merge(images []*raster.Raster, xforms []emath.Transform, w, h int) (*raster.Raster, []float64, error) {
	if len(images) == 0 || len(images) != len(xforms) {
		return nil, nil, fmt.Errorf("merge: %d images but %d transforms", len(images), len(xforms))
	}
	if w <= 0 || h <= 0 {
		return nil, nil, fmt.Errorf("merge: bad canvas size %dx%d", w, h)
	}
	for i, img := range images {
		if img.Empty() {
			return nil, nil, fmt.Errorf("merge: image %d is empty", i)
		}
	}

	gammas := make([]float64, len(images))
	gammas[0] = 1.0
	for i := 1; i < len(images); i++ {
		fit := MatchExposure(images[i-1], images[i], relativeTransform(xforms[i-1], xforms[i]), m.Rng, m.Exposure)
		gammas[i] = fit.Gamma
	}
	m.Log.WithField("gammas", fmt.Sprintf("%.3f", gammas)).Info("exposure gammas")

	sum := make([]float64, 3*w*h)
	weight := emath.NewFloatGrid(w, h)

	for i, img := range images {
		corrected := ApplyGamma(img, gammas[i])
		mask := DistanceMask(corrected)
		if m.DumpGrids {
			m.dumpGrid(mask, fmt.Sprintf("distance mask %d", i), fmt.Sprintf("distmask-%03d.png", i))
		}

		warped := WarpRaster(corrected, xforms[i], w, h)
		warpedMask := WarpGrid(mask, xforms[i], w, h)
		m.Log.WithField("image", i+1).Debugf("distance mask %s, warped %s", mask.Stats(), warpedMask.Stats())

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				mv := warpedMask.Get(x, y)
				if mv == 0 {
					continue
				}
				r, g, b := warped.RGB(x, y)
				o := 3 * (y*w + x)
				sum[o] += float64(r) * mv
				sum[o+1] += float64(g) * mv
				sum[o+2] += float64(b) * mv
				weight.Set(x, y, weight.Get(x, y)+mv)
			}
		}
		m.Log.Debugf("merged image %d: %s", i, xforms[i])
	}

	out := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			wt := math.Max(weight.Get(x, y), 1e-6)
			o := 3 * (y*w + x)
			out.SetRGB(x, y, emath.ClipU8(sum[o]/wt), emath.ClipU8(sum[o+1]/wt), emath.ClipU8(sum[o+2]/wt))
		}
	}
	return out, gammas, nil
}

// relativeTransform maps image i's coords into image i-1's, given both
// their maps into the shared frame.
func relativeTransform(prev, cur emath.Transform) emath.Transform {
	inv, ok := prev.Inverse()
	if !ok {
		return cur
	}
	if rel, ok := inv.Compose(cur); ok {
		return rel
	}
	return cur
}

// MergeSequence works out where every image lands in the frame of the
// first, by chaining the pairwise estimates, sizes a canvas to hold
// them all, and merges them into it.
func (m *Merger) MergeSequence(images []*raster.Raster, feats []features.Features) (*raster.Raster, *Report, error) {
	if len(images) == 0 || len(images) != len(feats) {
		return nil, nil, fmt.Errorf("merge: %d images but %d feature sets", len(images), len(feats))
	}

	rep := NewReport()
	toFirst := make([]emath.Transform, len(images))
	toFirst[0] = emath.Identity()

	for i := 1; i < len(images); i++ {
		corrs := m.Engine.Match(feats[i-1], feats[i])
		est, attempted := estimatePair(corrs, m.Rng, m.Estimator)
		step := StepReport{Index: i, Matches: len(corrs), HomographyAttempted: attempted, Estimate: est}

		rel := emath.Identity()
		if est.OK() {
			// est maps image i-1 -> image i; we want the other way
			if inv, ok := est.Transform.Inverse(); ok {
				rel = inv
				step.Shift = est.Transform.ShiftX()
			}
		} else {
			// No idea; butt it up against its neighbour
			rel = emath.NewTranslation(float64(images[i-1].W), 0)
			m.Log.Warnf("image %d: no transform, placing it next to image %d", i+1, i)
		}
		chained, ok := toFirst[i-1].Compose(rel)
		if !ok {
			return nil, nil, fmt.Errorf("merge: image %d projects to infinity", i+1)
		}
		toFirst[i] = chained
		m.Log.WithFields(logrus.Fields{"image": i + 1, "matches": len(corrs)}).Infof("%s", est)
		rep.Add(step)
	}

	bounds, ok := projectedBounds(images, toFirst)
	if !ok {
		return nil, nil, fmt.Errorf("merge: images project to infinity")
	}
	w, h := int(math.Ceil(bounds[2]-bounds[0])), int(math.Ceil(bounds[3]-bounds[1]))
	if w <= 0 || h <= 0 || w > maxCanvasDim || h > maxCanvasDim {
		return nil, nil, fmt.Errorf("merge: canvas of %dx%d is unreasonable", w, h)
	}

	offset := emath.NewTranslation(-bounds[0], -bounds[1])
	xforms := make([]emath.Transform, len(images))
	for i := range toFirst {
		// a translation on the left never touches the bottom row
		xforms[i], _ = offset.Compose(toFirst[i])
	}
	m.Log.Infof("merge canvas %dx%d", w, h)

	out, gammas, err := m.Merge(images, xforms, w, h)
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i < len(gammas) && i-1 < len(rep.Steps); i++ {
		rep.Steps[i-1].Gamma = gammas[i]
	}

	out, _ = CropBorders(out, m.Crop)
	return out, rep, nil
}

// projectedBounds returns [minX, minY, maxX, maxY] of all image corners
// after their transforms.
func projectedBounds(images []*raster.Raster, xforms []emath.Transform) ([4]float64, bool) {
	b := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for i, img := range images {
		corners := []emath.Point{{X: 0, Y: 0}, {X: float64(img.W), Y: 0}, {X: 0, Y: float64(img.H)}, {X: float64(img.W), Y: float64(img.H)}}
		for _, c := range corners {
			p, ok := xforms[i].ApplyToPoint(c)
			if !ok {
				return b, false
			}
			b[0], b[1] = math.Min(b[0], p.X), math.Min(b[1], p.Y)
			b[2], b[3] = math.Max(b[2], p.X), math.Max(b[3], p.Y)
		}
	}
	return b, true
}

func (m *Merger) dumpGrid(g emath.FloatGrid, title, name string) {
	if err := g.ToImg(title, filepath.Join(m.DumpDir, name)); err != nil {
		m.Log.Warnf("dump grid '%s': %v", name, err)
	}
}
