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

// State is where an Assembler is in its lifecycle. It only moves forward.
type State int

const (
	Unstarted State = iota
	Initialized
	Extending
	GloballyAdjusted
	Cropped
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Initialized:
		return "initialized"
	case Extending:
		return "extending"
	case GloballyAdjusted:
		return "globally-adjusted"
	case Cropped:
		return "cropped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// An Assembler grows a panorama one image at a time, left to right. Each
// new image is matched against the previous one, to work out how much
// they overlap; then its exposure is matched to the panorama, and it is
// blended onto the right hand end.
type Assembler struct {
	Config
	Engine features.Engine
	Rng    *rand.Rand
	Log    logrus.FieldLogger

	state        State
	pano         *raster.Raster
	last         *raster.Raster
	lastFeatures features.Features
	transforms   []emath.Transform
	shifts       []float64
	report       *Report
}

func NewAssembler(cfg Config, e features.Engine, rng *rand.Rand, log logrus.FieldLogger) *Assembler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assembler{Config: cfg, Engine: e, Rng: rng, Log: log, report: NewReport()}
}

func (a *Assembler) State() State                  { return a.state }
func (a *Assembler) Panorama() *raster.Raster      { return a.pano }
func (a *Assembler) Report() *Report               { return a.report }
func (a *Assembler) Transforms() []emath.Transform { return append([]emath.Transform{}, a.transforms...) }
func (a *Assembler) Shifts() []float64             { return append([]float64{}, a.shifts...) }

// Start seeds the panorama with the first image.
func (a *Assembler) Start(first *raster.Raster, f features.Features) error {
	if a.state != Unstarted {
		return fmt.Errorf("assembler: can't start, already %s", a.state)
	}
	if first.Empty() {
		return fmt.Errorf("assembler: first image is empty")
	}
	a.pano = first.Copy()
	a.last = first
	a.lastFeatures = f
	a.transforms = []emath.Transform{emath.Identity()}
	a.state = Initialized
	a.Log.Infof("Starting with image 1: %s", a.pano)
	return nil
}

// Extend matches `next` against the previous image, and stitches it on.
func (a *Assembler) Extend(next *raster.Raster, f features.Features) (StepReport, error) {
	if a.state != Initialized && a.state != Extending {
		return StepReport{}, fmt.Errorf("assembler: can't extend, already %s", a.state)
	}
	return a.ExtendWithMatches(next, f, a.Engine.Match(a.lastFeatures, f))
}

// ExtendWithMatches stitches on `next`, given the correspondences between
// the previous image (P1) and `next` (P2).
func (a *Assembler) ExtendWithMatches(next *raster.Raster, f features.Features, corrs []features.Correspondence) (StepReport, error) {
	if a.state != Initialized && a.state != Extending {
		return StepReport{}, fmt.Errorf("assembler: can't extend, already %s", a.state)
	}
	if next.Empty() {
		return StepReport{}, fmt.Errorf("assembler: image %d is empty", len(a.report.Steps)+2)
	}

	step := StepReport{Index: len(a.report.Steps) + 1, Matches: len(corrs)}
	log := a.Log.WithField("image", step.Index+1)
	log.Infof("Matches found: %d", len(corrs))

	step.Estimate, step.HomographyAttempted = estimatePair(corrs, a.Rng, a.Estimator)

	minW := a.pano.W
	if next.W < minW {
		minW = next.W
	}

	exposureXform := emath.Identity()
	if step.Estimate.OK() {
		step.Shift = step.Transform.ShiftX()
		step.Overlap = computeOverlap(step.Shift, minW, a.Overlap)
		a.shifts = append(a.shifts, step.Shift)
		a.transforms = append(a.transforms, step.Transform)
		exposureXform = a.nextToPanorama(step.Transform)
		log.Infof("%s, overlap %d", step.Estimate, step.Overlap)
	} else {
		step.Overlap = minW / a.Overlap.DefaultDivisor
		log.Warnf("no transform (%s), using default overlap %d", step.Outcome, step.Overlap)
	}

	fit := MatchExposure(a.pano, next, exposureXform, a.Rng, a.Exposure)
	step.Gamma = fit.Gamma
	log.Debugf("%s", fit)
	corrected := ApplyGamma(next, fit.Gamma)

	seam := DiffSeam(a.pano, corrected, step.Overlap, a.Exposure.DarkThreshold, seamBright)
	step.SeamError = seam.Error
	log.Debugf("%s", seam)
	if a.DumpGrids && seam.Comparable > 0 {
		name := filepath.Join(a.DumpDir, fmt.Sprintf("seamdiff-%03d.png", step.Index))
		if err := seam.Grid.ToImg(fmt.Sprintf("image %d, %s", step.Index+1, seam), name); err != nil {
			log.Warnf("dump grid: %v", err)
		}
	}

	pano, conf, err := Blend(a.pano, corrected, step.Overlap, a.Blend)
	if err != nil {
		return step, fmt.Errorf("assembler: image %d: %v", step.Index+1, err)
	}
	if step.Overlap > 0 {
		log.Debugf("seam confidence %s", conf.Stats())
	}
	if a.DumpGrids && step.Overlap > 0 {
		name := filepath.Join(a.DumpDir, fmt.Sprintf("confidence-%03d.png", step.Index))
		if err := conf.ToImg(fmt.Sprintf("seam confidence, image %d", step.Index+1), name); err != nil {
			log.Warnf("dump grid: %v", err)
		}
	}

	a.pano = pano
	a.last = corrected
	a.lastFeatures = f
	a.state = Extending
	a.report.Add(step)
	log.Infof("Panorama now %s", a.pano)
	return step, nil
}

// nextToPanorama turns the estimate (previous image -> next image) into
// a map from the next image's pixels to the panorama's, which is where
// the exposure matcher wants to look. The previous image is the
// rightmost thing in the panorama.
func (a *Assembler) nextToPanorama(prevToNext emath.Transform) emath.Transform {
	inv, ok := prevToNext.Inverse()
	if !ok {
		return emath.Identity()
	}
	out, ok := emath.NewTranslation(float64(a.pano.W-a.last.W), 0).Compose(inv)
	if !ok {
		return emath.Identity()
	}
	return out
}

// Adjust computes the mean shift over every step that found a transform.
// It is a diagnostic; nothing is re-warped.
func (a *Assembler) Adjust() (float64, error) {
	if a.state != Initialized && a.state != Extending {
		return 0, fmt.Errorf("assembler: can't adjust, already %s", a.state)
	}
	a.report.Summarize()
	a.state = GloballyAdjusted
	if len(a.shifts) > 0 {
		a.Log.Infof("Total shift: %.1f, average per image: %.1f", a.report.TotalShift, a.report.AverageShift)
	}
	return a.report.AverageShift, nil
}

// Crop trims the black borders, and finishes the panorama.
func (a *Assembler) Crop() (*raster.Raster, error) {
	if a.state != GloballyAdjusted {
		return nil, fmt.Errorf("assembler: can't crop, state is %s", a.state)
	}
	cropped, box := CropBorders(a.pano, a.Config.Crop)
	a.Log.Infof("Cropped %s to %s", a.pano, box)
	a.pano = cropped
	a.state = Cropped
	return a.pano, nil
}

// Run stitches all the images, in order. If feats is nil, features are
// detected up front, in parallel.
func (a *Assembler) Run(images []*raster.Raster, feats []features.Features) (*raster.Raster, *Report, error) {
	if len(images) == 0 {
		return nil, nil, fmt.Errorf("assembler: no images")
	}
	if feats == nil {
		var err error
		if feats, err = features.DetectAll(a.Engine, images, a.Workers); err != nil {
			return nil, nil, err
		}
	}
	if len(feats) != len(images) {
		return nil, nil, fmt.Errorf("assembler: %d images but %d feature sets", len(images), len(feats))
	}

	if err := a.Start(images[0], feats[0]); err != nil {
		return nil, nil, err
	}
	for i := 1; i < len(images); i++ {
		if _, err := a.Extend(images[i], feats[i]); err != nil {
			return nil, nil, err
		}
	}
	if _, err := a.Adjust(); err != nil {
		return nil, nil, err
	}
	out, err := a.Crop()
	return out, a.report, err
}

// estimatePair runs the fallback chain: translation only if there are
// too few matches for a homography; else homography (which may itself
// defer to translation), and translation if that fails.
func estimatePair(corrs []features.Correspondence, rng *rand.Rand, opts EstimatorOptions) (Estimate, bool) {
	src, dst := features.Split(corrs)
	if len(corrs) < opts.MinHomographyMatches {
		return EstimateTranslation(src, dst, rng, opts), false
	}
	if est := EstimateTransform(src, dst, rng, opts); est.OK() {
		return est, true
	}
	return EstimateTranslation(src, dst, rng, opts), true
}

// computeOverlap derives the seam width from the horizontal shift. If the
// lower and upper bounds cross (narrow images), the upper bound wins so
// the overlap never exceeds half the narrower image.
func computeOverlap(shift float64, minWidth int, opts OverlapOptions) int {
	ov := int(math.Round(math.Abs(shift) * opts.ShiftFactor))
	hi := minWidth / 2
	if ov < opts.Min {
		ov = opts.Min
	}
	if ov > hi {
		ov = hi
	}
	return ov
}
