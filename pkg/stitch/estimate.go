package stitch

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"github.com/abworrall/panostitch/pkg/emath"
)

// Outcome says whether an estimator produced something usable.
type Outcome int

const (
	NoTransform Outcome = iota // Tried, but nothing fit
	Found
	Degenerate // Not enough data to even try
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NoTransform:
		return "no-transform"
	case Degenerate:
		return "degenerate"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Kind says which model produced a transform.
type Kind int

const (
	KindNone Kind = iota
	KindHomography
	KindTranslation       // Best single-sample RANSAC hypothesis
	KindTranslationMedian // Median of all displacements, as RANSAC found no consensus
)

func (k Kind) String() string {
	switch k {
	case KindHomography:
		return "homography"
	case KindTranslation:
		return "translation"
	case KindTranslationMedian:
		return "translation-median"
	}
	return "none"
}

// An Estimate is the result of fitting a transform that maps points in
// the first image onto the corresponding points in the second.
type Estimate struct {
	Outcome
	Kind
	Transform emath.Transform
	Inliers   int
	Total     int

	// Set when a homography was fitted, but was so close to a pure shift
	// that the translation estimate replaced it.
	Substituted bool
}

func (e Estimate) String() string {
	if e.Outcome != Found {
		return fmt.Sprintf("Estimate[%s, %d matches]", e.Outcome, e.Total)
	}
	str := fmt.Sprintf("Estimate[%s, %d/%d inliers, shift (%.1f,%.1f)", e.Kind, e.Inliers, e.Total,
		e.Transform.ShiftX(), e.Transform.ShiftY())
	if e.Substituted {
		str += ", replaced near-identity homography"
	}
	return str + "]"
}

func (e Estimate) OK() bool { return e.Outcome == Found }

type translationHypothesis struct {
	DX, DY  float64
	Inliers int
}

func countTranslationInliers(src, dst []emath.Point, dx, dy, thresh float64) int {
	n := 0
	for i := range src {
		ex := dst[i].X - src[i].X - dx
		ey := dst[i].Y - src[i].Y - dy
		if math.Hypot(ex, ey) < thresh {
			n++
		}
	}
	return n
}

// ransacTranslation runs the single-sample trials, and returns the best
// hypothesis along with every one it tried.
func ransacTranslation(src, dst []emath.Point, rng *rand.Rand, opts EstimatorOptions) (translationHypothesis, []translationHypothesis) {
	best := translationHypothesis{Inliers: -1}
	tried := make([]translationHypothesis, 0, opts.TranslationTrials)
	for i := 0; i < opts.TranslationTrials; i++ {
		j := rng.Intn(len(src))
		h := translationHypothesis{DX: dst[j].X - src[j].X, DY: dst[j].Y - src[j].Y}
		h.Inliers = countTranslationInliers(src, dst, h.DX, h.DY, opts.TranslationThreshold)
		tried = append(tried, h)
		if h.Inliers > best.Inliers {
			best = h
		}
	}
	return best, tried
}

// EstimateTranslation fits a pure shift, src -> dst. Each trial
// hypothesizes the displacement of one randomly picked pair; if even the
// best of them doesn't win over MinConsensus of the pairs, the
// coordinate-wise median displacement is used instead.
func EstimateTranslation(src, dst []emath.Point, rng *rand.Rand, opts EstimatorOptions) Estimate {
	n := len(src)
	if n < 1 || len(dst) != n {
		return Estimate{Outcome: Degenerate, Total: n}
	}

	best, _ := ransacTranslation(src, dst, rng, opts)
	if float64(best.Inliers) >= opts.MinConsensus*float64(n) {
		return Estimate{
			Outcome:   Found,
			Kind:      KindTranslation,
			Transform: emath.NewTranslation(best.DX, best.DY),
			Inliers:   best.Inliers,
			Total:     n,
		}
	}

	dxs, dys := make([]float64, n), make([]float64, n)
	for i := range src {
		dxs[i] = dst[i].X - src[i].X
		dys[i] = dst[i].Y - src[i].Y
	}
	mx, errX := stats.Median(dxs)
	my, errY := stats.Median(dys)
	if errX != nil || errY != nil {
		return Estimate{Outcome: Degenerate, Total: n}
	}
	return Estimate{
		Outcome:   Found,
		Kind:      KindTranslationMedian,
		Transform: emath.NewTranslation(mx, my),
		Inliers:   countTranslationInliers(src, dst, mx, my, opts.TranslationThreshold),
		Total:     n,
	}
}

// EstimateHomography fits a full projective transform, src -> dst, by
// RANSAC over 4-point samples, then refits on the winning inlier set.
func EstimateHomography(src, dst []emath.Point, rng *rand.Rand, opts EstimatorOptions) Estimate {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Estimate{Outcome: Degenerate, Total: n}
	}

	var bestH emath.Transform
	bestInliers := []int{}
	maxIters := opts.HomographyMaxIters
	sSrc, sDst := make([]emath.Point, 4), make([]emath.Point, 4)

	for iter := 0; iter < maxIters; iter++ {
		idx := sampleDistinct(rng, n, 4)
		for i, j := range idx {
			sSrc[i], sDst[i] = src[j], dst[j]
		}
		H, ok := emath.FitHomography(sSrc, sDst)
		if !ok {
			continue
		}
		inliers := homographyInliers(H, src, dst, opts.HomographyThreshold)
		if len(inliers) > len(bestInliers) {
			bestH, bestInliers = H, inliers
			maxIters = adaptiveIterations(len(inliers), n, opts.HomographyConfidence, maxIters)
		}
	}

	if len(bestInliers) < 4 {
		return Estimate{Outcome: NoTransform, Total: n}
	}

	// Refit on all the inliers; keep it only if it's at least as good
	iSrc, iDst := make([]emath.Point, len(bestInliers)), make([]emath.Point, len(bestInliers))
	for i, j := range bestInliers {
		iSrc[i], iDst[i] = src[j], dst[j]
	}
	if H, ok := emath.FitHomography(iSrc, iDst); ok {
		if inliers := homographyInliers(H, src, dst, opts.HomographyThreshold); len(inliers) >= len(bestInliers) {
			bestH, bestInliers = H, inliers
		}
	}

	return Estimate{
		Outcome:   Found,
		Kind:      KindHomography,
		Transform: bestH,
		Inliers:   len(bestInliers),
		Total:     n,
	}
}

// EstimateTransform tries for a homography, but if its linear part is
// within IdentityTolerance of the identity, the perspective part is
// noise; the translation estimate is returned in its place.
func EstimateTransform(src, dst []emath.Point, rng *rand.Rand, opts EstimatorOptions) Estimate {
	est := EstimateHomography(src, dst, rng, opts)
	if !est.OK() {
		return est
	}
	if est.Transform.IsNearIdentityLinear(opts.IdentityTolerance) {
		t := EstimateTranslation(src, dst, rng, opts)
		t.Substituted = true
		return t
	}
	return est
}

func homographyInliers(H emath.Transform, src, dst []emath.Point, thresh float64) []int {
	out := []int{}
	for i := range src {
		if emath.ReprojectionError(H, src[i], dst[i]) < thresh {
			out = append(out, i)
		}
	}
	return out
}

// adaptiveIterations is the number of 4-point samples needed to see an
// all-inlier sample with the given confidence, at the observed inlier
// ratio. It never increases the current limit.
func adaptiveIterations(inliers, total int, confidence float64, current int) int {
	w := float64(inliers) / float64(total)
	if w >= 1 {
		return 0
	}
	p := math.Pow(w, 4)
	if p <= 0 {
		return current
	}
	denom := math.Log(1 - p)
	if denom >= 0 {
		return current
	}
	need := math.Ceil(math.Log(1-confidence) / denom)
	if need < float64(current) {
		return int(need)
	}
	return current
}

// sampleDistinct picks k different indices from [0,n)
func sampleDistinct(rng *rand.Rand, n, k int) []int {
	out := make([]int, 0, k)
	for len(out) < k {
		j := rng.Intn(n)
		dup := false
		for _, o := range out {
			if o == j {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, j)
		}
	}
	return out
}
