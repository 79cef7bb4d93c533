package features

import "math"

// Match pairs each descriptor in `a` with its nearest neighbour in `b`,
// keeping the pair only if the nearest is clearly better than the
// second-nearest (Lowe's ratio test).
func (he *HarrisEngine) Match(a, b Features) []Correspondence {
	return RatioMatch(a, b, he.RatioTest)
}

// RatioMatch is a brute-force 2-NN matcher. With fewer than two
// candidates in either set there is nothing to compare, so no matches.
func RatioMatch(a, b Features, ratio float64) []Correspondence {
	if len(a.Descriptors) < 2 || len(b.Descriptors) < 2 {
		return nil
	}

	out := []Correspondence{}
	for i, da := range a.Descriptors {
		best, second := math.MaxFloat64, math.MaxFloat64
		bestJ := -1
		for j, db := range b.Descriptors {
			d := dist2(da, db)
			if d < best {
				best, second = d, best
				bestJ = j
			} else if d < second {
				second = d
			}
		}

		best, second = math.Sqrt(best), math.Sqrt(second)
		if bestJ >= 0 && best < ratio*second {
			score := 0.0
			if second > 0 {
				score = best / second
			}
			out = append(out, Correspondence{P1: a.Keypoints[i], P2: b.Keypoints[bestJ], Score: score})
		}
	}
	return out
}

func dist2(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return s
}
