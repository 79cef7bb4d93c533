package emath

import (
	"math"
	"testing"
)

// bruteForceDistance is the obvious O(n^2) version, treating everything
// outside the grid as background.
func bruteForceDistance(fg []bool, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg[y*w+x] {
				continue
			}
			best := math.Inf(1)
			for by := -1; by <= h; by++ {
				for bx := -1; bx <= w; bx++ {
					inside := bx >= 0 && by >= 0 && bx < w && by < h
					if inside && fg[by*w+bx] {
						continue
					}
					best = math.Min(best, math.Hypot(float64(bx-x), float64(by-y)))
				}
			}
			out[y*w+x] = best
		}
	}
	return out
}

func TestDistanceTransformMatchesBruteForce(t *testing.T) {
	w, h := 13, 9
	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fg[y*w+x] = (x*7+y*3)%5 != 0 || (x > 3 && x < 10 && y > 2 && y < 7)
		}
	}

	got := DistanceTransform(fg, w, h)
	want := bruteForceDistance(fg, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if math.Abs(got.Get(x, y)-want[y*w+x]) > 1e-9 {
				t.Fatalf("(%d,%d): got %f, want %f", x, y, got.Get(x, y), want[y*w+x])
			}
		}
	}
}

func TestDistanceTransformEdges(t *testing.T) {
	all := make([]bool, 25)
	for i := range all {
		all[i] = true
	}
	d := DistanceTransform(all, 5, 5)
	if d.Get(0, 0) != 1 || d.Get(2, 2) != 3 {
		t.Fatalf("corner %f, center %f", d.Get(0, 0), d.Get(2, 2))
	}

	none := DistanceTransform(make([]bool, 25), 5, 5)
	if none.Max() != 0 {
		t.Fatalf("empty mask has max %f", none.Max())
	}

	empty := DistanceTransform(nil, 0, 0)
	if empty.Dx() != 0 || empty.Dy() != 0 {
		t.Fatalf("expected an empty grid")
	}
}
