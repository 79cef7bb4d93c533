package emath

import (
	"math/rand"
	"testing"
)

func TestFitHomographyExact(t *testing.T) {
	truth, _ := NewHomography([9]float64{0.9, 0.1, 30, -0.1, 1.05, -12, 0.0005, -0.0003, 1})
	rng := rand.New(rand.NewSource(1))

	for _, n := range []int{4, 5, 20} {
		src := make([]Point, n)
		dst := make([]Point, n)
		for i := range src {
			src[i] = Point{X: rng.Float64() * 640, Y: rng.Float64() * 480}
			dst[i], _ = truth.ApplyToPoint(src[i])
		}
		H, ok := FitHomography(src, dst)
		if !ok {
			t.Fatalf("n=%d: fit failed", n)
		}
		for i := range src {
			if e := ReprojectionError(H, src[i], dst[i]); e > 1e-6 {
				t.Fatalf("n=%d: point %d is %g px off", n, i, e)
			}
		}
		if H.At(2, 2) != 1 {
			t.Fatalf("n=%d: not normalized", n)
		}
	}
}

func TestFitHomographyDegenerate(t *testing.T) {
	same := []Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}}
	if _, ok := FitHomography(same, same); ok {
		t.Fatalf("coincident points should fail")
	}
	if _, ok := FitHomography(same[:3], same[:3]); ok {
		t.Fatalf("three points should fail")
	}
	if _, ok := FitHomography(same, same[:3]); ok {
		t.Fatalf("mismatched lengths should fail")
	}
}
