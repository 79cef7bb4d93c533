package emath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FitHomography finds the projective transform H that maps src[i] onto
// dst[i], in the least-squares sense, using the normalized DLT. It needs
// at least 4 point pairs; the bool is false for degenerate input (too few
// points, collinear points, or a singular result).
func FitHomography(src, dst []Point) (Transform, bool) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Transform{}, false
	}

	nSrc, okS := normalizingTransform(src)
	nDst, okD := normalizingTransform(dst)
	if !okS || !okD {
		return Transform{}, false
	}

	rows := 2 * n
	if rows < 9 {
		rows = 9 // pad with a zero row, so the SVD gives us a full V
	}
	A := mat.NewDense(rows, 9, nil)
	for i := 0; i < n; i++ {
		p, _ := nSrc.ApplyToPoint(src[i])
		q, _ := nDst.ApplyToPoint(dst[i])
		X, Y := p.X, p.Y
		x, y := q.X, q.Y
		A.SetRow(2*i, []float64{-X, -Y, -1, 0, 0, 0, x * X, x * Y, x})
		A.SetRow(2*i+1, []float64{0, 0, 0, -X, -Y, -1, y * X, y * Y, y})
	}

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFull); !ok {
		return Transform{}, false
	}
	var V mat.Dense
	svd.VTo(&V)

	// The solution is the right singular vector for the smallest singular value.
	h := [9]float64{}
	for i := 0; i < 9; i++ {
		h[i] = V.At(i, 8)
	}
	hn, ok := NewHomography(h)
	if !ok {
		return Transform{}, false
	}

	// Undo the normalization: H = inv(Tdst) * Hn * Tsrc
	invDst, ok := nDst.Inverse()
	if !ok {
		return Transform{}, false
	}
	H, ok := invDst.Compose(hn)
	if !ok {
		return Transform{}, false
	}
	if H, ok = H.Compose(nSrc); !ok {
		return Transform{}, false
	}

	// A near-singular H is no use to anyone
	if _, ok := H.Inverse(); !ok {
		return Transform{}, false
	}
	return H, true
}

// normalizingTransform returns the similarity that moves the centroid of
// pts to the origin and scales them to an average distance of sqrt(2).
func normalizingTransform(pts []Point) (Transform, bool) {
	cx, cy := 0.0, 0.0
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	meanDist := 0.0
	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}
	meanDist /= float64(len(pts))
	if meanDist < 1e-9 {
		return Transform{}, false
	}

	s := math.Sqrt2 / meanDist
	return NewAffine(Aff3{s, 0, -s * cx, 0, s, -s * cy}), true
}

// ReprojectionError is the distance between H(p) and q.
func ReprojectionError(H Transform, p, q Point) float64 {
	hp, ok := H.ApplyToPoint(p)
	if !ok {
		return math.Inf(1)
	}
	return math.Hypot(hp.X-q.X, hp.Y-q.Y)
}
