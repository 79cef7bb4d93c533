package emath

// The homogeneous transforms used to relate one photo's pixel coords to
// another's.

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
)

// A Point is a sub-pixel location in an image.
type Point struct {
	X, Y float64
}

func (p Point) String() string { return fmt.Sprintf("(%.2f,%.2f)", p.X, p.Y) }

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// A Transform is a 3x3 homogeneous matrix, row-major. It is a value type;
// none of the methods mutate it. The only ways to build one are the
// constructors below, which keep the bottom row sane: affine transforms
// always have [0,0,1], projective ones are scaled so that m[8] == 1.
type Transform struct {
	m [9]float64
}

func Identity() Transform {
	return Transform{m: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

func NewTranslation(dx, dy float64) Transform {
	return Transform{m: [9]float64{1, 0, dx, 0, 1, dy, 0, 0, 1}}
}

func NewAffine(a Aff3) Transform {
	return Transform{m: [9]float64{a[0], a[1], a[2], a[3], a[4], a[5], 0, 0, 1}}
}

// NewHomography takes a full 3x3 matrix, and normalizes it so the
// homogeneous scale is 1. It returns false if that can't be done.
func NewHomography(h [9]float64) (Transform, bool) {
	if h[8] == 0 || math.IsNaN(h[8]) || math.IsInf(h[8], 0) {
		return Transform{}, false
	}
	t := Transform{}
	for i := 0; i < 9; i++ {
		t.m[i] = h[i] / h[8]
		if math.IsNaN(t.m[i]) || math.IsInf(t.m[i], 0) {
			return Transform{}, false
		}
	}
	return t, true
}

// At returns the element at [row,col]
func (t Transform) At(row, col int) float64 { return t.m[3*row+col] }
func (t Transform) ShiftX() float64         { return t.m[2] }
func (t Transform) ShiftY() float64         { return t.m[5] }

// IsAffine is true when the bottom row is [0,0,1]
func (t Transform) IsAffine() bool {
	return t.m[6] == 0 && t.m[7] == 0 && t.m[8] == 1
}

// IsTranslationOnly is true when the transform is affine and the linear
// part is exactly the identity.
func (t Transform) IsTranslationOnly() bool {
	return t.IsAffine() && t.m[0] == 1 && t.m[1] == 0 && t.m[3] == 0 && t.m[4] == 1
}

// IsNearIdentityLinear checks whether the upper-left 2x2 block is within
// tol of the identity.
func (t Transform) IsNearIdentityLinear(tol float64) bool {
	return math.Abs(t.m[0]-1) < tol && math.Abs(t.m[4]-1) < tol &&
		math.Abs(t.m[1]) < tol && math.Abs(t.m[3]) < tol
}

// ApplyToPoint maps p through the transform, dividing out the
// homogeneous coord. The bool is false if p maps to infinity.
func (t Transform) ApplyToPoint(p Point) (Point, bool) {
	w := t.m[6]*p.X + t.m[7]*p.Y + t.m[8]
	if w == 0 {
		return Point{}, false
	}
	return Point{
		X: (t.m[0]*p.X + t.m[1]*p.Y + t.m[2]) / w,
		Y: (t.m[3]*p.X + t.m[4]*p.Y + t.m[5]) / w,
	}, true
}

// Compose returns the transform that applies `q` first, then `t`.
// Remember they compose back to front - rightmost operations performed first.
// It returns false if the product can't be normalised into a homography
// (it sends the origin to infinity).
func (t Transform) Compose(q Transform) (Transform, bool) {
	a, b := t.m, q.m
	r := [9]float64{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[3*row+col] = a[3*row+0]*b[3*0+col] + a[3*row+1]*b[3*1+col] + a[3*row+2]*b[3*2+col]
		}
	}
	if r[6] == 0 && r[7] == 0 && r[8] != 0 && r[8] != 1 {
		// keep the affine bottom row exact
		for i := 0; i < 6; i++ {
			r[i] /= r[8]
		}
		r[8] = 1
	}
	return NewHomography(r)
}

// Inverse returns the inverse transform, or false if it is singular.
func (t Transform) Inverse() (Transform, bool) {
	m := t.m
	c00 := m[4]*m[8] - m[5]*m[7]
	c01 := m[5]*m[6] - m[3]*m[8]
	c02 := m[3]*m[7] - m[4]*m[6]
	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}
	inv := [9]float64{
		c00 / det,
		(m[2]*m[7] - m[1]*m[8]) / det,
		(m[1]*m[5] - m[2]*m[4]) / det,
		c01 / det,
		(m[0]*m[8] - m[2]*m[6]) / det,
		(m[2]*m[3] - m[0]*m[5]) / det,
		c02 / det,
		(m[1]*m[6] - m[0]*m[7]) / det,
		(m[0]*m[4] - m[1]*m[3]) / det,
	}
	if t.IsAffine() {
		inv[6], inv[7], inv[8] = 0, 0, 1
	}
	return NewHomography(inv)
}

// ToAff3 drops the bottom row, for use with golang.org/x/image/draw.
// Only meaningful if IsAffine().
func (t Transform) ToAff3() f64.Aff3 {
	return f64.Aff3{t.m[0], t.m[1], t.m[2], t.m[3], t.m[4], t.m[5]}
}

func (t Transform) String() string {
	if t.IsTranslationOnly() {
		return fmt.Sprintf("T[%.2f,%.2f]", t.m[2], t.m[5])
	}
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", t.m[0], t.m[1], t.m[2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", t.m[3], t.m[4], t.m[5])
	str += fmt.Sprintf("[%10f, %10f, %10f]", t.m[6], t.m[7], t.m[8])
	return str
}
