package emath

import "math"

// DistanceTransform returns, for each true cell in `fg` (a w*h row-major
// foreground mask), the Euclidean distance to the nearest background cell.
// Cells outside the grid count as background, so foreground touching the
// edge gets a distance of 1 there.
//
// Felzenszwalb & Huttenlocher, "Distance Transforms of Sampled Functions":
// a 1D squared-distance pass down each column, then along each row.
func DistanceTransform(fg []bool, w, h int) FloatGrid {
	out := NewFloatGrid(w, h)
	if w == 0 || h == 0 {
		return out
	}

	// Work in a grid padded by one background cell on every side.
	pw, ph := w+2, h+2
	inf := float64(pw*pw + ph*ph)
	d := make([]float64, pw*ph)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if fg[y*w+x] {
				d[(y+1)*pw+(x+1)] = inf
			}
		}
	}

	n := pw
	if ph > n {
		n = ph
	}
	f := make([]float64, n)
	res := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for x := 0; x < pw; x++ {
		for y := 0; y < ph; y++ {
			f[y] = d[y*pw+x]
		}
		edt1D(f[:ph], res[:ph], v, z)
		for y := 0; y < ph; y++ {
			d[y*pw+x] = res[y]
		}
	}
	for y := 0; y < ph; y++ {
		copy(f[:pw], d[y*pw:(y+1)*pw])
		edt1D(f[:pw], res[:pw], v, z)
		copy(d[y*pw:(y+1)*pw], res[:pw])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, math.Sqrt(d[(y+1)*pw+(x+1)]))
		}
	}
	return out
}

// edt1D computes the squared distance transform of the sampled function f
// into d. v and z are scratch space.
func edt1D(f, d []float64, v []int, z []float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := ((f[q] + float64(q*q)) - (f[v[k]] + float64(v[k]*v[k]))) / float64(2*q-2*v[k])
		for s <= z[k] {
			k--
			s = ((f[q] + float64(q*q)) - (f[v[k]] + float64(v[k]*v[k]))) / float64(2*q-2*v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}
