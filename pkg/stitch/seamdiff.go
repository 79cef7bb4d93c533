package stitch

import (
	"fmt"
	"math"

	"github.com/abworrall/panostitch/pkg/ecolor"
	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// Lightness above this is treated as saturated when diffing seams
const seamBright = 0.98

// A SeamDiff says how different the two sides of a seam looked, before
// they were blended together.
type SeamDiff struct {
	Error      float64 // Mean abs lightness difference, x1000, over the comparable pixels
	Comparable float64 // Fraction of the overlap that was neither too dark nor saturated
	Grid       emath.FloatGrid
}

func (sd SeamDiff) String() string {
	return fmt.Sprintf("seam err=%6.1f (%.1f%% comparable)", sd.Error, 100*sd.Comparable)
}

// DiffSeam compares the last `overlap` columns of `left` against the
// first `overlap` columns of `right`, the same layout Blend uses. A
// pixel is skipped if either side is darker than `dark` or brighter than
// `bright` (in lightness, [0,1]), as there is nothing useful to compare.
func DiffSeam(left, right *raster.Raster, overlap int, dark, bright float64) SeamDiff {
	sd := SeamDiff{}
	if left.Empty() || right.Empty() || overlap <= 0 || overlap > left.W || overlap > right.W {
		return sd
	}

	h := left.H
	if right.H < h {
		h = right.H
	}
	start := left.W - overlap
	sd.Grid = emath.NewFloatGrid(overlap, h)

	tot, n, nPix := 0.0, 0, 0
	for y := 0; y < h; y++ {
		for x := 0; x < overlap; x++ {
			nPix++
			l1 := ecolor.Lightness(left.RGB(start+x, y))
			l2 := ecolor.Lightness(right.RGB(x, y))
			if l1 < dark || l2 < dark || l1 > bright || l2 > bright {
				continue
			}
			d := math.Abs(l1 - l2)
			sd.Grid.Set(x, y, d)
			tot += d
			n++
		}
	}

	if nPix > 0 {
		sd.Comparable = float64(n) / float64(nPix)
	}
	if n > 0 {
		sd.Error = tot * 1000.0 / float64(n)
	}
	return sd
}
