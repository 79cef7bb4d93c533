package stitch

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// WarpRaster maps `src` through `xform` onto a new w x h canvas. Canvas
// pixels that nothing maps onto are left black.
func WarpRaster(src *raster.Raster, xform emath.Transform, w, h int) *raster.Raster {
	if xform.IsAffine() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Transform(dst, xform.ToAff3(), src.ToRGBA(), src.Bounds(), draw.Src, nil)
		return raster.FromImage(dst)
	}

	// Projective: walk the canvas, and pull each pixel back through the inverse.
	out := raster.New(w, h)
	inv, ok := xform.Inverse()
	if !ok {
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, ok := inv.ApplyToPoint(emath.Point{X: float64(x), Y: float64(y)})
			if !ok || p.X <= -1 || p.Y <= -1 || p.X >= float64(src.W) || p.Y >= float64(src.H) {
				continue
			}
			for c := 0; c < 3; c++ {
				out.SetChannel(x, y, c, emath.ClipU8(src.Bilinear(p.X, p.Y, c)+0.5))
			}
		}
	}
	return out
}

// WarpGrid maps a mask through `xform` onto a new w x h grid, with
// bilinear sampling; outside the source reads as zero.
func WarpGrid(src emath.FloatGrid, xform emath.Transform, w, h int) emath.FloatGrid {
	out := emath.NewFloatGrid(w, h)
	inv, ok := xform.Inverse()
	if !ok {
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, ok := inv.ApplyToPoint(emath.Point{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			out.Set(x, y, src.Bilinear(p.X, p.Y))
		}
	}
	return out
}
