package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// ResizeOptions bound the size of the frames fed into stitching. Too
// small and the feature detector finds nothing; too big and everything
// is slow.
type ResizeOptions struct {
	Disabled     bool `yaml:"disabled"`
	MinWidth     int  `yaml:"min_width"`     // Upscale anything narrower than this
	MaxDim       int  `yaml:"max_dim"`       // Downscale anything with a side longer than this
	MinKeypoints int  `yaml:"min_keypoints"` // Warn if a resized frame has fewer features than this
}

func DefaultResizeOptions() ResizeOptions {
	return ResizeOptions{
		MinWidth:     400,
		MaxDim:       1024,
		MinKeypoints: 500,
	}
}

// AdaptiveResize first upscales (Catmull-Rom) if the raster is narrower
// than MinWidth, then downscales (bilinear) if the largest side is over
// MaxDim. It returns the input itself if nothing needed doing.
func AdaptiveResize(r *Raster, opts ResizeOptions) *Raster {
	if opts.Disabled || r.Empty() {
		return r
	}
	w, h := r.W, r.H
	out := r

	if opts.MinWidth > 0 && w < opts.MinWidth {
		scale := float64(opts.MinWidth) / float64(w)
		w, h = int(float64(w)*scale), int(float64(h)*scale)
		out = scaleTo(out, w, h, draw.CatmullRom)
	}

	if opts.MaxDim > 0 && (w > opts.MaxDim || h > opts.MaxDim) {
		scale := float64(opts.MaxDim) / float64(w)
		if h > w {
			scale = float64(opts.MaxDim) / float64(h)
		}
		w, h = int(float64(w)*scale), int(float64(h)*scale)
		out = scaleTo(out, w, h, draw.BiLinear)
	}

	return out
}

func scaleTo(r *Raster, w, h int, scaler draw.Scaler) *Raster {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), r.ToRGBA(), r.Bounds(), draw.Src, nil)
	return FromImage(dst)
}
