package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/panostitch/pkg/ecolor"
	"github.com/abworrall/panostitch/pkg/emath"
)

// A Raster is a W x H grid of 8-bit RGB samples, packed row-major, three
// bytes per pixel. Implements the image.Image and hdr.Image interfaces, so
// it can be handed straight to the encoders.
//
// Rasters are not shared between pipeline stages; anything that wants to
// keep one around after passing it on should Copy() it.
type Raster struct {
	W, H int
	Pix  []uint8
}

func New(w, h int) *Raster {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Raster{W: w, H: h, Pix: make([]uint8, 3*w*h)}
}

// NewUniform returns a raster filled with a single color
func NewUniform(w, h int, r, g, b uint8) *Raster {
	ras := New(w, h)
	for i := 0; i < len(ras.Pix); i += 3 {
		ras.Pix[i], ras.Pix[i+1], ras.Pix[i+2] = r, g, b
	}
	return ras
}

// FromImage copies any image.Image into a new Raster, dropping alpha.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	ras := New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA() // channel values in range [0, 0xFFFF]
			ras.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return ras
}

func (r *Raster) String() string { return fmt.Sprintf("Raster[%dx%d]", r.W, r.H) }

// Empty is true for a raster with no pixels.
func (r *Raster) Empty() bool { return r == nil || r.W <= 0 || r.H <= 0 }

func (r *Raster) Copy() *Raster {
	c := &Raster{W: r.W, H: r.H, Pix: make([]uint8, len(r.Pix))}
	copy(c.Pix, r.Pix)
	return c
}

// Pixel access
func (r *Raster) offset(x, y int) int { return 3 * (y*r.W + x) }

func (r *Raster) RGB(x, y int) (uint8, uint8, uint8) {
	i := r.offset(x, y)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

func (r *Raster) SetRGB(x, y int, red, green, blue uint8) {
	i := r.offset(x, y)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

// Channel returns one sample; c is 0,1,2 for R,G,B
func (r *Raster) Channel(x, y, c int) uint8     { return r.Pix[r.offset(x, y)+c] }
func (r *Raster) SetChannel(x, y, c int, v uint8) { r.Pix[r.offset(x, y)+c] = v }

// Implement image.Image
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.W, r.H) }
func (r *Raster) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.W || y >= r.H {
		return color.RGBA{}
	}
	red, green, blue := r.RGB(x, y)
	return color.RGBA{red, green, blue, 0xFF}
}

// Implement hdr.Image
func (r *Raster) HDRAt(x, y int) hdrcolor.Color {
	red, green, blue := r.RGB(x, y)
	return hdrcolor.RGB{R: float64(red) / 255.0, G: float64(green) / 255.0, B: float64(blue) / 255.0}
}
func (r *Raster) Size() int { return r.W * r.H }

// ToRGBA makes an image.RGBA copy, for the golang.org/x/image/draw routines.
func (r *Raster) ToRGBA() *image.RGBA {
	img := image.NewRGBA(r.Bounds())
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			i := img.PixOffset(x, y)
			red, green, blue := r.RGB(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = red, green, blue, 0xFF
		}
	}
	return img
}

// GrayGrid returns the BT.601 luma of every pixel, rounded to 8-bit
// levels, in [0,255].
func (r *Raster) GrayGrid() emath.FloatGrid {
	g := emath.NewFloatGrid(r.W, r.H)
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			g.Set(x, y, float64(ecolor.GrayU8(r.RGB(x, y))))
		}
	}
	return g
}

// Foreground returns a mask that is true wherever the pixel's gray level
// is above `thresh`.
func (r *Raster) Foreground(thresh uint8) []bool {
	fg := make([]bool, r.W*r.H)
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			fg[y*r.W+x] = ecolor.GrayU8(r.RGB(x, y)) > thresh
		}
	}
	return fg
}

// PadToHeight returns a copy with zero rows appended at the bottom. If the
// raster is already at least h tall, it is just copied.
func (r *Raster) PadToHeight(h int) *Raster {
	if h <= r.H {
		return r.Copy()
	}
	out := New(r.W, h)
	copy(out.Pix, r.Pix)
	return out
}

// Crop returns a copy of the pixels inside rect, which is clipped to the
// raster's own bounds first.
func (r *Raster) Crop(rect image.Rectangle) *Raster {
	rect = rect.Intersect(r.Bounds())
	out := New(rect.Dx(), rect.Dy())
	for y := 0; y < rect.Dy(); y++ {
		src := r.offset(rect.Min.X, rect.Min.Y+y)
		dst := out.offset(0, y)
		copy(out.Pix[dst:dst+3*rect.Dx()], r.Pix[src:src+3*rect.Dx()])
	}
	return out
}

// MapChannels runs every sample through a lookup table, into a new raster.
func (r *Raster) MapChannels(lut [256]uint8) *Raster {
	out := &Raster{W: r.W, H: r.H, Pix: make([]uint8, len(r.Pix))}
	for i, v := range r.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// Bilinear samples channel c at a fractional position; outside reads as zero.
func (r *Raster) Bilinear(x, y float64, c int) float64 {
	x0, y0 := floor(x), floor(y)
	fx, fy := x-float64(x0), y-float64(y0)
	get := func(xx, yy int) float64 {
		if xx < 0 || yy < 0 || xx >= r.W || yy >= r.H {
			return 0
		}
		return float64(r.Channel(xx, yy, c))
	}
	top := get(x0, y0)*(1-fx) + get(x0+1, y0)*fx
	bot := get(x0, y0+1)*(1-fx) + get(x0+1, y0+1)*fx
	return top*(1-fy) + bot*fy
}

func floor(f float64) int {
	i := int(f)
	if float64(i) > f {
		i--
	}
	return i
}
