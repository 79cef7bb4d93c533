package raster

import (
	"image"
	"image/color"
	"testing"
)

func TestNewAndAccess(t *testing.T) {
	r := New(4, 3)
	if len(r.Pix) != 36 || r.Empty() {
		t.Fatalf("bad raster %s", r)
	}
	r.SetRGB(3, 2, 1, 2, 3)
	if red, g, b := r.RGB(3, 2); red != 1 || g != 2 || b != 3 {
		t.Fatalf("got (%d,%d,%d)", red, g, b)
	}
	if r.Channel(3, 2, 1) != 2 {
		t.Fatalf("channel access broken")
	}
	if !New(-1, 5).Empty() || !(*Raster)(nil).Empty() {
		t.Fatalf("expected empty")
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 13, 12))
	img.Set(10, 10, color.RGBA{200, 100, 50, 255})
	img.Set(12, 11, color.RGBA{1, 2, 3, 255})

	r := FromImage(img)
	if r.W != 3 || r.H != 2 {
		t.Fatalf("got %s", r)
	}
	if red, g, b := r.RGB(0, 0); red != 200 || g != 100 || b != 50 {
		t.Fatalf("origin is (%d,%d,%d)", red, g, b)
	}
	if red, g, b := r.RGB(2, 1); red != 1 || g != 2 || b != 3 {
		t.Fatalf("corner is (%d,%d,%d)", red, g, b)
	}

	back := r.ToRGBA()
	if c := back.RGBAAt(2, 1); c != (color.RGBA{1, 2, 3, 255}) {
		t.Fatalf("ToRGBA gave %v", c)
	}
}

func TestCropAndPad(t *testing.T) {
	r := NewUniform(10, 6, 9, 9, 9)
	r.SetRGB(5, 3, 1, 1, 1)

	c := r.Crop(image.Rect(4, 2, 20, 5))
	if c.W != 6 || c.H != 3 {
		t.Fatalf("crop should clip to the raster, got %s", c)
	}
	if red, _, _ := c.RGB(1, 1); red != 1 {
		t.Fatalf("crop lost its pixel")
	}

	p := r.PadToHeight(8)
	if p.H != 8 || p.W != 10 {
		t.Fatalf("got %s", p)
	}
	if red, _, _ := p.RGB(0, 7); red != 0 {
		t.Fatalf("padding should be black")
	}
	if red, _, _ := p.RGB(5, 3); red != 1 {
		t.Fatalf("pad moved the pixels")
	}
	if q := r.PadToHeight(2); q.H != 6 || q == r {
		t.Fatalf("should get a same-size copy")
	}
}

func TestMapChannels(t *testing.T) {
	lut := [256]uint8{}
	for i := range lut {
		lut[i] = uint8(255 - i)
	}
	r := NewUniform(2, 2, 0, 100, 255)
	m := r.MapChannels(lut)
	if red, g, b := m.RGB(1, 1); red != 255 || g != 155 || b != 0 {
		t.Fatalf("got (%d,%d,%d)", red, g, b)
	}
	if r.Pix[0] != 0 {
		t.Fatalf("source modified")
	}
}

func TestGrayAndForeground(t *testing.T) {
	r := New(3, 1)
	r.SetRGB(0, 0, 255, 255, 255)
	r.SetRGB(1, 0, 2, 2, 2)
	g := r.GrayGrid()
	if g.Get(0, 0) != 255 || g.Get(1, 0) != 2 || g.Get(2, 0) != 0 {
		t.Fatalf("gray is %s", g.Stats())
	}

	fg := r.Foreground(1)
	if !fg[0] || !fg[1] || fg[2] {
		t.Fatalf("foreground is %v", fg)
	}
}

func TestRasterBilinear(t *testing.T) {
	r := New(2, 1)
	r.SetRGB(0, 0, 0, 0, 0)
	r.SetRGB(1, 0, 100, 100, 100)
	if v := r.Bilinear(0.25, 0, 0); v != 25 {
		t.Fatalf("got %f", v)
	}
	if v := r.Bilinear(-0.5, 0, 0); v != 0 {
		t.Fatalf("outside should blend with black, got %f", v)
	}
}
