package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a single channel grid of floats, with some
// operations. Masks and grayscale planes are all FloatGrids.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }

func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

// Max returns the largest value in the grid (0 for an empty grid)
func (fg *FloatGrid) Max() float64 {
	max := 0.0
	for i, v := range fg.values {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// NormalizeByMax divides every value by the grid's maximum, so the max
// becomes exactly 1.0. A grid with no positive values is left alone.
func (fg *FloatGrid) NormalizeByMax() {
	max := fg.Max()
	if max <= 0 {
		return
	}
	for i := range fg.values {
		fg.values[i] /= max
	}
	// Division can leave the max a hair off 1.0; pin it.
	for i := range fg.values {
		if fg.values[i] > 1.0 {
			fg.values[i] = 1.0
		}
	}
}

// The fixed 5-tap kernel that OpenCV uses for a 5x5 Gaussian when sigma
// is derived from the kernel size.
var gauss5 = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// reflect101 maps an out-of-range index back into [0,n), mirroring
// about the edge pixels without repeating them (gfedcb|abcdefgh|gfedcba)
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// GaussianBlur5x5 applies a separable 5x5 Gaussian.
func (g1 FloatGrid) GaussianBlur5x5() FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	g2 := g1.NewFromThis()
	T := g1.NewFromThis()

	//--- X blur, build up in T
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for k := -2; k <= 2; k++ {
				t += gauss5[k+2] * g1.Get(reflect101(x+k, width), y)
			}
			T.Set(x, y, t)
		}
	}

	//--- Y blur, read from T and generate output
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			t := 0.0
			for k := -2; k <= 2; k++ {
				t += gauss5[k+2] * T.Get(x, reflect101(y+k, height))
			}
			g2.Set(x, y, t)
		}
	}

	return g2
}

// Bilinear samples the grid at a fractional position; anything outside
// the grid reads as zero.
func (fg *FloatGrid) Bilinear(x, y float64) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)
	get := func(xx, yy int) float64 {
		if xx < 0 || yy < 0 || xx >= fg.Dx() || yy >= fg.Dy() {
			return 0
		}
		return fg.Get(xx, yy)
	}
	top := get(x0, y0)*(1-fx) + get(x0+1, y0)*fx
	bot := get(x0, y0+1)*(1-fx) + get(x0+1, y0+1)*fx
	return top*(1-fy) + bot*fy
}

// Stats is a one-line summary, for debug logs
func (fg *FloatGrid) Stats() string {
	min := math.MaxFloat64
	max := -1.0 * min

	for i := 0; i < len(fg.values); i++ {
		if fg.values[i] > max {
			max = fg.values[i]
		}
		if fg.values[i] < min {
			min = fg.values[i]
		}
	}
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid) ToImg(title, filename string) error {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for i := 0; i < len(fg.values); i++ {
		if fg.values[i] > max {
			max = fg.values[i]
		}
		if fg.values[i] < min {
			min = fg.values[i]
		}
	}
	if max <= min {
		max = min + 1 // flat grid; avoid 0/0
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for x := 0; x < fg.Dx(); x++ {
		for y := 0; y < fg.Dy(); y++ {
			gray := GammaExpand_F64((fg.Get(x, y) - min) / (max - min))
			v := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{v, v, v, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 0, 0)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
