package stitch

import (
	"image"
	"testing"

	"github.com/abworrall/panostitch/pkg/raster"
)

func fillRect(r *raster.Raster, rect image.Rectangle, v uint8) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r.SetRGB(x, y, v, v, v)
		}
	}
}

func TestCropBorders(t *testing.T) {
	tests := []struct {
		name  string
		rects []image.Rectangle
		want  image.Rectangle
	}{
		{"one region", []image.Rectangle{image.Rect(20, 10, 40, 30)}, image.Rect(15, 5, 45, 35)},
		{"clamped at edge", []image.Rectangle{image.Rect(2, 0, 10, 5)}, image.Rect(0, 0, 15, 10)},
		{"largest wins", []image.Rectangle{image.Rect(0, 0, 3, 3), image.Rect(50, 20, 70, 40), image.Rect(90, 45, 92, 47)}, image.Rect(45, 15, 75, 45)},
		{"diagonal neighbours join", []image.Rectangle{image.Rect(10, 10, 20, 20), image.Rect(20, 20, 30, 30), image.Rect(60, 10, 70, 20)}, image.Rect(5, 5, 35, 35)},
		{"nothing there", nil, image.Rect(0, 0, 100, 50)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := raster.New(100, 50)
			for _, rect := range tc.rects {
				fillRect(r, rect, 200)
			}
			out, box := CropBorders(r, NewConfig().Crop)
			if box != tc.want {
				t.Fatalf("cropped to %v, want %v", box, tc.want)
			}
			if out.W != tc.want.Dx() || out.H != tc.want.Dy() {
				t.Fatalf("output is %s", out)
			}
		})
	}
}

func TestCropIgnoresNearBlack(t *testing.T) {
	r := raster.New(50, 50)
	fillRect(r, image.Rect(0, 0, 50, 50), 1) // at the threshold, so still border
	fillRect(r, image.Rect(20, 20, 30, 30), 80)
	_, box := CropBorders(r, NewConfig().Crop)
	if box != image.Rect(15, 15, 35, 35) {
		t.Fatalf("got %v", box)
	}
}

func TestCropCountsHolesInArea(t *testing.T) {
	r := raster.New(100, 50)
	// A hollow ring: 224 pixels, but 900 inside its outline
	fillRect(r, image.Rect(5, 5, 35, 35), 200)
	fillRect(r, image.Rect(7, 7, 33, 33), 0)
	// A solid block: 256 pixels
	fillRect(r, image.Rect(60, 10, 76, 26), 200)

	_, box := CropBorders(r, NewConfig().Crop)
	if box != image.Rect(0, 0, 40, 40) {
		t.Fatalf("got %v, want the ring", box)
	}
}

func TestEnclosedArea(t *testing.T) {
	w := 10
	labels := make([]int, w*w)
	// A U shape opening upward; the notch is open so doesn't count
	for y := 2; y < 8; y++ {
		labels[y*w+2], labels[y*w+6] = 1, 1
	}
	for x := 2; x <= 6; x++ {
		labels[7*w+x] = 1
	}
	if got := enclosedArea(labels, w, 1, image.Rect(2, 2, 7, 8)); got != 6+6+3 {
		t.Fatalf("U shape: got %d, want 15", got)
	}

	// Close the top, and the 3x5 inside counts
	for x := 2; x <= 6; x++ {
		labels[2*w+x] = 1
	}
	if got := enclosedArea(labels, w, 1, image.Rect(2, 2, 7, 8)); got != 30 {
		t.Fatalf("box: got %d, want 30", got)
	}
}
