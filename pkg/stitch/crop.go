package stitch

import (
	"image"

	"github.com/abworrall/panostitch/pkg/raster"
)

// CropBorders trims away the black border left around a panorama. It
// finds the largest 8-connected region of non-black pixels, and crops to
// its bounding box grown by opts.Margin on each side (but never beyond
// the raster itself). Regions are ranked by the area inside their outer
// boundary, so holes count toward it. If there is no region at all, the
// raster comes back uncropped.
func CropBorders(r *raster.Raster, opts CropOptions) (*raster.Raster, image.Rectangle) {
	if r.Empty() {
		return r, image.Rectangle{}
	}

	box, ok := largestRegion(r.Foreground(opts.Threshold), r.W, r.H)
	if !ok {
		return r.Copy(), r.Bounds()
	}

	box = image.Rect(box.Min.X-opts.Margin, box.Min.Y-opts.Margin, box.Max.X+opts.Margin, box.Max.Y+opts.Margin)
	box = box.Intersect(r.Bounds())
	return r.Crop(box), box
}

// largestRegion labels the 8-connected components of `fg`, and returns
// the bounding box of the one enclosing the most area. Ties go to the
// first found in scan order.
func largestRegion(fg []bool, w, h int) (image.Rectangle, bool) {
	labels := make([]int, len(fg)) // 0 is unlabelled
	stack := []int{}
	bestArea := 0
	var best image.Rectangle

	for start := range fg {
		if !fg[start] || labels[start] != 0 {
			continue
		}

		label := start + 1
		box := image.Rect(start%w, start/w, start%w+1, start/w+1)
		labels[start] = label
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			box = box.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					xx, yy := x+dx, y+dy
					if xx < 0 || yy < 0 || xx >= w || yy >= h {
						continue
					}
					j := yy*w + xx
					if fg[j] && labels[j] == 0 {
						labels[j] = label
						stack = append(stack, j)
					}
				}
			}
		}

		if area := enclosedArea(labels, w, label, box); area > bestArea {
			bestArea, best = area, box
		}
	}
	return best, bestArea > 0
}

// enclosedArea counts the pixels of `box` that can't be reached from
// outside it without crossing the region `label`: the region plus its
// holes. The outside is walked 4-connected, as an 8-connected region
// seals off diagonal gaps.
func enclosedArea(labels []int, w, label int, box image.Rectangle) int {
	bw, bh := box.Dx()+2, box.Dy()+2 // a one pixel moat all round
	inRegion := func(gx, gy int) bool {
		x, y := box.Min.X+gx-1, box.Min.Y+gy-1
		if !(image.Point{x, y}.In(box)) {
			return false
		}
		return labels[y*w+x] == label
	}

	outside := make([]bool, bw*bh)
	outside[0] = true
	stack := []int{0}
	reached := 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		gx, gy := i%bw, i/bw
		if gx > 0 && gy > 0 && gx < bw-1 && gy < bh-1 {
			reached++
		}
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := gx+d[0], gy+d[1]
			if nx < 0 || ny < 0 || nx >= bw || ny >= bh {
				continue
			}
			j := ny*bw + nx
			if !outside[j] && !inRegion(nx, ny) {
				outside[j] = true
				stack = append(stack, j)
			}
		}
	}

	return box.Dx()*box.Dy() - reached
}
