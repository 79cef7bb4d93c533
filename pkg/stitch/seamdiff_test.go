package stitch

import (
	"testing"

	"github.com/abworrall/panostitch/pkg/raster"
)

func TestDiffSeam(t *testing.T) {
	gray := raster.NewUniform(40, 20, 120, 120, 120)

	t.Run("identical", func(t *testing.T) {
		sd := DiffSeam(gray, gray, 10, 0.05, seamBright)
		if sd.Error != 0 || sd.Comparable != 1 {
			t.Fatalf("got %s", sd)
		}
		if sd.Grid.Dx() != 10 || sd.Grid.Dy() != 20 {
			t.Fatalf("grid is %dx%d", sd.Grid.Dx(), sd.Grid.Dy())
		}
	})

	t.Run("brighter", func(t *testing.T) {
		lighter := raster.NewUniform(30, 20, 160, 160, 160)
		sd := DiffSeam(gray, lighter, 10, 0.05, seamBright)
		if sd.Error <= 0 || sd.Comparable != 1 {
			t.Fatalf("got %s", sd)
		}
	})

	t.Run("only the overlap counts", func(t *testing.T) {
		left := gray.Copy()
		for y := 0; y < left.H; y++ {
			for x := 0; x < 30; x++ {
				left.SetRGB(x, y, 250, 10, 10)
			}
		}
		if sd := DiffSeam(left, gray, 10, 0.05, seamBright); sd.Error != 0 {
			t.Fatalf("pixels outside the overlap leaked in: %s", sd)
		}
	})

	t.Run("dark pixels are skipped", func(t *testing.T) {
		right := raster.NewUniform(30, 20, 120, 120, 120)
		for y := 0; y < 10; y++ {
			for x := 0; x < right.W; x++ {
				right.SetRGB(x, y, 0, 0, 0)
			}
		}
		sd := DiffSeam(gray, right, 10, 0.05, seamBright)
		if sd.Error != 0 || sd.Comparable != 0.5 {
			t.Fatalf("got %s", sd)
		}
	})

	t.Run("no overlap", func(t *testing.T) {
		if sd := DiffSeam(gray, gray, 0, 0.05, seamBright); sd.Comparable != 0 {
			t.Fatalf("got %s", sd)
		}
	})
}
