package raster

import (
	"fmt"
)

// Fraction is an EXIF rational, e.g. a shutter speed of {1, 250}.
type Fraction [2]int64

func (f Fraction) String() string {
	if f[1] == 1 {
		return fmt.Sprintf("%d", f[0])
	}
	return fmt.Sprintf("%d/%d", f[0], f[1])
}

var (
	// The "whole" f-stops from f/1.0 to f/32, as x10 int values
	apertureX10FStops = []int{10, 14, 20, 28, 40, 56, 80, 110, 160, 220, 320}

	// Not quite mathematical, but this is what cameras show
	shutterSpeeds = []Fraction{
		{1, 4000}, {1, 2000}, {1, 1000}, {1, 500}, {1, 250}, {1, 125},
		{1, 60}, {1, 30}, {1, 15}, {1, 8}, {1, 4}, {1, 2},
		{1, 1}, {2, 1}, {4, 1}, {8, 1}, {16, 1}, {32, 1}, {64, 1},
	}
)

// An aperture index means nothing by itself, but the distance between two
// of them is a count of stops.
func closestApertureIndex(apertureX10 int) int {
	ret := 0
	for i, fstop := range apertureX10FStops {
		if fstop <= apertureX10 {
			ret = i
		}
	}
	return ret
}

func closestShutterSpeedIndex(in Fraction) int {
	ret := 0
	for i, ss := range shutterSpeeds {
		// in >= ss, cross-multiplied
		if in[0]*ss[1] >= ss[0]*in[1] {
			ret = i
		}
	}
	return ret
}

// HasExposure is true if the EXIF carried enough to compute an EV.
func (e ExifInfo) HasExposure() bool {
	return e.ApertureX10 > 0 && e.ShutterSpeed[0] > 0 && e.ShutterSpeed[1] > 0
}

// Exposure renders the settings the way a camera would.
func (e ExifInfo) Exposure() string {
	return fmt.Sprintf("f/%.1f, %ss, ISO%d", float64(e.ApertureX10)/10.0, e.ShutterSpeed, e.ISO)
}

// EV is the exposure value (https://en.wikipedia.org/wiki/Exposure_value),
// rounded to whole stops, and adjusted for ISO so that two frames with the
// same EV put the same brightness into the file. f/5.6 at 1/4000 and ISO100
// is EV 17; each stop of extra light lowers it by one.
func (e ExifInfo) EV() (int, error) {
	if !e.HasExposure() {
		return 0, fmt.Errorf("no exposure info in %s", e)
	}

	apStops := closestApertureIndex(e.ApertureX10) - closestApertureIndex(56)
	ssStops := closestShutterSpeedIndex(e.ShutterSpeed) - closestShutterSpeedIndex(Fraction{1, 4000})
	ev := 17 + apStops - ssStops

	switch e.ISO {
	case 0, 100: // assume ISO100 if it wasn't recorded
	case 50:
		ev += 1
	case 200:
		ev -= 1
	case 400:
		ev -= 2
	case 800:
		ev -= 3
	case 1600:
		ev -= 4
	case 3200:
		ev -= 5
	case 6400:
		ev -= 6
	case 12800:
		ev -= 7
	default:
		return 0, fmt.Errorf("%s has unhandled ISO", e.Exposure())
	}

	return ev, nil
}

// EVSpread returns the difference in stops between the brightest and
// darkest exposures in the set. Frames without usable EXIF are skipped; ok
// is false if fewer than two frames had any.
func EVSpread(frames []Frame) (spread int, ok bool) {
	n := 0
	lo, hi := 0, 0
	for _, f := range frames {
		ev, err := f.ExifInfo.EV()
		if err != nil {
			continue
		}
		if n == 0 || ev < lo {
			lo = ev
		}
		if n == 0 || ev > hi {
			hi = ev
		}
		n++
	}
	return hi - lo, n >= 2
}
