package raster

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"math"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// A Frame is one input photo, as loaded from disk.
type Frame struct {
	LoadFilename string
	ExifInfo
	*Raster
}

func (f Frame) Filename() string { return filepath.Base(f.LoadFilename) }

func (f Frame) String() string {
	return fmt.Sprintf("%s: %dx%d %s", f.Filename(), f.W, f.H, f.ExifInfo)
}

// ExifInfo is the bit of the camera metadata that tells us whether the
// frames were shot with the same exposure. Everything is optional; lots of
// images have no EXIF at all.
type ExifInfo struct {
	Model        string
	ISO          int
	ApertureX10  int      // f/5.6 is the integer 56
	ShutterSpeed Fraction // 1/500, 2/1, etc.
}

func (e ExifInfo) String() string {
	if e == (ExifInfo{}) {
		return "[no exif]"
	}
	return fmt.Sprintf("[%s %s]", e.Model, e.Exposure())
}

// Inputs is everything LoadFilesAndDirs found.
type Inputs struct {
	Frames      []Frame
	ConfigFiles []string // .yaml files, for the caller to parse
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".webp": true}

// LoadFilesAndDirs loads each file, and recurses into each directory,
// in order. Directory contents are visited sorted by name, which is how
// the frames of a panorama are expected to be ordered.
func LoadFilesAndDirs(args ...string) (Inputs, error) {
	in := Inputs{}
	err := in.load(args...)
	return in, err
}

func (in *Inputs) load(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents (os.ReadDir sorts by filename)
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := in.load(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := in.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (in *Inputs) loadFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case imageExts[ext]:
		f, err := LoadFrame(filename)
		if err != nil {
			return err
		}
		in.Frames = append(in.Frames, f)

	case ext == ".yaml" || ext == ".yml":
		in.ConfigFiles = append(in.ConfigFiles, filename)
	}

	return nil
}

// LoadFrame decodes a single image file, and whatever EXIF it carries.
func LoadFrame(filename string) (Frame, error) {
	f := Frame{LoadFilename: filename}

	// The EXIF is a nice-to-have; a decode error just means there isn't any.
	if reader, err := os.Open(filename); err != nil {
		return f, fmt.Errorf("open+r exif '%s': %v", filename, err)
	} else {
		f.ExifInfo = readExif(reader)
		reader.Close()
	}

	// Re-open the file, now for the image data
	if reader, err := os.Open(filename); err != nil {
		return f, fmt.Errorf("open+r img '%s': %v", filename, err)
	} else {
		defer reader.Close()
		img, format, err := image.Decode(reader)
		if err != nil {
			return f, fmt.Errorf("%s decoding '%s': %v", format, filename, err)
		}
		f.Raster = FromImage(img)
	}

	if f.Raster.Empty() {
		return f, fmt.Errorf("image '%s' has no pixels", filename)
	}
	return f, nil
}

func readExif(reader *os.File) ExifInfo {
	info := ExifInfo{}
	ex, err := exif.Decode(reader)
	if err != nil {
		return info
	}

	if tag, err := ex.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			info.Model = strings.TrimSpace(s)
		}
	}
	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			info.ISO = v
		}
	}
	if tag, err := ex.Get(exif.FNumber); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			info.ApertureX10 = int(math.Round(10 * float64(num) / float64(denom)))
		}
	}
	if tag, err := ex.Get(exif.ExposureTime); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && num > 0 && denom > 0 {
			info.ShutterSpeed = Fraction{num, denom}
		}
	}
	return info
}
