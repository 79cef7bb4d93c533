package raster

import (
	"fmt"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// hdrView presents a Raster in the RGB color space that the rgbe encoder
// wants; the Raster itself stays on color.RGBAModel for png and jpeg.
type hdrView struct {
	*Raster
}

func (v hdrView) ColorModel() color.Model { return hdrcolor.RGBModel }

// WriteFile encodes the raster according to the filename's extension:
// .png, .jpg/.jpeg, or .hdr (Radiance RGBE, which you can load into
// photoshop or other HDR tools).
func WriteFile(r *Raster, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		err = png.Encode(writer, r)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(writer, r, &jpeg.Options{Quality: 95})
	case ".hdr":
		err = rgbe.Encode(writer, hdrView{r})
	default:
		err = fmt.Errorf("unknown output format %q", ext)
	}

	if err != nil {
		return fmt.Errorf("encoding '%s': %v", filename, err)
	}
	return nil
}
