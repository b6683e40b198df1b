// Public domain.

// Package render writes display-scaled frames as grayscale PNG images.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/snapshot"
)

// Gray converts row-major values in [0,255] to an image.  Row 0 of the
// grid is the bottom row of the image, as displays of sky frames put it.
func Gray(width, height int, vals []float64) (*image.Gray, error) {
	if width <= 0 || height <= 0 || len(vals) != width*height {
		return nil, errs.Dataf("render.Gray", "",
			"%d values for a %dx%d image", len(vals), width, height)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := vals[y*width : (y+1)*width]
		for x, v := range row {
			img.SetGray(x, height-1-y, color.Gray{Y: level(v)})
		}
	}
	return img, nil
}

func level(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

// PNG writes the values as a grayscale PNG at path, replacing any
// previous image atomically so a viewer never loads half a file.
func PNG(path string, width, height int, vals []float64) error {
	img, err := Gray(width, height, vals)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errs.IO("render.PNG", path, err)
	}
	return snapshot.Write(path, buf.Bytes())
}
