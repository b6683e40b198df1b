// Public domain.

// Package fitsfile reads and writes the primary image HDU of FITS files.
//
// Files ending in .gz are transparently (de)compressed.  Pixel values are
// returned as physical values, that is with BZERO and BSCALE applied.
package fitsfile

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"

	"github.com/saft-obs/saftlog/internal/errs"
)

// HDU is a primary header and data unit.
type HDU struct {
	Header *Header
	Bitpix int
	Axes   []int // NAXIS1 (x, fastest varying) first
	Pixels []float64
}

// Width is NAXIS1, or 0 if there are no axes.
func (h *HDU) Width() int {
	if len(h.Axes) < 1 {
		return 0
	}
	return h.Axes[0]
}

// Height is NAXIS2, or 0 if there are fewer than two axes.
func (h *HDU) Height() int {
	if len(h.Axes) < 2 {
		return 0
	}
	return h.Axes[1]
}

// Open reads the primary HDU of the file at path.
//
// An unreadable file is an i/o error, content that is not a FITS image is a
// data error.
func Open(path string) (*HDU, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("fitsfile.Open", path, err)
	}
	defer f.Close()
	var r io.Reader = f
	if compressed(path) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errs.Data("fitsfile.Open", path, err)
		}
		defer zr.Close()
		r = zr
	}
	hdu, err := Decode(r)
	if err != nil {
		return nil, errs.Data("fitsfile.Open", path, err)
	}
	return hdu, nil
}

// Decode reads the primary HDU from r.
func Decode(r io.Reader) (*HDU, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}
	defer img.Close()

	fh := img.Header()
	hdu := &HDU{
		Header: &Header{},
		Bitpix: fh.Bitpix(),
		Axes:   append([]int(nil), fh.Axes()...),
	}
	for _, k := range fh.Keys() {
		if c := fh.Get(k); c != nil {
			hdu.Header.Set(c.Name, c.Value)
		}
	}
	if len(hdu.Axes) == 0 {
		return hdu, nil
	}
	n, err := pixelCount(hdu.Axes)
	if err != nil {
		return nil, err
	}
	raw, err := readPixels(img, hdu.Bitpix, n)
	if err != nil {
		return nil, err
	}
	bzero, bscale := hdu.scaling()
	if bzero != 0 || bscale != 1 {
		for i, v := range raw {
			raw[i] = bzero + bscale*v
		}
	}
	hdu.Pixels = raw
	return hdu, nil
}

// Write writes hdu as a single image HDU file at path.
func Write(path string, hdu *HDU) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.IO("fitsfile.Write", path, err)
	}
	defer f.Close()
	if !compressed(path) {
		if err := Encode(f, hdu); err != nil {
			return errs.Data("fitsfile.Write", path, err)
		}
		return closeFile(f, path)
	}
	zw := gzip.NewWriter(f)
	if err := Encode(zw, hdu); err != nil {
		zw.Close()
		return errs.Data("fitsfile.Write", path, err)
	}
	if err := zw.Close(); err != nil {
		return errs.IO("fitsfile.Write", path, err)
	}
	return closeFile(f, path)
}

func closeFile(f *os.File, path string) error {
	if err := f.Close(); err != nil {
		return errs.IO("fitsfile.Write", path, err)
	}
	return nil
}

// Encode writes hdu to w.  Structural keywords in hdu.Header are replaced
// by values derived from Bitpix and Axes.
func Encode(w io.Writer, hdu *HDU) error {
	bitpix := hdu.Bitpix
	if bitpix == 0 {
		bitpix = -64
	}
	n := 1
	for _, a := range hdu.Axes {
		n *= a
	}
	if len(hdu.Axes) > 0 && n != len(hdu.Pixels) {
		return fmt.Errorf("%d pixels for axes %v", len(hdu.Pixels), hdu.Axes)
	}
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	img := fitsio.NewImage(bitpix, hdu.Axes)
	defer img.Close()
	var cards []fitsio.Card
	if hdu.Header != nil {
		for _, c := range hdu.Header.Cards() {
			if structural(c.Name) {
				continue
			}
			cards = append(cards, fitsio.Card{Name: c.Name, Value: c.Value, Comment: c.Comment})
		}
	}
	if err := img.Header().Append(cards...); err != nil {
		return err
	}
	if len(hdu.Axes) > 0 {
		if err := writePixels(img, bitpix, hdu.unscaled()); err != nil {
			return err
		}
	}
	if err := f.Write(img); err != nil {
		return err
	}
	return f.Close()
}

func (h *HDU) scaling() (bzero, bscale float64) {
	bscale = 1
	if h.Header == nil {
		return
	}
	if v, ok := h.Header.Float("BZERO"); ok {
		bzero = v
	}
	if v, ok := h.Header.Float("BSCALE"); ok && v != 0 {
		bscale = v
	}
	return
}

func (h *HDU) unscaled() []float64 {
	bzero, bscale := h.scaling()
	if bzero == 0 && bscale == 1 {
		return h.Pixels
	}
	raw := make([]float64, len(h.Pixels))
	for i, v := range h.Pixels {
		raw[i] = (v - bzero) / bscale
	}
	return raw
}

// readPixels reads the n pixels of img.  fitsio fills the slice it is
// given, it does not allocate.
func readPixels(img fitsio.Image, bitpix, n int) ([]float64, error) {
	switch bitpix {
	case 8:
		d := make([]uint8, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return widen(len(d), func(i int) float64 { return float64(d[i]) }), nil
	case 16:
		d := make([]int16, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return widen(len(d), func(i int) float64 { return float64(d[i]) }), nil
	case 32:
		d := make([]int32, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return widen(len(d), func(i int) float64 { return float64(d[i]) }), nil
	case 64:
		d := make([]int64, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return widen(len(d), func(i int) float64 { return float64(d[i]) }), nil
	case -32:
		d := make([]float32, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return widen(len(d), func(i int) float64 { return float64(d[i]) }), nil
	case -64:
		d := make([]float64, n)
		if err := img.Read(&d); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
}

// pixelCount is the product of the axis lengths.
func pixelCount(axes []int) (int, error) {
	n := 1
	for _, a := range axes {
		if a < 0 {
			return 0, fmt.Errorf("negative axis length %d", a)
		}
		n *= a
	}
	return n, nil
}

func widen(n int, at func(int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

func writePixels(img fitsio.Image, bitpix int, px []float64) error {
	switch bitpix {
	case 8:
		d := make([]uint8, len(px))
		for i, v := range px {
			d[i] = uint8(clampRound(v, 0, math.MaxUint8))
		}
		return img.Write(&d)
	case 16:
		d := make([]int16, len(px))
		for i, v := range px {
			d[i] = int16(clampRound(v, math.MinInt16, math.MaxInt16))
		}
		return img.Write(&d)
	case 32:
		d := make([]int32, len(px))
		for i, v := range px {
			d[i] = int32(clampRound(v, math.MinInt32, math.MaxInt32))
		}
		return img.Write(&d)
	case 64:
		d := make([]int64, len(px))
		for i, v := range px {
			d[i] = int64(math.Round(v))
		}
		return img.Write(&d)
	case -32:
		d := make([]float32, len(px))
		for i, v := range px {
			d[i] = float32(v)
		}
		return img.Write(&d)
	case -64:
		d := append([]float64(nil), px...)
		return img.Write(&d)
	}
	return fmt.Errorf("unsupported BITPIX %d", bitpix)
}

func clampRound(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, math.Round(v)))
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

func structural(name string) bool {
	switch name {
	case "SIMPLE", "BITPIX", "EXTEND", "END", "XTENSION", "PCOUNT", "GCOUNT", "NAXIS":
		return true
	}
	return strings.HasPrefix(name, "NAXIS")
}
