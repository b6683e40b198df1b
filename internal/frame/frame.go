// Public domain.

// Package frame holds single CCD exposures and the arithmetic used to
// calibrate and stack them.
package frame

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/logging"
)

// Type classifies an exposure.
type Type int

const (
	Undefined Type = iota
	Bias
	Flat
	Dark
	Science
)

var typeNames = [...]string{"undefined", "bias", "flat", "dark", "science"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[Undefined]
	}
	return typeNames[t]
}

// ParseType maps an IMAGETYP value ("Light Frame", "Bias Frame",
// "Flat Field", "dark", ...) to a Type.
func ParseType(s string) Type {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "bias"), strings.Contains(s, "zero"):
		return Bias
	case strings.Contains(s, "flat"):
		return Flat
	case strings.Contains(s, "dark"):
		return Dark
	case strings.Contains(s, "light"), strings.Contains(s, "object"),
		strings.Contains(s, "science"):
		return Science
	}
	return Undefined
}

// Header keywords read by Load.  A frame records the ones it did not find
// in Missing.
const (
	KeyXBinning = "XBINNING"
	KeyYBinning = "YBINNING"
	KeyExpTime  = "EXPTIME"
	KeyMJD      = "MJD-OBS"
	KeyFilter   = "FILTER"
	KeyTelescop = "TELESCOP"
	KeyElev     = "ELEVATIO"
	KeyCCDTemp  = "CCD-TEMP"
	KeyRA       = "RA"
	KeyDec      = "DEC"
	KeyImageTyp = "IMAGETYP"
)

// Frame is one exposure: its pixel grid and the header metadata the
// pipeline uses.  Metadata fields are nil when the keyword was absent.
type Frame struct {
	Index    int
	Filename string
	Type     Type

	ExposureTime *float64 // seconds
	MJD          *float64
	CCDTemp      *float64
	Filter       *string
	Telescope    *string
	Elevation    *string // sexagesimal degrees
	RA, Dec      *string

	Missing []string // header keywords not found at load

	// grid and binning are only ever set together, by New
	width, height int
	xbin, ybin    int
	pix           []float64

	stats *Stats
}

// Stats summarises the pixel values of a frame.
type Stats struct {
	Median, Min, Max float64
}

// New makes a frame from a row-major pixel grid.  Binning factors of 0 mean
// unknown.  pix is used, not copied.
func New(width, height, xbin, ybin int, pix []float64) (*Frame, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil, errs.Dataf("frame.New", "",
			"%d pixels for a %dx%d grid", len(pix), width, height)
	}
	return &Frame{width: width, height: height, xbin: xbin, ybin: ybin, pix: pix}, nil
}

// Load builds a frame from a primary HDU.  Absent keywords leave their
// field nil and are listed in Missing.  The only failure is a pixel grid
// that is absent or not two dimensional.
func Load(hdu *fitsfile.HDU) (*Frame, error) {
	if hdu == nil || len(hdu.Axes) == 0 || len(hdu.Pixels) == 0 {
		return nil, errs.Dataf("frame.Load", "", "no pixel data")
	}
	if len(hdu.Axes) < 2 {
		return nil, errs.Dataf("frame.Load", "", "image has axes %v, want 2", hdu.Axes)
	}
	for _, a := range hdu.Axes[2:] {
		if a != 1 {
			return nil, errs.Dataf("frame.Load", "", "image has axes %v, want 2", hdu.Axes)
		}
	}
	h := hdu.Header
	var missing []string
	intKey := func(k string) int {
		if v, ok := h.Int(k); ok {
			return v
		}
		missing = append(missing, k)
		return 0
	}
	floatKey := func(k string) *float64 {
		if v, ok := h.Float(k); ok {
			return &v
		}
		missing = append(missing, k)
		return nil
	}
	stringKey := func(k string) *string {
		if v, ok := h.String(k); ok {
			return &v
		}
		missing = append(missing, k)
		return nil
	}

	xbin := intKey(KeyXBinning)
	ybin := intKey(KeyYBinning)
	f, err := New(hdu.Axes[0], hdu.Axes[1], xbin, ybin, hdu.Pixels)
	if err != nil {
		return nil, err
	}
	f.ExposureTime = floatKey(KeyExpTime)
	f.MJD = floatKey(KeyMJD)
	f.CCDTemp = floatKey(KeyCCDTemp)
	f.Filter = stringKey(KeyFilter)
	f.Telescope = stringKey(KeyTelescop)
	f.Elevation = stringKey(KeyElev)
	f.RA = stringKey(KeyRA)
	f.Dec = stringKey(KeyDec)
	if t, ok := h.String(KeyImageTyp); ok {
		f.Type = ParseType(t)
	}
	f.Missing = missing
	return f, nil
}

// LoadFile opens path and loads its primary HDU, reporting each missing
// keyword as a warning on log.
func LoadFile(ctx context.Context, path string, log logging.Logger) (*Frame, error) {
	hdu, err := fitsfile.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := Load(hdu)
	if err != nil {
		return nil, errs.Data("frame.LoadFile", path, err)
	}
	f.Filename = path
	for _, k := range f.Missing {
		log.Warn(ctx, "could not find FITS header",
			logging.String("key", k), logging.String("file", path))
	}
	return f, nil
}

// Width is the number of pixels along NAXIS1.
func (f *Frame) Width() int { return f.width }

// Height is the number of pixels along NAXIS2.
func (f *Frame) Height() int { return f.height }

// Binning returns the x and y binning factors, 0 when unknown.
func (f *Frame) Binning() (x, y int) { return f.xbin, f.ybin }

// Pixels returns the row-major grid.  Callers must not modify it.
func (f *Frame) Pixels() []float64 { return f.pix }

// At returns the pixel at column x, row y.
func (f *Frame) At(x, y int) float64 { return f.pix[y*f.width+x] }

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := *f
	c.pix = append([]float64(nil), f.pix...)
	c.Missing = append([]string(nil), f.Missing...)
	if f.stats != nil {
		s := *f.stats
		c.stats = &s
	}
	return &c
}

// Stats returns median, min and max, computed on first use and cached
// until the grid next changes.
func (f *Frame) Stats() Stats {
	if f.stats == nil {
		f.stats = computeStats(f.pix)
	}
	return *f.stats
}

func (f *Frame) Median() float64 { return f.Stats().Median }
func (f *Frame) Min() float64    { return f.Stats().Min }
func (f *Frame) Max() float64    { return f.Stats().Max }

// computeStats ignores NaN pixels.  A grid with nothing else has NaN
// stats.
func computeStats(pix []float64) *Stats {
	s := make([]float64, 0, len(pix))
	for _, v := range pix {
		if !math.IsNaN(v) {
			s = append(s, v)
		}
	}
	n := len(s)
	if n == 0 {
		return &Stats{Median: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}
	sort.Float64s(s)
	st := &Stats{Min: s[0], Max: s[n-1]}
	if n%2 == 1 {
		st.Median = s[n/2]
	} else {
		st.Median = (s[n/2-1] + s[n/2]) / 2
	}
	return st
}

func (f *Frame) String() string {
	mjd := "--"
	if f.MJD != nil {
		mjd = fmt.Sprintf("%f", *f.MJD)
	}
	return fmt.Sprintf("Frame number: %d  MJD: %s  Binning: (%dx%d)  Dimensions: (%dx%d)",
		f.Index, mjd, f.xbin, f.ybin, f.width, f.height)
}
