// Public domain.

// Package nightlog derives per-target observing statistics for one night
// from the FITS headers of the first and last exposure of each target.
package nightlog

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/frame"
	"github.com/saft-obs/saftlog/internal/target"
)

// Unknown replaces an empty or missing filter or telescope name.
const Unknown = "--unknown--"

// Header keywords read beyond the frame key set.
const (
	KeyObjRA   = "OBJRA"
	KeyObjDec  = "OBJDEC"
	KeyFocus   = "FOCUSPOS"
	KeyDateObs = "DATE-OBS"
)

// Record is one target's entry in the nightly snapshot.  Pointer fields
// are null when the header lacks the keyword.
type Record struct {
	Name                 string   `json:"name"`
	StartFrame           int      `json:"startFrame"`
	EndFrame             int      `json:"endFrame"`
	NumFrames            int      `json:"numFrames"`
	XBin                 *int     `json:"xbin"`
	YBin                 *int     `json:"ybin"`
	Telescope            string   `json:"telescope"`
	TargetRA             *string  `json:"targetRA"`
	TargetDec            *string  `json:"targetDEC"`
	TelescopeRA          *string  `json:"telescopeRA"`
	TelescopeDec         *string  `json:"telescopeDEC"`
	Filter               string   `json:"filter"`
	StartElevation       string   `json:"startElevation"`
	StartAirmass         float64  `json:"startAirmass"`
	ExposureTime         float64  `json:"exposureTime"`
	StartMJD             float64  `json:"startMJD"`
	FocusPosition        *float64 `json:"focusPosition"`
	XPixels              int      `json:"xpixels"`
	YPixels              int      `json:"ypixels"`
	StartObservationUTC  string   `json:"startObservationUTC"`
	EndElevation         string   `json:"endElevation"`
	EndAirmass           float64  `json:"endAirmass"`
	EndMJD               float64  `json:"endMJD"`
	EndObservationUTC    string   `json:"endObservationUTC"`
	DurationMinutes      float64  `json:"durationMinutes"`
	DeadTime             float64  `json:"deadTime"`
	EstimatedReadoutTime float64  `json:"estimatedReadoutTime"`
}

// ParseDMS parses a sexagesimal angle of the form [-]D:M:S.s as written by
// the telescope control software into header fields.
func ParseDMS(s string) (unit.Angle, error) {
	f := strings.Split(strings.TrimSpace(s), ":")
	if len(f) != 3 {
		return 0, errs.Dataf("nightlog.ParseDMS", s, "want D:M:S, got %d fields", len(f))
	}
	var sign byte
	if strings.HasPrefix(f[0], "-") {
		sign = '-'
		f[0] = f[0][1:]
	} else {
		f[0] = strings.TrimPrefix(f[0], "+")
	}
	d, err := strconv.Atoi(f[0])
	if err != nil || d < 0 {
		return 0, errs.Dataf("nightlog.ParseDMS", s, "invalid degrees %q", f[0])
	}
	m, err := strconv.Atoi(f[1])
	if err != nil || m < 0 || m >= 60 {
		return 0, errs.Dataf("nightlog.ParseDMS", s, "invalid minutes %q", f[1])
	}
	sec, err := strconv.ParseFloat(f[2], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, errs.Dataf("nightlog.ParseDMS", s, "invalid seconds %q", f[2])
	}
	return unit.NewAngle(sign, d, m, sec), nil
}

// minCosZ bounds the plane-parallel airmass away from the horizon.
const minCosZ = 1e-6

// Airmass returns the plane-parallel airmass 1/cos(z) for elevation e,
// z = π/2 - e.  Elevations at or below the horizon, or at or past 180°, are
// a data error.
func Airmass(e unit.Angle) (float64, error) {
	c := math.Cos(math.Pi/2 - e.Rad())
	if c < minCosZ {
		return 0, errs.Dataf("nightlog.Airmass", "", "elevation %.4f rad out of range", e.Rad())
	}
	return 1 / c, nil
}

// endpoint is the metadata read from the first or last exposure of a run.
type endpoint struct {
	hdu       *fitsfile.HDU
	elevation string
	airmass   float64
	mjd       float64
	utc       string
}

// readEndpoint returns errors unclassified, BuildRecord scopes them to the
// target.
func readEndpoint(path string) (*endpoint, error) {
	hdu, err := fitsfile.Open(path)
	if err != nil {
		return nil, err
	}
	h := hdu.Header
	ep := &endpoint{hdu: hdu}
	var ok bool
	if ep.mjd, ok = h.Float(frame.KeyMJD); !ok {
		return nil, fmt.Errorf("%s: missing %s", filepath.Base(path), frame.KeyMJD)
	}
	if ep.elevation, ok = h.String(frame.KeyElev); !ok {
		return nil, fmt.Errorf("%s: missing %s", filepath.Base(path), frame.KeyElev)
	}
	e, err := ParseDMS(ep.elevation)
	if err != nil {
		return nil, err
	}
	if ep.airmass, err = Airmass(e); err != nil {
		return nil, err
	}
	ep.utc = observationUTC(h, ep.mjd)
	return ep, nil
}

const jdMinusMJD = 2400000.5

// DATE-OBS layouts seen in the wild, most common first.
var dateObsLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// observationUTC formats DATE-OBS as HH:MM:SS, falling back on MJD-OBS
// when DATE-OBS is absent or unparseable.
func observationUTC(h *fitsfile.Header, mjd float64) string {
	if s, ok := h.String(KeyDateObs); ok {
		for _, layout := range dateObsLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t.Format(time.TimeOnly)
			}
		}
	}
	return julian.JDToTime(mjd + jdMinusMJD).UTC().Format(time.TimeOnly)
}

// BuildRecord builds the record of group g, whose files are in dir.
//
// Any failure is a data error scoped to the target.  Callers log it and
// leave the target out of the snapshot.
func BuildRecord(ctx context.Context, g *target.Group, dir string) (*Record, error) {
	if g == nil || g.Len() == 0 {
		return nil, errs.Dataf("nightlog.BuildRecord", "", "empty group")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, err := readEndpoint(filepath.Join(dir, g.First()))
	if err != nil {
		return nil, errs.Data("nightlog.BuildRecord", g.Name, err)
	}
	end := start
	if g.Len() > 1 {
		if end, err = readEndpoint(filepath.Join(dir, g.Last())); err != nil {
			return nil, errs.Data("nightlog.BuildRecord", g.Name, err)
		}
	}
	h := start.hdu.Header
	exp, ok := h.Float(frame.KeyExpTime)
	if !ok {
		return nil, errs.Dataf("nightlog.BuildRecord", g.Name, "missing %s in %s", frame.KeyExpTime, g.First())
	}
	r := &Record{
		Name:                g.Name,
		StartFrame:          g.StartFrame(),
		EndFrame:            g.EndFrame(),
		NumFrames:           g.Len(),
		XBin:                optInt(h, frame.KeyXBinning),
		YBin:                optInt(h, frame.KeyYBinning),
		Telescope:           nameOrUnknown(h, frame.KeyTelescop),
		TargetRA:            optString(h, KeyObjRA),
		TargetDec:           optString(h, KeyObjDec),
		TelescopeRA:         optString(h, frame.KeyRA),
		TelescopeDec:        optString(h, frame.KeyDec),
		Filter:              nameOrUnknown(h, frame.KeyFilter),
		StartElevation:      start.elevation,
		StartAirmass:        start.airmass,
		ExposureTime:        exp,
		StartMJD:            start.mjd,
		FocusPosition:       optFloat(h, KeyFocus),
		XPixels:             start.hdu.Width(),
		YPixels:             start.hdu.Height(),
		StartObservationUTC: start.utc,
		EndElevation:        end.elevation,
		EndAirmass:          end.airmass,
		EndMJD:              end.mjd,
		EndObservationUTC:   end.utc,
	}
	if err := r.derive(); err != nil {
		return nil, err
	}
	return r, nil
}

// derive fills the timing fields from the start and end values.
func (r *Record) derive() error {
	if r.NumFrames <= 0 {
		return errs.Dataf("nightlog.BuildRecord", r.Name, "no frames")
	}
	r.DurationMinutes = (r.EndMJD - r.StartMJD) * 24 * 60
	r.DeadTime = r.DurationMinutes*60 - r.ExposureTime*float64(r.NumFrames)
	r.EstimatedReadoutTime = r.DeadTime / float64(r.NumFrames)
	return nil
}

func (r *Record) String() string {
	return fmt.Sprintf("%s %d-%d (%d) %s %s %.2f min", r.Name, r.StartFrame,
		r.EndFrame, r.NumFrames, r.Filter, r.Telescope, r.DurationMinutes)
}

func nameOrUnknown(h *fitsfile.Header, key string) string {
	if s, ok := h.String(key); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return Unknown
}

func optString(h *fitsfile.Header, key string) *string {
	if s, ok := h.String(key); ok {
		return &s
	}
	return nil
}

func optInt(h *fitsfile.Header, key string) *int {
	if n, ok := h.Int(key); ok {
		return &n
	}
	return nil
}

func optFloat(h *fitsfile.Header, key string) *float64 {
	if f, ok := h.Float(key); ok {
		return &f
	}
	return nil
}
