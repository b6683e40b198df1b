// Public domain.

package nightlog_test

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/metrics"
	"github.com/saft-obs/saftlog/internal/nightlog"
	"github.com/saft-obs/saftlog/internal/target"
)

func writeFrame(t *testing.T, dir, name string, cards ...fitsfile.Card) {
	t.Helper()
	hdu := &fitsfile.HDU{
		Header: fitsfile.NewHeader(cards...),
		Bitpix: -32,
		Axes:   []int{4, 3},
		Pixels: make([]float64, 12),
	}
	require.NoError(t, fitsfile.Write(filepath.Join(dir, name), hdu))
}

func card(name string, v any) fitsfile.Card { return fitsfile.Card{Name: name, Value: v} }

// writeRun writes the two frames of a short WD1145 run.
func writeRun(t *testing.T, dir string) {
	writeFrame(t, dir, "WD1145-001.fits",
		card("XBINNING", 2), card("YBINNING", 2),
		card("TELESCOP", "SAFT-1m"), card("FILTER", "V"),
		card("OBJRA", "11:48:33.6"), card("OBJDEC", "01:28:59"),
		card("RA", "11:48:30.0"), card("DEC", "01:29:10"),
		card("ELEVATIO", "45:00:00.00"), card("EXPTIME", 10.0),
		card("MJD-OBS", 59000.0), card("FOCUSPOS", 1234.0),
		card("DATE-OBS", "2020-05-31T00:00:00.000000"))
	writeFrame(t, dir, "WD1145-005.fits",
		card("ELEVATIO", "60:00:00.00"), card("EXPTIME", 10.0),
		card("MJD-OBS", 59000.002),
		card("DATE-OBS", "2020-05-31T00:02:52.800000"))
}

func TestParseDMS(t *testing.T) {
	a, err := nightlog.ParseDMS("45:00:00.00")
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, a.Rad(), 1e-12)

	a, err = nightlog.ParseDMS("-10:30:00")
	require.NoError(t, err)
	assert.InDelta(t, -10.5, a.Deg(), 1e-12)

	for _, s := range []string{"", "45", "45:00", "x:00:00", "45:61:00", "45:00:60", "45:00:zz"} {
		_, err := nightlog.ParseDMS(s)
		assert.True(t, errs.Is(err, errs.ErrData), s)
	}
}

func TestAirmass(t *testing.T) {
	x, err := nightlog.Airmass(unit.AngleFromDeg(45))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, x, 1e-4)

	x, err = nightlog.Airmass(unit.AngleFromDeg(90))
	require.NoError(t, err)
	assert.InDelta(t, 1, x, 1e-12)

	for _, d := range []float64{0, -5, 180, 200} {
		_, err := nightlog.Airmass(unit.AngleFromDeg(d))
		assert.True(t, errs.Is(err, errs.ErrData), d)
	}
}

func TestBuildRecord(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)
	g := target.GroupAll([]string{"WD1145-005.fits", "WD1145-001.fits"})
	require.Len(t, g, 1)

	r, err := nightlog.BuildRecord(context.Background(), g[0], dir)
	require.NoError(t, err)
	assert.Equal(t, "WD1145", r.Name)
	assert.Equal(t, 1, r.StartFrame)
	assert.Equal(t, 5, r.EndFrame)
	assert.Equal(t, 2, r.NumFrames)
	require.NotNil(t, r.XBin)
	assert.Equal(t, 2, *r.XBin)
	assert.Equal(t, "SAFT-1m", r.Telescope)
	assert.Equal(t, "V", r.Filter)
	require.NotNil(t, r.TargetRA)
	assert.Equal(t, "11:48:33.6", *r.TargetRA)
	assert.Equal(t, 4, r.XPixels)
	assert.Equal(t, 3, r.YPixels)
	assert.InDelta(t, math.Sqrt2, r.StartAirmass, 1e-4)
	assert.InDelta(t, 2/math.Sqrt(3), r.EndAirmass, 1e-4)
	assert.Equal(t, "00:00:00", r.StartObservationUTC)
	assert.Equal(t, "00:02:52", r.EndObservationUTC)
	assert.InDelta(t, 2.88, r.DurationMinutes, 1e-4)
	assert.InDelta(t, 172.8-20, r.DeadTime, 1e-2)
	assert.InDelta(t, (172.8-20)/2, r.EstimatedReadoutTime, 1e-2)
}

func TestUnknownAndNull(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "M31-1.fits",
		card("FILTER", ""), card("ELEVATIO", "30:00:00"),
		card("EXPTIME", 5.0), card("MJD-OBS", 59000.5))

	r, err := nightlog.BuildRecord(context.Background(), target.GroupAll([]string{"M31-1.fits"})[0], dir)
	require.NoError(t, err)
	assert.Equal(t, nightlog.Unknown, r.Filter)
	assert.Equal(t, nightlog.Unknown, r.Telescope)
	assert.Equal(t, "12:00:00", r.StartObservationUTC, "UTC from MJD")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"xbin", "ybin", "focusPosition", "targetRA"} {
		v, ok := m[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
	assert.Len(t, m, 27)
}

func TestBuildRecordMissingKeys(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a-1.fits", card("ELEVATIO", "30:00:00"), card("MJD-OBS", 59000.0))
	writeFrame(t, dir, "b-1.fits", card("EXPTIME", 1.0), card("MJD-OBS", 59000.0))
	writeFrame(t, dir, "c-1.fits", card("EXPTIME", 1.0), card("ELEVATIO", "-3:00:00"), card("MJD-OBS", 59000.0))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d-1.fits"), []byte("junk"), 0o644))

	for _, g := range target.GroupAll([]string{"a-1.fits", "b-1.fits", "c-1.fits", "d-1.fits", "e-1.fits"}) {
		_, err := nightlog.BuildRecord(context.Background(), g, dir)
		assert.True(t, errs.Is(err, errs.ErrData), g.Name)
	}
}

func readSnapshot(t *testing.T, path string) []map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(b, &recs))
	return recs
}

func TestCycle(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "20200530.json")
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "saftlog")
	require.NoError(t, err)

	c := nightlog.NewCycle(dir, out, logging.Noop())
	c.Metrics = m
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, readSnapshot(t, out))

	writeRun(t, dir)
	writeFrame(t, dir, "M31-1.fits", card("EXPTIME", 5.0), card("MJD-OBS", 59000.5))
	recs, err = c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1, "M31 lacks ELEVATIO and is skipped")
	assert.Equal(t, 2, recs[0].NumFrames)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CycleErrors.WithLabelValues("saftlog", "data")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Files))

	snap := readSnapshot(t, out)
	require.Len(t, snap, 1)
	assert.Equal(t, "WD1145", snap[0]["name"])
	assert.InDelta(t, 2.88, snap[0]["durationMinutes"], 1e-4)

	// deleting frames is a full rebuild
	require.NoError(t, os.Remove(filepath.Join(dir, "WD1145-005.fits")))
	recs, err = c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].NumFrames)
	assert.Equal(t, 1, recs[0].EndFrame)

	require.NoError(t, os.Remove(filepath.Join(dir, "WD1145-001.fits")))
	recs, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, readSnapshot(t, out))
	assert.Equal(t, 4, c.Runs())
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Cycles.WithLabelValues("saftlog")))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)
	out := filepath.Join(t.TempDir(), "20200530.json")
	c := nightlog.NewCycle(dir, out, logging.Noop())
	require.NoError(t, c.Watch(context.Background(), time.Millisecond, 3))
	assert.Equal(t, 3, c.Runs())
	assert.Len(t, readSnapshot(t, out), 1)

	// a bad directory fails the first cycle
	c = nightlog.NewCycle(filepath.Join(dir, "nope"), out, logging.Noop())
	err := c.Watch(context.Background(), time.Millisecond, 3)
	assert.True(t, errs.Is(err, errs.ErrIO))

	// once running, losing the directory is retried until cancelled
	sub := filepath.Join(t.TempDir(), "night")
	require.NoError(t, os.Mkdir(sub, 0o755))
	c = nightlog.NewCycle(sub, out, logging.Noop())
	_, err = c.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.Remove(sub))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, c.Watch(ctx, time.Millisecond, 0))
	assert.Equal(t, 1, c.Runs())
}

func TestWatchLimitCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)
	outDir := filepath.Join(t.TempDir(), "www")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	c := nightlog.NewCycle(dir, filepath.Join(outDir, "20200530.json"), logging.Noop())
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// every snapshot write now fails
	require.NoError(t, os.RemoveAll(outDir))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Watch(ctx, time.Millisecond, 3))
	assert.NoError(t, ctx.Err(), "stopped by the limit, not the deadline")
	assert.Equal(t, 1, c.Runs())
}
