// Public domain.

package lrprog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/watch"
)

func writeFrame(t *testing.T, path string, xbin int, base float64) {
	t.Helper()
	px := make([]float64, 16)
	for i := range px {
		px[i] = base + float64(i)
	}
	hdu := &fitsfile.HDU{
		Header: fitsfile.NewHeader(
			fitsfile.Card{Name: "XBINNING", Value: xbin},
			fitsfile.Card{Name: "YBINNING", Value: 1},
			fitsfile.Card{Name: "MJD-OBS", Value: 59000.0},
		),
		Bitpix: -32,
		Axes:   []int{4, 4},
		Pixels: px,
	}
	require.NoError(t, fitsfile.Write(path, hdu))
}

func TestFramePattern(t *testing.T) {
	re := FramePattern("WD1145")
	for name, want := range map[string]bool{
		"WD1145-001.fits":    true,
		"WD1145-0001.fit.gz": true,
		"WD1145-01.fits":     false,
		"WD1145-001.fits.x":  false,
		"XWD1145-001.fits":   false,
		"WD1145+1-001.fits":  false,
	} {
		assert.Equal(t, want, re.MatchString(name), name)
	}
	cl := parseCommandLine([]string{"WD1145-"}, io.Discard)
	assert.Equal(t, "WD1145", cl.target)
}

func TestRun(t *testing.T) {
	data := t.TempDir()
	red := filepath.Join(t.TempDir(), "red")
	bias := filepath.Join(t.TempDir(), "bias.fits")
	require.NoError(t, fitsfile.Write(bias, &fitsfile.HDU{
		Header: fitsfile.NewHeader(
			fitsfile.Card{Name: "XBINNING", Value: 1},
			fitsfile.Card{Name: "YBINNING", Value: 1},
		),
		Axes:   []int{4, 4},
		Pixels: make([]float64, 16),
	}))
	writeFrame(t, filepath.Join(data, "WD1145-001.fits"), 1, 100)
	writeFrame(t, filepath.Join(data, "WD1145-002.fits"), 1, 200)
	writeFrame(t, filepath.Join(data, "WD1145-003.fits"), 2, 300)
	writeFrame(t, filepath.Join(data, "WD1145-04.fits"), 1, 400)

	cl := parseCommandLine([]string{"-s", data, "-r", red, "-b", bias, "-n", "1", "WD1145"}, io.Discard)
	require.NoError(t, run(context.Background(), cl, t.TempDir(), logging.Noop()))
	for _, n := range []string{LatestPNG, StackPNG} {
		fi, err := os.Stat(filepath.Join(red, n))
		require.NoError(t, err, n)
		assert.NotZero(t, fi.Size())
	}
}

func TestRunNoFrames(t *testing.T) {
	red := filepath.Join(t.TempDir(), "red")
	cl := parseCommandLine([]string{"-s", t.TempDir(), "-r", red, "WD1145"}, io.Discard)
	require.NoError(t, run(context.Background(), cl, t.TempDir(), logging.Noop()))
	_, err := os.Stat(filepath.Join(red, StackPNG))
	assert.True(t, os.IsNotExist(err))
}

func TestPoll(t *testing.T) {
	data := t.TempDir()
	r := &reducer{
		dir:     data,
		outDir:  t.TempDir(),
		pattern: FramePattern("M31"),
		log:     logging.Noop(),
		known:   watch.NewSet(),
		tries:   map[string]int{},
	}
	writeFrame(t, filepath.Join(data, "M31-002.fits"), 1, 10)
	writeFrame(t, filepath.Join(data, "M31-001.fits"), 1, 0)
	p, err := r.poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pollResult{matched: 2, stacked: 2}, p)
	assert.Equal(t, "M31-002.fits", filepath.Base(r.latest.Filename))
	assert.Equal(t, 10.0+0, r.stack.Total().At(0, 0))

	// binning mismatch is skipped, the stack is unchanged
	writeFrame(t, filepath.Join(data, "M31-003.fits"), 2, 0)
	p, err = r.poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pollResult{matched: 1}, p)
	assert.Equal(t, 2, r.stack.Count())
	assert.True(t, r.known.Has("M31-003.fits"), "mismatch is not retried")

	writeFrame(t, filepath.Join(data, "M31-004.fits"), 1, 5)
	p, err = r.poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.stacked)
	assert.Equal(t, 15.0, r.stack.Total().At(0, 0))
	assert.Equal(t, 2, r.latest.Index)

	r.render(context.Background())
	_, err = os.Stat(filepath.Join(r.outDir, StackPNG))
	assert.NoError(t, err)
}

func TestPollRetriesUnreadable(t *testing.T) {
	data := t.TempDir()
	r := &reducer{
		dir:     data,
		outDir:  t.TempDir(),
		pattern: FramePattern("WD"),
		log:     logging.Noop(),
		known:   watch.NewSet(),
		tries:   map[string]int{},
	}
	writeFrame(t, filepath.Join(data, "WD-001.fits"), 1, 0)
	partial := filepath.Join(data, "WD-002.fits")
	require.NoError(t, os.WriteFile(partial, []byte("SIMPLE  =                    T"), 0o644))

	p, err := r.poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pollResult{matched: 2, stacked: 1}, p)
	assert.False(t, r.known.Has("WD-002.fits"))

	// finished by the camera before the next poll
	writeFrame(t, partial, 1, 100)
	p, err = r.poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pollResult{matched: 1, stacked: 1}, p)
	assert.Equal(t, 2, r.stack.Count())
	assert.Equal(t, 100.0, r.stack.Total().At(0, 0))

	// a file that never becomes readable is given up on
	require.NoError(t, os.WriteFile(filepath.Join(data, "WD-003.fits"), []byte("junk"), 0o644))
	for i := 0; i < maxLoadTries; i++ {
		p, err = r.poll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, p.matched, "try %d", i+1)
	}
	assert.True(t, r.known.Has("WD-003.fits"))
	p, err = r.poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, p.matched)
	assert.Empty(t, r.tries)
}

func TestRunWaitsForUnreadableFirstFrame(t *testing.T) {
	data := t.TempDir()
	red := filepath.Join(t.TempDir(), "red")
	first := filepath.Join(data, "WD1145-001.fits")
	require.NoError(t, os.WriteFile(first, []byte("SIMPLE"), 0o644))

	done := make(chan error, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		tmp := filepath.Join(t.TempDir(), "WD1145-001.fits")
		hdu := &fitsfile.HDU{
			Header: fitsfile.NewHeader(fitsfile.Card{Name: "XBINNING", Value: 1}),
			Bitpix: -32,
			Axes:   []int{2, 2},
			Pixels: []float64{1, 2, 3, 4},
		}
		err := fitsfile.Write(tmp, hdu)
		if err == nil {
			err = os.Rename(tmp, first)
		}
		done <- err
	}()

	cl := parseCommandLine([]string{"-s", data, "-r", red, "-u", "0.5", "-n", "3", "WD1145"}, io.Discard)
	require.NoError(t, run(context.Background(), cl, t.TempDir(), logging.Noop()))
	require.NoError(t, <-done)
	_, err := os.Stat(filepath.Join(red, StackPNG))
	assert.NoError(t, err)
}
