// Public domain.

package wxprog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/logging"
)

// station writes a script printing a fixed report and returns its path.
func station(t *testing.T, report string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "station.sh")
	script := "#!/bin/sh\ncat <<'END'\n" + report + "END\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "weather.json")
	cmd := station(t, "Data received 2020-05-30T22:10:05Z:\n   Temperature: 10.5 ℃\n")
	cl := parseCommandLine([]string{"-c", cmd, "-o", out, "-u", "0", "-n", "2"}, io.Discard)
	require.NoError(t, run(context.Background(), cl, t.TempDir(), logging.Noop()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, map[string]any{"date": "2020-05-30", "time": "22:10:05", "Temperature": 10.5}, m)
}

func TestPollFailures(t *testing.T) {
	w := &logger{station: "false", out: filepath.Join(t.TempDir(), "w.json"), log: logging.Noop()}
	assert.True(t, errs.Is(w.poll(context.Background()), errs.ErrTool))

	w.station = station(t, "nothing useful\n")
	assert.True(t, errs.Is(w.poll(context.Background()), errs.ErrData))

	// tool failures do not stop the loop
	cl := parseCommandLine([]string{"-c", "false", "-o", w.out, "-u", "0", "-n", "3"}, io.Discard)
	assert.NoError(t, run(context.Background(), cl, t.TempDir(), logging.Noop()))
}
