// Public domain.

// Package tool runs the external programs that drive the telescope, the
// camera, the plate solver and the weather station.
package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/logging"
)

// Runner runs commands and classifies their failures as tool errors.
type Runner struct {
	Dir     string         // working directory, "" for the current one
	Log     logging.Logger // optional
	Timeout time.Duration  // per command, 0 for none
}

// Run runs name with args and returns its standard output.
//
// A command that cannot be started, exits non-zero or runs past the
// timeout gives a tool error carrying the exit code, -1 when there is none,
// and the tail of standard error.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = r.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr

	t0 := time.Now()
	err := c.Run()
	if r.Log != nil {
		r.Log.Debug(ctx, "ran tool",
			logging.String("tool", name),
			logging.Any("args", args),
			logging.Any("elapsed", time.Since(t0)))
	}
	if err == nil {
		return stdout.Bytes(), nil
	}
	code := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}
	if msg := tail(stderr.String()); msg != "" {
		err = errors.New(err.Error() + ": " + msg)
	}
	return stdout.Bytes(), errs.Tool("tool.Run", name, code, err)
}

// RunLine splits cmdline on blanks and runs it.  No shell quoting is
// interpreted.
func (r *Runner) RunLine(ctx context.Context, cmdline string) ([]byte, error) {
	f := strings.Fields(cmdline)
	if len(f) == 0 {
		return nil, errs.Config("tool.RunLine", "", errors.New("empty command"))
	}
	return r.Run(ctx, f[0], f[1:]...)
}

// tail returns the last line of stderr output.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
