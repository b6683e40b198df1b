// Public domain.

package errs_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saft-obs/saftlog/internal/errs"
)

func TestKinds(t *testing.T) {
	cause := os.ErrNotExist
	var tcs = []struct {
		err  error
		kind error
		msg  string
	}{
		{errs.Data("frame.Load", "a.fits", cause), errs.ErrData,
			"frame.Load: data error (a.fits): file does not exist"},
		{errs.IO("watch.Poll", "/obs", cause), errs.ErrIO,
			"watch.Poll: i/o error (/obs): file does not exist"},
		{errs.Config("config.String", "JSONPath", nil), errs.ErrConfig,
			"config.String: config error (JSONPath)"},
		{errs.Tool("tool.Run", "solve-field", 2, nil), errs.ErrTool,
			"tool.Run: external tool error (solve-field) exit status 2"},
	}
	for _, tc := range tcs {
		assert.True(t, errors.Is(tc.err, tc.kind), tc.msg)
		assert.Equal(t, tc.msg, tc.err.Error())
	}
	assert.True(t, errors.Is(tcs[0].err, os.ErrNotExist))
	assert.False(t, errs.Is(tcs[0].err, errs.ErrIO))
}

func TestDataf(t *testing.T) {
	err := errs.Dataf("nightlog.Airmass", "WD1145", "elevation %.1f", 0.0)
	var e *errs.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "WD1145", e.Subject)
	assert.EqualError(t, err, "nightlog.Airmass: data error (WD1145): elevation 0.0")
}
