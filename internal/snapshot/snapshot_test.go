// Public domain.

package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/snapshot"
)

func TestOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20200101.json")
	require.NoError(t, snapshot.WriteJSON(path, []string{"a", "b"}))
	require.NoError(t, snapshot.WriteJSON(path, []string{"c"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["c"]`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestWriteErrors(t *testing.T) {
	err := snapshot.WriteJSON(filepath.Join(t.TempDir(), "nodir", "x.json"), 1)
	assert.True(t, errs.Is(err, errs.ErrIO))
	err = snapshot.WriteJSON(filepath.Join(t.TempDir(), "x.json"), func() {})
	assert.True(t, errs.Is(err, errs.ErrData))
}
