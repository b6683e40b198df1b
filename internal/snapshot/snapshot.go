// Public domain.

// Package snapshot writes whole-file JSON snapshots.  Readers polling the
// file see either the previous snapshot or the new one, never a partial
// write.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/saft-obs/saftlog/internal/errs"
)

// WriteJSON replaces the file at path with the JSON encoding of v.
func WriteJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errs.Data("snapshot.WriteJSON", path, err)
	}
	return Write(path, b)
}

// Write replaces the file at path with b, by writing a temporary file in
// the same directory and renaming it over path.
func Write(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errs.IO("snapshot.Write", path, err)
	}
	name := tmp.Name()
	if _, err = tmp.Write(b); err == nil {
		err = tmp.Chmod(0o644)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(name, path)
	}
	if err != nil {
		os.Remove(name)
		return errs.IO("snapshot.Write", path, err)
	}
	return nil
}
