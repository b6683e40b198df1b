// Public domain.

// Package watch polls a directory for files that appeared or went away
// since the previous poll.
package watch

import (
	"os"

	"github.com/saft-obs/saftlog/internal/errs"
)

// Set is a set of directory entry names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Delta is the result of one scan.
type Delta struct {
	Current []string // full listing, in directory order
	Added   []string // in Current but not previously known
	Removed []string // previously known, no longer present
}

// Poll lists dir and returns entries not in known, in the order the
// directory enumerates them.  known is not modified.
//
// An unreadable directory is an i/o error.  Whether that is fatal is the
// caller's decision.
func Poll(dir string, known Set) ([]string, error) {
	d, err := Scan(dir, known)
	if err != nil {
		return nil, err
	}
	return d.Added, nil
}

// Scan lists dir and compares the listing against known.  known is not
// modified.  Removed is in no particular order.
func Scan(dir string, known Set) (Delta, error) {
	names, err := list(dir)
	if err != nil {
		return Delta{}, errs.IO("watch.Scan", dir, err)
	}
	d := Delta{Current: names}
	present := make(Set, len(names))
	for _, n := range names {
		present[n] = struct{}{}
		if !known.Has(n) {
			d.Added = append(d.Added, n)
		}
	}
	for n := range known {
		if !present.Has(n) {
			d.Removed = append(d.Removed, n)
		}
	}
	return d, nil
}

// list returns the entry names without sorting them, unlike os.ReadDir.
func list(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}
