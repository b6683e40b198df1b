// Public domain.

// Package target groups exposure files by the target name at the start of
// their filenames.
//
// Exposure files are named <target>-<frame number>.<ext>, ext being one of
// fits, fit, fits.gz, fit.gz or FIT.  Frame numbers need not be zero padded
// or contiguous.
package target

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// stage one: a frame number and recognised extension end the name
	frameSuffix = regexp.MustCompile(`[-._][0-9]+\.(fits\.gz|fit\.gz|fits|fit|FIT)$`)
	// stage two: the leading alphanumeric run is the target
	leadingName = regexp.MustCompile(`^[A-Za-z0-9]+`)
)

// IsFrame reports whether filename looks like an exposure file.
func IsFrame(filename string) bool {
	return frameSuffix.MatchString(filename)
}

// ExtractName returns the target name of an exposure filename.  ok is false
// if filename is not an exposure file or does not start with a name.
func ExtractName(filename string) (name string, ok bool) {
	if !IsFrame(filename) {
		return "", false
	}
	name = leadingName.FindString(filename)
	return name, name != ""
}

// Group is the set of exposure files of one target.  Files and Frames are
// in lock-step, ascending by frame number.
type Group struct {
	Name   string
	Files  []string
	Frames []int
}

// Len is the number of files in the group.
func (g *Group) Len() int { return len(g.Files) }

// StartFrame is the lowest frame number.
func (g *Group) StartFrame() int { return g.Frames[0] }

// EndFrame is the highest frame number.
func (g *Group) EndFrame() int { return g.Frames[len(g.Frames)-1] }

// First is the file with the lowest frame number.
func (g *Group) First() string { return g.Files[0] }

// Last is the file with the highest frame number.
func (g *Group) Last() string { return g.Files[len(g.Files)-1] }

func (g *Group) Less(i, j int) bool {
	if g.Frames[i] != g.Frames[j] {
		return g.Frames[i] < g.Frames[j]
	}
	return g.Files[i] < g.Files[j]
}

func (g *Group) Swap(i, j int) {
	g.Files[i], g.Files[j] = g.Files[j], g.Files[i]
	g.Frames[i], g.Frames[j] = g.Frames[j], g.Frames[i]
}

// Discover appends to names each target name found in files that names
// does not already hold, in the order first seen.
func Discover(names, files []string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, f := range files {
		if n, ok := ExtractName(f); ok && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}

// Build groups files under names, returning groups in the order of names.
//
// Every call is a full rebuild: for each name the whole of files is scanned
// for exposure files starting with name-<digits>, the digits giving the
// frame number.  Names matching no file produce no group.
func Build(names, files []string) []*Group {
	groups := make([]*Group, 0, len(names))
	for _, n := range names {
		g := &Group{Name: n}
		prefix := len(n) + 1
		for _, f := range files {
			if len(f) <= prefix || f[:len(n)] != n || f[len(n)] != '-' || !IsFrame(f) {
				continue
			}
			num, ok := leadingDigits(f[prefix:])
			if !ok {
				continue
			}
			g.Files = append(g.Files, f)
			g.Frames = append(g.Frames, num)
		}
		if g.Len() == 0 {
			continue
		}
		sort.Sort(g)
		groups = append(groups, g)
	}
	return groups
}

// GroupAll discovers target names in files and builds their groups.
func GroupAll(files []string) []*Group {
	return Build(Discover(nil, files), files)
}

func leadingDigits(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	return n, err == nil
}
