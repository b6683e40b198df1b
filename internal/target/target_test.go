// Public domain.

package target_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/target"
)

var nameTestCases = []struct {
	filename string
	name     string
	ok       bool
}{
	{"WD1145-001.fits", "WD1145", true},
	{"WD1145-1.fit", "WD1145", true},
	{"M31-0042.fits.gz", "M31", true},
	{"M31-0042.fit.gz", "M31", true},
	{"flat_0003.FIT", "flat", true},
	{"bias.17.fits", "bias", true},
	{"WD1145+017-002.fits", "WD1145", true},
	{"WD1145-001.FITS", "", false},
	{"WD1145-001.fits.json", "", false},
	{"WD1145.fits", "", false},
	{"notes.txt", "", false},
	{"-001.fits", "", false},
}

func TestExtractName(t *testing.T) {
	for _, tc := range nameTestCases {
		name, ok := target.ExtractName(tc.filename)
		assert.Equal(t, tc.ok, ok, tc.filename)
		assert.Equal(t, tc.name, name, tc.filename)
	}
}

func TestBuild(t *testing.T) {
	files := []string{
		"WD1145-10.fits",
		"M31-0001.fits",
		"WD1145-002.fits",
		"WD1145-1.fits",
		"WD1145-10.log",
		"XWD1145-004.fits",
		"M31-0002.fits.gz",
	}
	groups := target.GroupAll(files)
	require.Len(t, groups, 3)

	wd := groups[0]
	assert.Equal(t, "WD1145", wd.Name)
	assert.Equal(t, []string{"WD1145-1.fits", "WD1145-002.fits", "WD1145-10.fits"}, wd.Files)
	assert.Equal(t, []int{1, 2, 10}, wd.Frames)
	assert.Equal(t, 1, wd.StartFrame())
	assert.Equal(t, 10, wd.EndFrame())
	assert.Equal(t, 3, wd.Len())
	assert.Equal(t, "WD1145-1.fits", wd.First())
	assert.Equal(t, "WD1145-10.fits", wd.Last())

	assert.Equal(t, "M31", groups[1].Name)
	assert.Equal(t, []int{1, 2}, groups[1].Frames)
	assert.Equal(t, "XWD1145", groups[2].Name)
}

func TestGroupIdempotent(t *testing.T) {
	files := []string{"b-3.fits", "a-2.fits", "b-1.fits", "a-1.fit", "b-2.fits.gz"}
	first := target.GroupAll(files)
	second := target.GroupAll(files)
	assert.Equal(t, first, second)
	for _, g := range first {
		for i := 1; i < g.Len(); i++ {
			assert.Less(t, g.Frames[i-1], g.Frames[i])
		}
	}
}

func TestDiscoveryOrder(t *testing.T) {
	names := target.Discover(nil, []string{"zeta-1.fits", "alpha-1.fits"})
	names = target.Discover(names, []string{"beta-1.fits", "alpha-2.fits"})
	assert.Equal(t, []string{"zeta", "alpha", "beta"}, names)

	groups := target.Build(names, []string{"alpha-1.fits", "beta-1.fits"})
	got := []string{}
	for _, g := range groups {
		got = append(got, g.Name)
	}
	// zeta has no files left, its group is dropped
	assert.Equal(t, []string{"alpha", "beta"}, got)
}

func TestUnmatchedName(t *testing.T) {
	// the name is derived but no file has the name-digits form
	groups := target.GroupAll([]string{"WD1145+017-002.fits"})
	assert.Empty(t, groups)
}

func ExampleGroupAll() {
	for _, g := range target.GroupAll([]string{"WD1145-005.fits", "WD1145-001.fits"}) {
		fmt.Println(g.Name, g.StartFrame(), g.EndFrame(), g.Len())
	}
	// Output:
	// WD1145 1 5 2
}
