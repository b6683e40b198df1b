// Public domain.

// Package acqprog points the telescope at a target by repeated exposure,
// plate solution and offset, run as command acquire.
//
// Slewing, exposing and solving are delegated to external programs named in
// the settings.  Relative program paths are taken from the telescope
// program folder.  The solver is called astrometry.net style and must leave a
// WCS header holding CRVAL1 and CRVAL2, the solved field centre in degrees.
package acqprog

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/meeus/v3/angle"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/nightlog"
	"github.com/saft-obs/saftlog/internal/tool"
)

const (
	app           = "acquireTarget"
	program       = "acquire"
	versionString = "acquire version 0.1 Go source."
)

// setting keys
const (
	keyTelPath    = "telPath"
	keyTmpPath    = "tmpPath"
	keyGoto       = "GotoCommand"
	keyOffset     = "OffsetCommand"
	keyExpose     = "ExposeCommand"
	keySolve      = "SolveCommand"
	keyExposure   = "ExposureTime"
	keyTolerance  = "Tolerance"
	keyIterations = "Iterations"
	keyRadius     = "SearchRadius"
)

var defaults = map[string]any{
	keyTelPath:    "/home/saft/src/teld/",
	keyTmpPath:    "/tmp",
	keyGoto:       "./goto",
	keyOffset:     "./offset",
	keyExpose:     "./expose",
	keySolve:      "solve-field --overwrite --no-plots",
	keyExposure:   5.0,
	keyTolerance:  10.0, // arc seconds
	keyIterations: 3,
	keyRadius:     1.0, // degrees
}

var flagKeys = map[string]string{
	"telpath": keyTelPath,
	"tmppath": keyTmpPath,
	"e":       keyExposure,
	"t":       keyTolerance,
	"n":       keyIterations,
}

type commandLine struct {
	fs      *flag.FlagSet
	ra, dec string
	save, v bool
}

func Main() {
	defer exit.Handler()

	cl := parseCommandLine(os.Args[1:], os.Stderr)
	if cl.v {
		cli.Version(os.Stdout, versionString)
		return
	}
	ctx, stop := cli.Context()
	defer stop()
	if err := run(ctx, cl, "", cli.Logger(program)); err != nil {
		exit.Log(err)
	}
}

func parseCommandLine(args []string, stderr io.Writer) *commandLine {
	cl := &commandLine{fs: flag.NewFlagSet(program, flag.ExitOnError)}
	fs := cl.fs
	fs.SetOutput(stderr)
	var telPath, tmpPath string
	var exposure, tolerance float64
	var iterations int
	fs.StringVar(&telPath, "telpath", "", "")
	fs.StringVar(&tmpPath, "tmppath", "", "")
	fs.Float64Var(&exposure, "e", 0, "")
	fs.Float64Var(&tolerance, "t", 0, "")
	fs.IntVar(&iterations, "n", 0, "")
	fs.BoolVar(&cl.save, "save", false, "")
	fs.BoolVar(&cl.v, "v", false, "")
	fs.Usage = func() {
		io.WriteString(stderr, `
Usage: acquire [options] <ra> <dec>   point at ra h:m:s, dec d:m:s
       acquire -v                     display version and copyright

Options:
       -telpath <dir>                 folder of the telescope programs
       -tmppath <dir>                 folder for acquisition images
       -e <s>                         acquisition exposure time
       -t <arcsec>                    pointing tolerance
       -n <count>                     give up after count exposures
       -save                          store the options given as new defaults

Settings are kept in $HOME/.config/acquireTarget/acquireTarget.conf.
`)
	}
	fs.Parse(args)
	switch {
	case cl.v:
	case fs.NArg() != 2:
		fs.Usage()
		os.Exit(1)
	default:
		cl.ra, cl.dec = fs.Arg(0), fs.Arg(1)
	}
	return cl
}

// Position is an equatorial position.
type Position struct {
	RA  unit.RA
	Dec unit.Angle
}

func (p Position) String() string {
	return fmt.Sprintf("%.1s %+.0s", sexa.FmtRA(p.RA), sexa.FmtAngle(p.Dec))
}

// ParseHMS parses right ascension written H:M:S.s.
func ParseHMS(s string) (unit.RA, error) {
	f := strings.Split(strings.TrimSpace(s), ":")
	if len(f) != 3 {
		return 0, errs.Dataf("acqprog.ParseHMS", s, "want H:M:S, got %d fields", len(f))
	}
	h, err := strconv.Atoi(f[0])
	if err != nil || h < 0 || h >= 24 {
		return 0, errs.Dataf("acqprog.ParseHMS", s, "invalid hours %q", f[0])
	}
	m, err := strconv.Atoi(f[1])
	if err != nil || m < 0 || m >= 60 {
		return 0, errs.Dataf("acqprog.ParseHMS", s, "invalid minutes %q", f[1])
	}
	sec, err := strconv.ParseFloat(f[2], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, errs.Dataf("acqprog.ParseHMS", s, "invalid seconds %q", f[2])
	}
	return unit.NewRA(h, m, sec), nil
}

// ParsePosition parses a target given as H:M:S and D:M:S strings.
func ParsePosition(ra, dec string) (Position, error) {
	r, err := ParseHMS(ra)
	if err != nil {
		return Position{}, err
	}
	d, err := nightlog.ParseDMS(dec)
	if err != nil {
		return Position{}, err
	}
	if math.Abs(d.Deg()) > 90 {
		return Position{}, errs.Dataf("acqprog.ParsePosition", dec, "declination out of range")
	}
	return Position{RA: r, Dec: d}, nil
}

// Correction returns the angular separation of solved from target and the
// offsets taking the pointing from solved to target.  The RA offset is
// measured on the sky, scaled by cos(dec).
func Correction(target, solved Position) (sep, dRA, dDec unit.Angle) {
	sep = angle.Sep(unit.Angle(target.RA), target.Dec, unit.Angle(solved.RA), solved.Dec)
	da := math.Remainder(unit.Angle(target.RA).Rad()-unit.Angle(solved.RA).Rad(), 2*math.Pi)
	dRA = unit.Angle(da * math.Cos(target.Dec.Rad()))
	dDec = target.Dec - solved.Dec
	return
}

// SolvedCentre reads the field centre from a WCS header file.
func SolvedCentre(path string) (Position, error) {
	hdu, err := fitsfile.Open(path)
	if err != nil {
		return Position{}, err
	}
	ra, ok1 := hdu.Header.Float("CRVAL1")
	dec, ok2 := hdu.Header.Float("CRVAL2")
	if !ok1 || !ok2 {
		return Position{}, errs.Dataf("acqprog.SolvedCentre", path, "no CRVAL1, CRVAL2")
	}
	return Position{RA: unit.RAFromDeg(ra), Dec: unit.AngleFromDeg(dec)}, nil
}

// acquirer runs the external programs.
type acquirer struct {
	runner                        tool.Runner
	gotoCmd, offsetCmd, exposeCmd string
	solveCmd                      string
	tmpDir                        string
	exposure, tolerance, radius   float64
	iterations                    int
	log                           logging.Logger
}

func run(ctx context.Context, cl *commandLine, cfgBase string, log logging.Logger) error {
	target, err := ParsePosition(cl.ra, cl.dec)
	if err != nil {
		return err
	}
	st, err := cli.Settings(cfgBase, app, cl.fs, defaults, flagKeys, cl.save)
	if err != nil {
		return err
	}
	a := &acquirer{log: log}
	telPath, err := st.String(keyTelPath)
	if err != nil {
		return err
	}
	strs := []struct {
		key string
		dst *string
	}{
		{keyTmpPath, &a.tmpDir},
		{keyGoto, &a.gotoCmd},
		{keyOffset, &a.offsetCmd},
		{keyExpose, &a.exposeCmd},
		{keySolve, &a.solveCmd},
	}
	for _, s := range strs {
		if *s.dst, err = st.String(s.key); err != nil {
			return err
		}
	}
	nums := []struct {
		key string
		dst *float64
	}{
		{keyExposure, &a.exposure},
		{keyTolerance, &a.tolerance},
		{keyRadius, &a.radius},
	}
	for _, n := range nums {
		if *n.dst, err = st.Float(n.key); err != nil {
			return err
		}
	}
	if a.iterations, err = st.Int(keyIterations); err != nil {
		return err
	}
	a.runner = tool.Runner{Dir: telPath, Log: log}
	return a.acquire(ctx, target)
}

// acquire slews to target then exposes, solves and offsets until the
// pointing error is within tolerance.  Any tool failure ends the
// acquisition.
func (a *acquirer) acquire(ctx context.Context, target Position) error {
	a.log.Info(ctx, "slewing", logging.String("target", target.String()))
	raDeg := strconv.FormatFloat(unit.Angle(target.RA).Deg(), 'f', 6, 64)
	decDeg := strconv.FormatFloat(target.Dec.Deg(), 'f', 6, 64)
	if _, err := a.cmd(ctx, a.gotoCmd, raDeg, decDeg); err != nil {
		return err
	}
	var sep unit.Angle
	for i := 1; i <= a.iterations; i++ {
		img := filepath.Join(a.tmpDir, fmt.Sprintf("acquire-%03d.fits", i))
		wcs := strings.TrimSuffix(img, ".fits") + ".wcs"
		if _, err := a.cmd(ctx, a.exposeCmd, strconv.FormatFloat(a.exposure, 'f', -1, 64), img); err != nil {
			return err
		}
		if _, err := a.cmd(ctx, a.solveCmd, "--wcs", wcs,
			"--ra", raDeg, "--dec", decDeg,
			"--radius", strconv.FormatFloat(a.radius, 'f', -1, 64), img); err != nil {
			return err
		}
		solved, err := SolvedCentre(wcs)
		if err != nil {
			return err
		}
		var dRA, dDec unit.Angle
		sep, dRA, dDec = Correction(target, solved)
		a.log.Info(ctx, "solved",
			logging.Int("iteration", i),
			logging.String("centre", solved.String()),
			logging.Float("error_arcsec", sep.Sec()))
		if sep.Sec() <= a.tolerance {
			a.log.Info(ctx, "acquired", logging.String("target", target.String()))
			return nil
		}
		if i == a.iterations {
			break
		}
		if _, err := a.cmd(ctx, a.offsetCmd,
			strconv.FormatFloat(dRA.Sec(), 'f', 2, 64),
			strconv.FormatFloat(dDec.Sec(), 'f', 2, 64)); err != nil {
			return err
		}
	}
	return fmt.Errorf("pointing error %.1f arcsec after %d exposures, tolerance %g",
		sep.Sec(), a.iterations, a.tolerance)
}

// cmd runs a command line from the settings with args appended.
func (a *acquirer) cmd(ctx context.Context, cmdline string, args ...string) ([]byte, error) {
	f := strings.Fields(cmdline)
	if len(f) == 0 {
		return nil, errs.Config("acqprog", "", fmt.Errorf("empty command"))
	}
	return a.runner.Run(ctx, f[0], append(f[1:], args...)...)
}
