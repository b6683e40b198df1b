// Public domain.

// Package simprog replays a recorded run into a directory at the pace of
// the camera, run as command simrun.  It feeds the loggers and the live
// reducer during daytime testing.
package simprog

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soniakeys/exit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/fitsfile"
	"github.com/saft-obs/saftlog/internal/logging"
)

const (
	app           = "simulateSAFTRun"
	program       = "simrun"
	versionString = "simrun version 0.1 Go source."
)

// setting keys
const (
	keyExposure = "ExposureTime"
	keyReadout  = "ReadoutTime"
	keyOut      = "OutputDirectory"
)

var defaults = map[string]any{
	keyExposure: 3.0,
	keyReadout:  2.0,
}

var flagKeys = map[string]string{
	"o":            keyOut,
	"outputdir":    keyOut,
	"e":            keyExposure,
	"exposuretime": keyExposure,
	"r":            keyReadout,
	"readouttime":  keyReadout,
}

type commandLine struct {
	fs      *flag.FlagSet
	runFile string
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
	if err := run(ctx, cl, "", os.Stdout, cli.Logger(program)); err != nil {
		exit.Log(err)
	}
}

func parseCommandLine(args []string, stderr io.Writer) *commandLine {
	cl := &commandLine{fs: flag.NewFlagSet(program, flag.ExitOnError)}
	fs := cl.fs
	fs.SetOutput(stderr)
	var out string
	var exposure, readout float64
	fs.StringVar(&out, "o", "", "")
	fs.StringVar(&out, "outputdir", "", "")
	fs.Float64Var(&exposure, "e", 0, "")
	fs.Float64Var(&exposure, "exposuretime", 0, "")
	fs.Float64Var(&readout, "r", 0, "")
	fs.Float64Var(&readout, "readouttime", 0, "")
	fs.BoolVar(&cl.save, "save", false, "")
	fs.BoolVar(&cl.v, "v", false, "")
	fs.Usage = func() {
		io.WriteString(stderr, `
Usage: simrun [options] <runfile>   replay the frames listed in runfile
       simrun -v                    display version and copyright

The run file lists one frame path per line.

Options:
       -o, -outputdir <dir>         folder to write the frames to
       -e, -exposuretime <s>        simulated exposure time
       -r, -readouttime <s>         simulated readout time
       -save                        store the options given as new defaults

Settings are kept in $HOME/.config/simulateSAFTRun/simulateSAFTRun.conf.
`)
	}
	fs.Parse(args)
	switch {
	case cl.v:
	case fs.NArg() != 1:
		fs.Usage()
		os.Exit(1)
	default:
		cl.runFile = fs.Arg(0)
	}
	return cl
}

// ReadRunFile returns the frame paths listed in the file, one per line.
// Blank lines are skipped.
func ReadRunFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("simprog.ReadRunFile", path, err)
	}
	defer f.Close()
	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if p := strings.TrimSpace(sc.Text()); p != "" {
			paths = append(paths, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IO("simprog.ReadRunFile", path, err)
	}
	return paths, nil
}

func run(ctx context.Context, cl *commandLine, cfgBase string, stdout io.Writer, log logging.Logger) error {
	st, err := cli.Settings(cfgBase, app, cl.fs, defaults, flagKeys, cl.save)
	if err != nil {
		return err
	}
	outDir, err := st.String(keyOut)
	if err != nil {
		return err
	}
	exposure, err := st.Seconds(keyExposure)
	if err != nil {
		return err
	}
	readout, err := st.Seconds(keyReadout)
	if err != nil {
		return err
	}
	paths, err := ReadRunFile(cl.runFile)
	if err != nil {
		return err
	}
	log.Info(ctx, "replaying run",
		logging.Int("frames", len(paths)),
		logging.String("out", outDir),
		logging.Any("exposure", exposure),
		logging.Any("readout", readout))

	for i, p := range paths {
		out := filepath.Join(outDir, filepath.Base(p))
		if err := copyFrame(p, out); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\r%d frames of %d written to: %s", i+1, len(paths), out)
		t := time.NewTimer(exposure + readout)
		select {
		case <-ctx.Done():
			t.Stop()
			fmt.Fprintln(stdout)
			return nil
		case <-t.C:
		}
	}
	fmt.Fprintln(stdout)
	return nil
}

// copyFrame rewrites a frame through the FITS codec, so that the output is
// only visible once complete and in the form the camera writes.
func copyFrame(src, dst string) error {
	hdu, err := fitsfile.Open(src)
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(dst), ".tmp-"+filepath.Base(dst))
	if err := fitsfile.Write(tmp, hdu); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return errs.IO("simprog.copyFrame", dst, err)
	}
	return nil
}
