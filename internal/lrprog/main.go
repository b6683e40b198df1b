// Public domain.

// Package lrprog is the live reducer, run as command livereduce.
//
// It calibrates each new exposure of one target as it lands in the search
// directory, adds it to a running stack and renders the latest exposure and
// the stack as PNG images for the observer's display.
package lrprog

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/soniakeys/exit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/frame"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/metrics"
	"github.com/saft-obs/saftlog/internal/render"
	"github.com/saft-obs/saftlog/internal/stack"
	"github.com/saft-obs/saftlog/internal/watch"
)

const (
	app           = "liveSAFTReduce"
	program       = "livereduce"
	versionString = "livereduce version 0.1 Go source."

	// images written to the reduction directory
	LatestPNG = "latest.png"
	StackPNG  = "stack.png"
)

// setting keys
const (
	keyInterval  = "UpdateInterval"
	keyReduction = "ReductionDirectory"
	keySearch    = "SearchPath"
	keyBias      = "BiasFrame"
	keyFlat      = "FlatFrame"
)

var defaults = map[string]any{
	keyInterval:  1.0,
	keyReduction: "/home/saft/reductions",
	keySearch:    ".",
	keyBias:      nil,
	keyFlat:      nil,
}

var flagKeys = map[string]string{
	"s":               keySearch,
	"searchpath":      keySearch,
	"u":               keyInterval,
	"updateinterval":  keyInterval,
	"r":               keyReduction,
	"reducedirectory": keyReduction,
	"b":               keyBias,
	"bias":            keyBias,
	"f":               keyFlat,
	"flat":            keyFlat,
}

type commandLine struct {
	fs          *flag.FlagSet
	target      string
	save, v     bool
	iterations  int
	metricsAddr string
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
	var search, reduction, bias, flat string
	var interval float64
	fs.StringVar(&search, "s", "", "")
	fs.StringVar(&search, "searchpath", "", "")
	fs.Float64Var(&interval, "u", 0, "")
	fs.Float64Var(&interval, "updateinterval", 0, "")
	fs.StringVar(&reduction, "r", "", "")
	fs.StringVar(&reduction, "reducedirectory", "", "")
	fs.StringVar(&bias, "b", "", "")
	fs.StringVar(&bias, "bias", "", "")
	fs.StringVar(&flat, "f", "", "")
	fs.StringVar(&flat, "flat", "", "")
	fs.BoolVar(&cl.save, "save", false, "")
	fs.BoolVar(&cl.v, "v", false, "")
	fs.IntVar(&cl.iterations, "n", 0, "")
	fs.StringVar(&cl.metricsAddr, "metrics", "", "")
	fs.Usage = func() {
		io.WriteString(stderr, `
Usage: livereduce [options] <target>   reduce <target>-nnn.fits as it arrives
       livereduce -v                   display version and copyright

Options:
       -s, -searchpath <dir>           folder the camera writes to
       -r, -reducedirectory <dir>      folder for latest.png and stack.png
       -b, -bias <file>                subtract this bias frame
       -f, -flat <file>                divide by this flat frame
       -u, -updateinterval <s>         seconds between polls
       -n <count>                      stop after count polls
       -metrics <addr>                 serve Prometheus metrics on addr
       -save                           store the options given as new defaults

Settings are kept in $HOME/.config/liveSAFTReduce/liveSAFTReduce.conf.
`)
	}
	fs.Parse(args)
	switch {
	case cl.v:
	case fs.NArg() != 1:
		fs.Usage()
		os.Exit(1)
	default:
		cl.target = strings.TrimSuffix(fs.Arg(0), "-")
	}
	return cl
}

// FramePattern matches the exposure files of target, frame numbers having
// at least three digits.
func FramePattern(target string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(target) +
		`-[0-9]{3,}\.(fits\.gz|fit\.gz|fits|fit|FIT)$`)
}

// reducer is the state of one live reduction session.
type reducer struct {
	dir, outDir string
	pattern     *regexp.Regexp
	bias, flat  *frame.Frame
	log         logging.Logger
	metrics     *metrics.Collector

	known  watch.Set
	tries  map[string]int // load failures per file still being retried
	stack  stack.Stacker
	latest *frame.Frame
	count  int
}

func run(ctx context.Context, cl *commandLine, cfgBase string, log logging.Logger) error {
	st, err := cli.Settings(cfgBase, app, cl.fs, defaults, flagKeys, cl.save)
	if err != nil {
		return err
	}
	r := &reducer{pattern: FramePattern(cl.target), log: log, known: watch.NewSet(), tries: map[string]int{}}
	if r.dir, err = st.String(keySearch); err != nil {
		return err
	}
	if r.outDir, err = st.String(keyReduction); err != nil {
		return err
	}
	interval, err := st.Seconds(keyInterval)
	if err != nil {
		return err
	}
	if r.bias, err = loadCalibration(ctx, st.OptString(keyBias), frame.Bias, log); err != nil {
		return err
	}
	if r.flat, err = loadCalibration(ctx, st.OptString(keyFlat), frame.Flat, log); err != nil {
		return err
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return errs.IO("lrprog.run", r.outDir, err)
	}
	r.metrics = cli.Metrics(ctx, cl.metricsAddr, program, log)

	// catch up on what is already there
	p, err := r.poll(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "found frames", logging.String("target", cl.target),
		logging.Int("frames", p.matched), logging.Int("stacked", p.stacked))
	if p.matched == 0 {
		return nil
	}
	r.render(ctx)

	for cycles := 1; cl.iterations == 0 || cycles < cl.iterations; cycles++ {
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		p, err := r.poll(ctx)
		if err != nil {
			log.Error(ctx, "poll failed", logging.Err(err))
			r.countError(err)
			continue
		}
		if p.stacked > 0 {
			r.render(ctx)
		}
	}
	return nil
}

// loadCalibration loads an optional calibration frame.  An empty path
// gives a nil frame.
func loadCalibration(ctx context.Context, path string, t frame.Type, log logging.Logger) (*frame.Frame, error) {
	if path == "" {
		return nil, nil
	}
	f, err := frame.LoadFile(ctx, path, log)
	if err != nil {
		return nil, err
	}
	f.Type = t
	log.Info(ctx, "calibration frame", logging.String("type", t.String()), logging.String("frame", f.String()))
	return f, nil
}

// maxLoadTries bounds how many polls a frame that cannot be loaded is
// retried on.  The camera may still be writing it.
const maxLoadTries = 3

type pollResult struct {
	matched int // new files matching the target
	stacked int // frames added to the stack
}

// poll processes new frames in filename order.
func (r *reducer) poll(ctx context.Context) (pollResult, error) {
	var p pollResult
	t0 := time.Now()
	d, err := watch.Scan(r.dir, r.known)
	if err != nil {
		return p, err
	}
	var names []string
	for _, n := range d.Added {
		if r.pattern.MatchString(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	p.matched = len(names)
	var retry []string
	for _, n := range names {
		f, err := frame.LoadFile(ctx, filepath.Join(r.dir, n), r.log)
		if err != nil {
			r.tries[n]++
			if errs.Is(err, errs.ErrData) && r.tries[n] < maxLoadTries {
				r.log.Warn(ctx, "frame not readable yet", logging.String("file", n),
					logging.Int("try", r.tries[n]), logging.Err(err))
				retry = append(retry, n)
				continue
			}
			delete(r.tries, n)
			r.log.Warn(ctx, "skipping frame", logging.String("file", n), logging.Err(err))
			r.countError(err)
			continue
		}
		delete(r.tries, n)
		if err := r.process(ctx, f); err != nil {
			r.log.Warn(ctx, "skipping frame", logging.String("file", n), logging.Err(err))
			r.countError(err)
			continue
		}
		p.stacked++
	}
	r.known = watch.NewSet(d.Current...)
	for _, n := range retry {
		delete(r.known, n)
	}
	if r.metrics != nil {
		r.metrics.Files.Set(float64(len(r.known)))
		r.metrics.Stacked.Set(float64(r.stack.Count()))
		r.metrics.ObserveCycle(time.Since(t0))
	}
	return p, nil
}

// process calibrates one exposure and adds it to the stack.  Calibration
// and stacking failures are final, the frame is not retried.
func (r *reducer) process(ctx context.Context, f *frame.Frame) error {
	f.Index = r.count
	f.Type = frame.Science
	if r.bias != nil {
		if err := f.Combine(r.bias, frame.Subtract); err != nil {
			return err
		}
	}
	if r.flat != nil {
		if err := f.Combine(r.flat, frame.Divide); err != nil {
			return err
		}
	}
	if err := r.stack.Accumulate(f); err != nil {
		return err
	}
	r.count++
	r.latest = f
	r.log.Info(ctx, "stacked", logging.String("frame", f.String()), logging.Int("stacked", r.stack.Count()))
	return nil
}

// render writes the latest frame and the stack.  A frame too flat to
// stretch is logged and not drawn.
func (r *reducer) render(ctx context.Context) {
	for _, img := range []struct {
		name string
		f    *frame.Frame
	}{
		{LatestPNG, r.latest},
		{StackPNG, r.stack.Total()},
	} {
		if img.f == nil {
			continue
		}
		vals, err := stack.Render(img.f)
		if err == nil {
			err = render.PNG(filepath.Join(r.outDir, img.name), img.f.Width(), img.f.Height(), vals)
		}
		if err != nil {
			r.log.Warn(ctx, "not rendered", logging.String("image", img.name), logging.Err(err))
			r.countError(err)
		}
	}
}

func (r *reducer) countError(err error) {
	if r.metrics != nil {
		r.metrics.CountError(err)
	}
}
