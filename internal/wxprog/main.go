// Public domain.

// Package wxprog is the weather logger, run as command weatherlog.
package wxprog

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/soniakeys/exit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/metrics"
	"github.com/saft-obs/saftlog/internal/tool"
	"github.com/saft-obs/saftlog/internal/weather"
)

const (
	app           = "weatherLog"
	program       = "weatherlog"
	versionString = "weatherlog version 0.1 Go source."
)

// setting keys
const (
	keyStation  = "StationCommand"
	keyOut      = "WeatherFile"
	keyInterval = "UpdateInterval"
)

var defaults = map[string]any{
	keyStation:  "fakevaisala",
	keyOut:      "/home/saft/www/weather.json",
	keyInterval: 60.0,
}

var flagKeys = map[string]string{
	"c":              keyStation,
	"o":              keyOut,
	"u":              keyInterval,
	"updateinterval": keyInterval,
}

type commandLine struct {
	fs          *flag.FlagSet
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
	var station, out string
	var interval float64
	fs.StringVar(&station, "c", "", "")
	fs.StringVar(&out, "o", "", "")
	fs.Float64Var(&interval, "u", 0, "")
	fs.Float64Var(&interval, "updateinterval", 0, "")
	fs.BoolVar(&cl.save, "save", false, "")
	fs.BoolVar(&cl.v, "v", false, "")
	fs.IntVar(&cl.iterations, "n", 0, "")
	fs.StringVar(&cl.metricsAddr, "metrics", "", "")
	fs.Usage = func() {
		io.WriteString(stderr, `
Usage: weatherlog [options]    poll the weather station
       weatherlog -v           display version and copyright

Options:
       -c <command>            station command printing a Vaisala report
       -o <file>               JSON snapshot of the latest reading
       -u, -updateinterval <s> seconds between polls
       -n <count>              stop after count polls
       -metrics <addr>         serve Prometheus metrics on addr
       -save                   store the options given as new defaults

Settings are kept in $HOME/.config/weatherLog/weatherLog.conf.
`)
	}
	fs.Parse(args)
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	return cl
}

type logger struct {
	station, out string
	runner       tool.Runner
	log          logging.Logger
	metrics      *metrics.Collector
}

func run(ctx context.Context, cl *commandLine, cfgBase string, log logging.Logger) error {
	st, err := cli.Settings(cfgBase, app, cl.fs, defaults, flagKeys, cl.save)
	if err != nil {
		return err
	}
	w := &logger{log: log}
	if w.station, err = st.String(keyStation); err != nil {
		return err
	}
	if w.out, err = st.String(keyOut); err != nil {
		return err
	}
	interval, err := st.Seconds(keyInterval)
	if err != nil {
		return err
	}
	w.runner = tool.Runner{Log: log, Timeout: 30 * time.Second}
	w.metrics = cli.Metrics(ctx, cl.metricsAddr, program, log)

	for cycles := 0; ; {
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error(ctx, "weather poll failed", logging.Err(err))
			if w.metrics != nil {
				w.metrics.CountError(err)
			}
		}
		if cycles++; cl.iterations > 0 && cycles >= cl.iterations {
			return nil
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// poll reads the station once and writes the snapshot.
func (w *logger) poll(ctx context.Context) error {
	t0 := time.Now()
	out, err := w.runner.RunLine(ctx, w.station)
	if err != nil {
		return err
	}
	s := weather.Parse(string(out))
	if s.Empty() {
		return errs.Dataf("wxprog.poll", w.station, "no reading in station output")
	}
	if err := weather.WriteSnapshot(w.out, s); err != nil {
		return err
	}
	w.log.Info(ctx, "weather", logging.String("date", s.Date), logging.String("time", s.Time))
	if w.metrics != nil {
		w.metrics.ObserveCycle(time.Since(t0))
	}
	return nil
}
