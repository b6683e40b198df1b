// Public domain.

// Package alprog is the nightly autologger, run as command saftlog.
package alprog

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/soniakeys/exit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/nightlog"
)

const (
	app           = "autoLogger"
	program       = "saftlog"
	versionString = "saftlog version 0.1 Go source."
)

// setting keys
const (
	keyObsData  = "OBSDATAPath"
	keyJSONPath = "JSONPath"
	keyInterval = "UpdateInterval"
)

var defaults = map[string]any{
	keyObsData:  "/home/saft/OBS_DATA",
	keyJSONPath: "/home/saft/www/autologger",
	keyInterval: 60.0,
}

var flagKeys = map[string]string{
	"obsdata":        keyObsData,
	"o":              keyJSONPath,
	"outputpath":     keyJSONPath,
	"u":              keyInterval,
	"updateinterval": keyInterval,
}

type commandLine struct {
	fs          *flag.FlagSet
	date        string
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
	// values reach the settings store through ApplyFlags
	var obsData, out string
	var interval float64
	fs.StringVar(&obsData, "obsdata", "", "")
	fs.StringVar(&out, "o", "", "")
	fs.StringVar(&out, "outputpath", "", "")
	fs.Float64Var(&interval, "u", 0, "")
	fs.Float64Var(&interval, "updateinterval", 0, "")
	fs.BoolVar(&cl.save, "save", false, "")
	fs.BoolVar(&cl.v, "v", false, "")
	fs.IntVar(&cl.iterations, "n", 0, "")
	fs.StringVar(&cl.metricsAddr, "metrics", "", "")
	fs.Usage = func() {
		io.WriteString(stderr, `
Usage: saftlog [options] <date>    log the night of <date>, e.g. 20200530
       saftlog -v                  display version and copyright

Options:
       -obsdata <dir>              folder holding one subfolder per night
       -o, -outputpath <dir>       folder for the <date>.json snapshot
       -u, -updateinterval <s>     seconds between polls
       -n <count>                  stop after count polls
       -metrics <addr>             serve Prometheus metrics on addr
       -save                       store the options given as new defaults

Settings are kept in $HOME/.config/autoLogger/autoLogger.conf.
`)
	}
	fs.Parse(args)
	switch {
	case cl.v:
	case fs.NArg() != 1:
		fs.Usage()
		os.Exit(1)
	default:
		cl.date = fs.Arg(0)
	}
	return cl
}

// run logs the night until ctx is done.  cfgBase overrides the settings
// directory when not empty.
func run(ctx context.Context, cl *commandLine, cfgBase string, log logging.Logger) error {
	st, err := cli.Settings(cfgBase, app, cl.fs, defaults, flagKeys, cl.save)
	if err != nil {
		return err
	}
	obsData, err := st.String(keyObsData)
	if err != nil {
		return err
	}
	jsonPath, err := st.String(keyJSONPath)
	if err != nil {
		return err
	}
	interval, err := st.Seconds(keyInterval)
	if err != nil {
		return err
	}

	dir := filepath.Join(obsData, cl.date)
	out := filepath.Join(jsonPath, cl.date+".json")
	log.Info(ctx, "logging night",
		logging.String("date", cl.date),
		logging.String("dir", dir),
		logging.String("out", out),
		logging.Any("interval", interval))

	c := nightlog.NewCycle(dir, out, log)
	c.Metrics = cli.Metrics(ctx, cl.metricsAddr, program, log)
	if err := c.Watch(ctx, interval, cl.iterations); err != nil {
		return err
	}
	log.Info(ctx, "stopped", logging.Int("cycles", c.Runs()))
	return nil
}
