// Public domain.

// Package fvprog is the weather station simulator, run as command
// fakevaisala.
//
// Each run moves the simulated readings one gaussian step from the values
// left by the previous run and prints them as a Vaisala text report.
package fvprog

import (
	"flag"
	"io"
	"os"
	"time"

	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/exit"

	"github.com/saft-obs/saftlog/internal/cli"
	"github.com/saft-obs/saftlog/internal/config"
	"github.com/saft-obs/saftlog/internal/weather"
)

const (
	app           = "fakeVaisala"
	program       = "fakevaisala"
	versionString = "fakevaisala version 0.1 Go source."
)

// walk is one random walk quantity: its setting key, start value and step
// standard deviation.
type walk struct {
	key   string
	start float64
	sigma float64
}

var walks = []walk{
	{"latestWindDirection", 128, 8},
	{"latestWindSpeed", 13.7, 2},
	{"latestTemperature", 10.5, 1},
	{"latestRelativeHumidity", 36.7, 1},
	{"latestPressure", 776.3, 4},
}

// readings that do not change
const (
	accumRain   = 18.8
	heaterTemp  = 11.9
	heaterVolts = 18.2
)

func Main() {
	defer exit.Handler()

	fs := flag.NewFlagSet(program, flag.ExitOnError)
	v := fs.Bool("v", false, "")
	seed := fs.Uint64("seed", 0, "")
	fs.Usage = func() {
		io.WriteString(os.Stderr, `
Usage: fakevaisala          print a simulated weather report
       fakevaisala -v       display version and copyright

Options:
       -seed <n>            seed the random walk, for repeatable output

The walk state is kept in $HOME/.config/fakeVaisala/fakeVaisala.conf.
`)
	}
	fs.Parse(os.Args[1:])
	if *v {
		cli.Version(os.Stdout, versionString)
		return
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	if err := run(os.Stdout, "", *seed, time.Now()); err != nil {
		exit.Log(err)
	}
}

func run(w io.Writer, cfgBase string, seed uint64, now time.Time) error {
	st, err := cli.Settings(cfgBase, app, flag.NewFlagSet(program, flag.ContinueOnError), startValues(), nil, false)
	if err != nil {
		return err
	}
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	s, err := step(st, rnd)
	if err != nil {
		return err
	}
	if err := weather.Format(w, s, now); err != nil {
		return err
	}
	return st.Save()
}

func startValues() map[string]any {
	m := make(map[string]any, len(walks))
	for _, wk := range walks {
		m[wk.key] = wk.start
	}
	return m
}

// step advances every walk by one step, stores the new values in st and
// returns them as a sample.
func step(st *config.Store, rnd *xrand.Rand) (weather.Sample, error) {
	vals := make([]float64, len(walks))
	for i, wk := range walks {
		x, err := st.Float(wk.key)
		if err != nil {
			return weather.Sample{}, err
		}
		vals[i] = x + rnd.NormFloat64()*wk.sigma
	}
	dir, speed, temp, rh, p := vals[0], vals[1], vals[2], vals[3], vals[4]
	switch {
	case dir > 360:
		dir -= 360
	case dir < 0:
		dir += 360
	}
	speed = max(speed, 0)
	rh = min(max(rh, 0), 100)
	for i, x := range []float64{dir, speed, temp, rh, p} {
		st.Set(walks[i].key, x)
	}
	rain, ht, hv := accumRain, heaterTemp, heaterVolts
	return weather.Sample{
		WindDirection:     &dir,
		WindSpeed:         &speed,
		Temperature:       &temp,
		RelativeHumidity:  &rh,
		Pressure:          &p,
		AccumulatedRain:   &rain,
		HeaterTemperature: &ht,
		HeaterVoltage:     &hv,
	}, nil
}
