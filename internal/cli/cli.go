// Public domain.

// Package cli holds the start-up steps shared by the saftlog commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/saft-obs/saftlog/internal/config"
	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/metrics"
)

// Copyright is printed by -v.
const Copyright = "Public domain."

// Context returns a context cancelled by SIGINT or SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Logger returns the environment configured logger tagged with the program
// name and a fresh run id, so log lines of one session can be picked out.
func Logger(program string) logging.Logger {
	return logging.NewFromEnv().With(
		logging.String("program", program),
		logging.String("run", uuid.NewString()))
}

// Version prints the version lines to w.
func Version(w io.Writer, version string) {
	fmt.Fprintln(w, version)
	fmt.Fprintln(w, Copyright)
}

// Settings opens the store of app, fills defaults, applies the flags of fs
// that were given on the command line and, when save is true, writes the
// result back.  flagKeys maps flag names to setting keys.
func Settings(base, app string, fs *flag.FlagSet, defaults map[string]any, flagKeys map[string]string, save bool) (*config.Store, error) {
	var (
		s   *config.Store
		err error
	)
	if base == "" {
		s, err = config.Open(app)
	} else {
		s, err = config.OpenDir(base, app)
	}
	if err != nil {
		return nil, err
	}
	s.SetDefaults(defaults)
	s.ApplyFlags(fs, flagKeys)
	if save {
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Metrics registers the program's collectors and, when addr is not empty,
// serves them until ctx is done.  Serve failures are logged, the program
// carries on without metrics.
func Metrics(ctx context.Context, addr, program string, log logging.Logger) *metrics.Collector {
	m, err := metrics.New(nil, program)
	if err != nil {
		log.Warn(ctx, "metrics disabled", logging.Err(err))
		return nil
	}
	if addr != "" {
		go func() {
			log.Info(ctx, "serving metrics", logging.String("addr", addr))
			if err := m.Serve(ctx, addr); err != nil {
				log.Error(ctx, "metrics server", logging.Err(err))
			}
		}()
	}
	return m
}
