// Public domain.

package nightlog

import (
	"context"
	"errors"
	"time"

	"github.com/saft-obs/saftlog/internal/logging"
	"github.com/saft-obs/saftlog/internal/metrics"
	"github.com/saft-obs/saftlog/internal/snapshot"
	"github.com/saft-obs/saftlog/internal/target"
	"github.com/saft-obs/saftlog/internal/watch"
)

// Cycle holds the state carried from one poll of a night's data directory
// to the next.
type Cycle struct {
	Dir     string             // night's data directory
	Out     string             // snapshot path, <jsonDir>/<date>.json
	Log     logging.Logger     // required
	Metrics *metrics.Collector // optional

	known watch.Set
	files []string // discovery order
	names []string // discovery order
	runs  int
}

// NewCycle returns a cycle with no known files.
func NewCycle(dir, out string, log logging.Logger) *Cycle {
	return &Cycle{Dir: dir, Out: out, Log: log, known: watch.NewSet()}
}

// Runs is the number of completed cycles.
func (c *Cycle) Runs() int { return c.runs }

// Files returns the files currently known, in discovery order.
func (c *Cycle) Files() []string { return c.files }

// Run does one poll: it rescans the directory, regroups every known file,
// rebuilds every record and overwrites the snapshot.  Targets whose record
// cannot be built are logged and left out.
//
// Scan and snapshot failures are returned, the cycle state then stays as
// it was.
func (c *Cycle) Run(ctx context.Context) ([]*Record, error) {
	t0 := time.Now()
	d, err := watch.Scan(c.Dir, c.known)
	if err != nil {
		return nil, err
	}
	files := c.apply(d)
	names := target.Discover(c.names, d.Added)
	groups := target.Build(names, files)

	recs := make([]*Record, 0, len(groups))
	for _, g := range groups {
		r, err := BuildRecord(ctx, g, c.Dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Log.Warn(ctx, "skipping target", logging.String("target", g.Name), logging.Err(err))
			c.countError(err)
			continue
		}
		c.Log.Info(ctx, "target",
			logging.String("target", r.Name),
			logging.Int("start", r.StartFrame),
			logging.Int("end", r.EndFrame),
			logging.Int("frames", r.NumFrames),
			logging.Float("minutes", r.DurationMinutes))
		recs = append(recs, r)
	}
	if err := snapshot.WriteJSON(c.Out, recs); err != nil {
		return nil, err
	}

	c.known = watch.NewSet(d.Current...)
	c.files = files
	c.names = names
	c.runs++
	c.Log.Debug(ctx, "cycle done",
		logging.Int("files", len(files)),
		logging.Int("added", len(d.Added)),
		logging.Int("removed", len(d.Removed)),
		logging.Int("targets", len(recs)))
	if c.Metrics != nil {
		c.Metrics.Files.Set(float64(len(files)))
		c.Metrics.Targets.Set(float64(len(recs)))
		c.Metrics.ObserveCycle(time.Since(t0))
	}
	return recs, nil
}

// apply returns the file list updated by d, leaving c.files as is.
func (c *Cycle) apply(d watch.Delta) []string {
	gone := watch.NewSet(d.Removed...)
	files := make([]string, 0, len(c.files)+len(d.Added))
	for _, f := range c.files {
		if !gone.Has(f) {
			files = append(files, f)
		}
	}
	return append(files, d.Added...)
}

// Watch runs cycles every interval until ctx is done or, when limit > 0,
// limit cycles have been attempted, failed ones included.
//
// A failure of the first cycle is returned, the directory or output path is
// then presumably wrong.  Later failures are logged and retried on the next
// cycle.
func (c *Cycle) Watch(ctx context.Context, interval time.Duration, limit int) error {
	for n := 1; ; n++ {
		_, err := c.Run(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil && c.runs == 0:
			return err
		case err != nil:
			c.Log.Error(ctx, "cycle failed", logging.Err(err))
			c.countError(err)
		}
		if limit > 0 && n >= limit {
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

func (c *Cycle) countError(err error) {
	if c.Metrics != nil {
		c.Metrics.CountError(err)
	}
}
